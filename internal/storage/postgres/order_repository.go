package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/pagination"
)

const orderColumns = `
	o.id, o.user_id, o.order_number, o.status, o.payment_method, o.payment_status,
	COALESCE(o.shipping_address_id, 0), o.shipping_method, o.shipping_cost_minor,
	o.subtotal_minor, o.discount_minor, o.total_minor, o.notes, o.tracking_code,
	o.created_at, o.updated_at`

const orderViewColumns = orderColumns + `,
	COALESCE(u.name, ''), COALESCE(u.email, '')`

const orderViewFrom = `
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id`

// OrderRepository - PostgreSQL-реализация OrderRepository.
// Каждая мутация пишет событие в outbox в той же транзакции.
type OrderRepository struct {
	db  DBTX
	now func() time.Time
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner, extra ...any) (domain.Order, error) {
	var (
		o             domain.Order
		status        string
		paymentStatus string
	)
	dest := []any{
		&o.ID, &o.UserID, &o.OrderNumber, &status, &o.PaymentMethod, &paymentStatus,
		&o.ShippingAddressID, &o.ShippingMethod, &o.ShippingCostMinor,
		&o.SubtotalMinor, &o.DiscountMinor, &o.TotalMinor, &o.Notes, &o.TrackingCode,
		&o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	return o, nil
}

func scanOrderView(row rowScanner) (domain.OrderView, error) {
	var v domain.OrderView
	o, err := scanOrder(row, &v.CustomerName, &v.CustomerEmail)
	if err != nil {
		return domain.OrderView{}, err
	}
	v.Order = o
	return v, nil
}

// Create сохраняет заказ и его позиции. Номер заказа должен быть сгенерирован заранее;
// нарушение уникальности номера возвращается как ErrOrderNumberConflict.
func (r *OrderRepository) Create(ctx context.Context, order domain.NewOrder) (int64, error) {
	order.Normalize()
	if err := order.Check(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now()
	var id int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (
				user_id, order_number, status, payment_method, payment_status,
				shipping_address_id, shipping_method, shipping_cost_minor,
				subtotal_minor, discount_minor, total_minor, notes, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,NULLIF($6::bigint, 0),$7,$8,$9,$10,$11,$12,$13,$13)
			RETURNING id
		`,
			order.UserID, order.OrderNumber, string(order.Status), order.PaymentMethod,
			string(order.PaymentStatus), order.ShippingAddressID, order.ShippingMethod,
			order.ShippingCostMinor, order.SubtotalMinor, order.DiscountMinor, order.TotalMinor,
			order.Notes, now,
		).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderNumberConflict
			}
			return domain.NewStoreError("insert order", err)
		}

		for _, item := range order.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, price_minor)
				VALUES ($1,$2,$3,$4)
			`, id, item.ProductID, item.Quantity, item.PriceMinor); err != nil {
				return domain.NewStoreError("insert order item", err)
			}
		}

		return r.enqueue(ctx, tx, domain.EventOrderCreated, domain.OrderEvent{
			OrderID:       id,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			TotalMinor:    order.TotalMinor,
			OccurredAt:    now,
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *OrderRepository) enqueue(ctx context.Context, tx pgx.Tx, eventType domain.OrderEventType, event domain.OrderEvent) error {
	msg, err := domain.NewOrderOutboxMessage(eventType, event)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	_, err = enqueueOutbox(ctx, tx, msg)
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.OrderView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.findView(ctx, "select order", `SELECT `+orderViewColumns+orderViewFrom+` WHERE o.id = $1`, id)
}

func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.OrderView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.findView(ctx, "select order by number",
		`SELECT `+orderViewColumns+orderViewFrom+` WHERE o.order_number = $1`, orderNumber)
}

func (r *OrderRepository) findView(ctx context.Context, op, query string, args ...any) (*domain.OrderView, error) {
	v, err := scanOrderView(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewStoreError(op, err)
	}
	return &v, nil
}

func (r *OrderRepository) ListForUser(ctx context.Context, userID int64, page, perPage int) (pagination.Page[domain.Order], error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p := pagination.Normalize(page, perPage)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return pagination.Page[domain.Order]{}, domain.NewStoreError("count user orders", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2 OFFSET $3
	`, userID, int64(p.PerPage), int64(p.Offset))
	if err != nil {
		return pagination.Page[domain.Order]{}, domain.NewStoreError("list user orders", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, p.PerPage)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return pagination.Page[domain.Order]{}, domain.NewStoreError("scan order row", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[domain.Order]{}, domain.NewStoreError("iterate order rows", err)
	}

	return pagination.New(orders, total, p.Page, p.PerPage), nil
}

// Search возвращает страницу заказов по AND-комбинации фильтров,
// упорядоченную по времени создания (новые первыми).
func (r *OrderRepository) Search(ctx context.Context, filter domain.OrderFilter, page, perPage int) (pagination.Page[domain.OrderView], error) {
	where, args, err := buildOrderSearch(filter)
	if err != nil {
		return pagination.Page[domain.OrderView]{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p := pagination.Normalize(page, perPage)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return pagination.Page[domain.OrderView]{}, domain.NewStoreError("count orders", err)
	}

	n := len(args)
	query := `SELECT ` + orderViewColumns + orderViewFrom + where +
		fmt.Sprintf(` ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, int64(p.PerPage), int64(p.Offset))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return pagination.Page[domain.OrderView]{}, domain.NewStoreError("search orders", err)
	}
	defer rows.Close()

	views := make([]domain.OrderView, 0, p.PerPage)
	for rows.Next() {
		v, err := scanOrderView(rows)
		if err != nil {
			return pagination.Page[domain.OrderView]{}, domain.NewStoreError("scan order row", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[domain.OrderView]{}, domain.NewStoreError("iterate order rows", err)
	}

	return pagination.New(views, total, p.Page, p.PerPage), nil
}

// searchBuilder собирает WHERE из фиксированных фрагментов; значения передаются только параметрами.
type searchBuilder struct {
	conds []string
	args  []any
}

func (b *searchBuilder) add(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(cond, len(b.args)))
}

func (b *searchBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func buildOrderSearch(f domain.OrderFilter) (string, []any, error) {
	if f.Status != "" && !f.Status.Valid() {
		return "", nil, domain.ErrInvalidOrderStatus
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return "", nil, domain.ErrInvalidPaymentStatus
	}
	from, to, err := f.CreatedRange()
	if err != nil {
		return "", nil, err
	}

	var b searchBuilder
	if f.Status != "" {
		b.add("o.status = $%d", string(f.Status))
	}
	if f.PaymentMethod != "" {
		b.add("o.payment_method = $%d", f.PaymentMethod)
	}
	if f.PaymentStatus != "" {
		b.add("o.payment_status = $%d", string(f.PaymentStatus))
	}
	if !from.IsZero() {
		b.add("o.created_at >= $%d", from)
	}
	if !to.IsZero() {
		b.add("o.created_at <= $%d", to)
	}
	if f.OrderNumber != "" {
		b.add("o.order_number ILIKE $%d", containsPattern(f.OrderNumber))
	}
	if f.Customer != "" {
		b.add("o.user_id IN (SELECT c.id FROM users c WHERE c.name ILIKE $%[1]d OR c.email ILIKE $%[1]d)",
			containsPattern(f.Customer))
	}
	return b.where(), b.args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern строит ILIKE-шаблон подстроки с экранированными спецсимволами.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidOrderStatus
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now()
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		event := domain.OrderEvent{OrderID: id, Status: status, OccurredAt: now}
		err := tx.QueryRow(ctx, `
			UPDATE orders SET status = $2, updated_at = $3
			WHERE id = $1
			RETURNING user_id, order_number
		`, id, string(status), now).Scan(&event.UserID, &event.OrderNumber)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrOrderNotFound
			}
			return domain.NewStoreError("update order status", err)
		}
		return r.enqueue(ctx, tx, domain.EventOrderStatusChanged, event)
	})
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidPaymentStatus
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now()
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		event := domain.OrderEvent{OrderID: id, PaymentStatus: status, OccurredAt: now}
		err := tx.QueryRow(ctx, `
			UPDATE orders SET payment_status = $2, updated_at = $3
			WHERE id = $1
			RETURNING user_id, order_number
		`, id, string(status), now).Scan(&event.UserID, &event.OrderNumber)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrOrderNotFound
			}
			return domain.NewStoreError("update payment status", err)
		}
		return r.enqueue(ctx, tx, domain.EventOrderPaymentStatusChanged, event)
	})
}

// AddTrackingCode одним UPDATE записывает трек-номер и переводит заказ в shipped.
func (r *OrderRepository) AddTrackingCode(ctx context.Context, id int64, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrTrackingCodeRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now()
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		event := domain.OrderEvent{
			OrderID:      id,
			Status:       domain.OrderStatusShipped,
			TrackingCode: code,
			OccurredAt:   now,
		}
		err := tx.QueryRow(ctx, `
			UPDATE orders SET tracking_code = $2, status = $3, updated_at = $4
			WHERE id = $1
			RETURNING user_id, order_number
		`, id, code, string(domain.OrderStatusShipped), now).Scan(&event.UserID, &event.OrderNumber)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrOrderNotFound
			}
			return domain.NewStoreError("add tracking code", err)
		}
		return r.enqueue(ctx, tx, domain.EventOrderShipped, event)
	})
}

func (r *OrderRepository) Items(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, oi.price_minor,
		       COALESCE(p.name, ''), COALESCE(p.slug, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id ASC
	`, orderID)
	if err != nil {
		return nil, domain.NewStoreError("load order items", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.OrderID, &item.ProductID, &item.Quantity, &item.PriceMinor,
			&item.ProductName, &item.ProductSlug,
		); err != nil {
			return nil, domain.NewStoreError("scan order item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate order items", err)
	}

	return items, nil
}

// ShippingAddress возвращает адрес доставки; для пустой ссылки - nil без ошибки.
func (r *OrderRepository) ShippingAddress(ctx context.Context, addressID int64) (*domain.Address, error) {
	if addressID <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	a, err := scanAddress(r.db.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, addressID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewStoreError("select shipping address", err)
	}
	return &a, nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
