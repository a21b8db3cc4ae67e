package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/pagination"
)

type customer struct {
	name  string
	email string
}

type productRef struct {
	name string
	slug string
}

// OrderRepository - in-memory реализация OrderRepository для локальной разработки и тестов.
// Справочники пользователей и товаров заполняются через PutUser/PutProduct.
type OrderRepository struct {
	mu        sync.RWMutex
	nextID    int64
	orders    map[int64]domain.Order
	items     map[int64][]domain.NewOrderLine
	users     map[int64]customer
	products  map[int64]productRef
	addresses domain.AddressRepository
	outbox    domain.OutboxRepository
	now       func() time.Time
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
// addresses используется для ShippingAddress, outbox получает события заказов; оба могут быть nil.
func NewOrderRepository(addresses domain.AddressRepository, outbox domain.OutboxRepository) *OrderRepository {
	return &OrderRepository{
		orders:    make(map[int64]domain.Order),
		items:     make(map[int64][]domain.NewOrderLine),
		users:     make(map[int64]customer),
		products:  make(map[int64]productRef),
		addresses: addresses,
		outbox:    outbox,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PutUser добавляет запись в справочник пользователей.
func (r *OrderRepository) PutUser(id int64, name, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = customer{name: name, email: email}
}

// PutProduct добавляет запись в справочник товаров.
func (r *OrderRepository) PutProduct(id int64, name, slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[id] = productRef{name: name, slug: slug}
}

// Create сохраняет заказ, если номер ещё не занят. Заказ и событие order.created
// появляются вместе: при ошибке outbox заказ не сохраняется.
func (r *OrderRepository) Create(ctx context.Context, order domain.NewOrder) (int64, error) {
	order.Normalize()
	if err := order.Check(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return 0, domain.ErrOrderNumberConflict
		}
	}

	now := r.now()
	id := r.nextID + 1
	err := r.enqueueLocked(ctx, domain.EventOrderCreated, domain.OrderEvent{
		OrderID:       id,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalMinor:    order.TotalMinor,
		OccurredAt:    now,
	})
	if err != nil {
		return 0, err
	}

	r.nextID = id
	r.orders[id] = domain.Order{
		ID:                id,
		UserID:            order.UserID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		ShippingAddressID: order.ShippingAddressID,
		ShippingMethod:    order.ShippingMethod,
		ShippingCostMinor: order.ShippingCostMinor,
		SubtotalMinor:     order.SubtotalMinor,
		DiscountMinor:     order.DiscountMinor,
		TotalMinor:        order.TotalMinor,
		Notes:             order.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.items[id] = append([]domain.NewOrderLine(nil), order.Items...)
	return id, nil
}

// enqueueLocked пишет событие в outbox; вызывается под r.mu до применения изменения.
func (r *OrderRepository) enqueueLocked(ctx context.Context, eventType domain.OrderEventType, event domain.OrderEvent) error {
	if r.outbox == nil {
		return nil
	}
	msg, err := domain.NewOrderOutboxMessage(eventType, event)
	if err != nil {
		return domain.NewStoreError("encode order event", err)
	}
	if _, err := r.outbox.Enqueue(ctx, msg); err != nil {
		return domain.NewStoreError("enqueue order event", err)
	}
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id int64) (*domain.OrderView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	v := r.viewLocked(o)
	return &v, nil
}

func (r *OrderRepository) FindByOrderNumber(_ context.Context, orderNumber string) (*domain.OrderView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			v := r.viewLocked(o)
			return &v, nil
		}
	}
	return nil, nil
}

func (r *OrderRepository) viewLocked(o domain.Order) domain.OrderView {
	c := r.users[o.UserID]
	return domain.OrderView{Order: o, CustomerName: c.name, CustomerEmail: c.email}
}

func (r *OrderRepository) ListForUser(_ context.Context, userID int64, page, perPage int) (pagination.Page[domain.Order], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return newerFirst(result[i], result[j]) })
	return pagination.Slice(result, page, perPage), nil
}

func newerFirst(a, b domain.Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Search применяет те же AND-фильтры, что и PostgreSQL-реализация.
func (r *OrderRepository) Search(_ context.Context, filter domain.OrderFilter, page, perPage int) (pagination.Page[domain.OrderView], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return pagination.Page[domain.OrderView]{}, domain.ErrInvalidOrderStatus
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return pagination.Page[domain.OrderView]{}, domain.ErrInvalidPaymentStatus
	}
	from, to, err := filter.CreatedRange()
	if err != nil {
		return pagination.Page[domain.OrderView]{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.OrderView, 0)
	for _, o := range r.orders {
		switch {
		case filter.Status != "" && o.Status != filter.Status,
			filter.PaymentMethod != "" && o.PaymentMethod != filter.PaymentMethod,
			filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus,
			!from.IsZero() && o.CreatedAt.Before(from),
			!to.IsZero() && o.CreatedAt.After(to),
			filter.OrderNumber != "" && !containsFold(o.OrderNumber, filter.OrderNumber):
			continue
		}
		v := r.viewLocked(o)
		if filter.Customer != "" && !containsFold(v.CustomerName, filter.Customer) && !containsFold(v.CustomerEmail, filter.Customer) {
			continue
		}
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return newerFirst(result[i].Order, result[j].Order) })
	return pagination.Slice(result, page, perPage), nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidOrderStatus
	}
	return r.mutate(ctx, id, domain.EventOrderStatusChanged, func(o *domain.Order, ev *domain.OrderEvent) {
		o.Status = status
		ev.Status = status
	})
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidPaymentStatus
	}
	return r.mutate(ctx, id, domain.EventOrderPaymentStatusChanged, func(o *domain.Order, ev *domain.OrderEvent) {
		o.PaymentStatus = status
		ev.PaymentStatus = status
	})
}

// AddTrackingCode записывает трек-номер и переводит заказ в shipped одной операцией.
func (r *OrderRepository) AddTrackingCode(ctx context.Context, id int64, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrTrackingCodeRequired
	}
	return r.mutate(ctx, id, domain.EventOrderShipped, func(o *domain.Order, ev *domain.OrderEvent) {
		o.TrackingCode = code
		o.Status = domain.OrderStatusShipped
		ev.TrackingCode = code
		ev.Status = domain.OrderStatusShipped
	})
}

// mutate применяет изменение к копии заказа и сохраняет её только после записи события в outbox.
func (r *OrderRepository) mutate(ctx context.Context, id int64, eventType domain.OrderEventType, apply func(o *domain.Order, ev *domain.OrderEvent)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.UpdatedAt = r.now()
	event := domain.OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		OccurredAt:  o.UpdatedAt,
	}
	apply(&o, &event)

	if err := r.enqueueLocked(ctx, eventType, event); err != nil {
		return err
	}
	r.orders[id] = o
	return nil
}

func (r *OrderRepository) Items(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := r.items[orderID]
	result := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		p := r.products[line.ProductID]
		result = append(result, domain.OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PriceMinor:  line.PriceMinor,
			ProductName: p.name,
			ProductSlug: p.slug,
		})
	}
	return result, nil
}

// ShippingAddress возвращает адрес доставки; для пустой ссылки - nil без ошибки.
func (r *OrderRepository) ShippingAddress(ctx context.Context, addressID int64) (*domain.Address, error) {
	if addressID <= 0 || r.addresses == nil {
		return nil, nil
	}
	return r.addresses.Get(ctx, addressID)
}

// SalesStats группирует не отменённые заказы по корзинам периода, новые корзины первыми.
func (r *OrderRepository) SalesStats(_ context.Context, period domain.SalesPeriod) ([]domain.SalesBucket, error) {
	period = domain.ParseSalesPeriod(string(period))

	r.mu.RLock()
	defer r.mu.RUnlock()

	byLabel := make(map[string]*domain.SalesBucket)
	for _, o := range r.orders {
		if o.Status == domain.OrderStatusCanceled {
			continue
		}
		label := period.BucketLabel(o.CreatedAt)
		b, ok := byLabel[label]
		if !ok {
			b = &domain.SalesBucket{PeriodLabel: label}
			byLabel[label] = b
		}
		b.OrderCount++
		b.RevenueMinor += o.TotalMinor
	}

	buckets := make([]domain.SalesBucket, 0, len(byLabel))
	for _, b := range byLabel {
		b.AverageOrderMinor = int64(math.Round(float64(b.RevenueMinor) / float64(b.OrderCount)))
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].PeriodLabel > buckets[j].PeriodLabel })
	if len(buckets) > domain.SalesBucketLimit {
		buckets = buckets[:domain.SalesBucketLimit]
	}
	return buckets, nil
}

// TopProducts возвращает самые продаваемые товары по количеству; при равенстве - по product_id.
func (r *OrderRepository) TopProducts(_ context.Context, limit int) ([]domain.TopProduct, error) {
	limit = domain.TopProductsLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	byProduct := make(map[int64]*domain.TopProduct)
	for id, o := range r.orders {
		if o.Status == domain.OrderStatusCanceled {
			continue
		}
		seen := make(map[int64]bool)
		for _, line := range r.items[id] {
			tp, ok := byProduct[line.ProductID]
			if !ok {
				p := r.products[line.ProductID]
				tp = &domain.TopProduct{ProductID: line.ProductID, ProductName: p.name, ProductSlug: p.slug}
				byProduct[line.ProductID] = tp
			}
			tp.TotalQuantity += int64(line.Quantity)
			tp.TotalRevenueMinor += int64(line.Quantity) * line.PriceMinor
			if !seen[line.ProductID] {
				seen[line.ProductID] = true
				tp.OrderCount++
			}
		}
	}

	result := make([]domain.TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		result = append(result, *tp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalQuantity != result[j].TotalQuantity {
			return result[i].TotalQuantity > result[j].TotalQuantity
		}
		return result[i].ProductID < result[j].ProductID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
