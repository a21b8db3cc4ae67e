// Package order - сервис заказов: генерация номера с повтором при конфликте,
// валидация, смена статусов и отчёты о продажах поверх domain.OrderRepository.
package order

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/metrics"
	"github.com/vladislavdragonenkov/printshop/internal/pagination"
	"github.com/vladislavdragonenkov/printshop/internal/validation"
)

const (
	component = "order"

	defaultCreateAttempts = 5
)

// NumberSource выдаёт номера заказов.
type NumberSource interface {
	Generate() (string, error)
}

// Option настраивает Service.
type Option func(*Service)

// WithNumberSource подменяет генератор номеров.
func WithNumberSource(src NumberSource) Option {
	return func(s *Service) {
		s.numbers = src
	}
}

// WithCreateAttempts задаёт число попыток создания при конфликте номера.
func WithCreateAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.createAttempts = n
		}
	}
}

// Service - сервис заказов.
type Service struct {
	repo           domain.OrderRepository
	numbers        NumberSource
	createAttempts int
	metrics        *metrics.StoreMetrics
	logger         *log.Entry
}

// NewService конструирует сервис заказов. metrics и logger опциональны.
func NewService(repo domain.OrderRepository, m *metrics.StoreMetrics, logger *log.Entry, opts ...Option) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	s := &Service{
		repo:           repo,
		numbers:        NewNumberGenerator(),
		createAttempts: defaultCreateAttempts,
		metrics:        m,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create валидирует заказ, генерирует номер и сохраняет заказ.
// При конфликте номера генерируется новый, не более createAttempts раз.
// Номер, заданный вызывающим кодом, используется как есть и не перегенерируется.
func (s *Service) Create(ctx context.Context, order domain.NewOrder) (id int64, number string, err error) {
	defer s.observe("create", time.Now(), &err)

	order.Normalize()
	if err := validation.Struct(order); err != nil {
		return 0, "", err
	}
	if !order.Status.Valid() {
		return 0, "", domain.ErrInvalidOrderStatus
	}
	if !order.PaymentStatus.Valid() {
		return 0, "", domain.ErrInvalidPaymentStatus
	}

	if domain.IsNumericOrderRef(order.OrderNumber) {
		return 0, "", domain.ErrOrderNumberNumeric
	}

	attempts := s.createAttempts
	fixedNumber := order.OrderNumber != ""
	if fixedNumber {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if !fixedNumber {
			order.OrderNumber, err = s.numbers.Generate()
			if err != nil {
				return 0, "", fmt.Errorf("generate order number: %w", err)
			}
		}

		id, err = s.repo.Create(ctx, order)
		if err == nil {
			s.metrics.RecordOrderCreated()
			s.logger.WithFields(log.Fields{
				"order_id":     id,
				"order_number": order.OrderNumber,
				"user_id":      order.UserID,
			}).Info("order created")
			return id, order.OrderNumber, nil
		}
		if !domain.IsOrderNumberConflict(err) {
			return 0, "", err
		}

		s.logger.WithFields(log.Fields{
			"order_number": order.OrderNumber,
			"attempt":      attempt,
		}).Warn("order number conflict")
		if attempt < attempts {
			s.metrics.RecordOrderNumberRetry()
		}
	}

	return 0, "", err
}

// Get возвращает заказ по id или nil.
func (s *Service) Get(ctx context.Context, id int64) (_ *domain.OrderView, err error) {
	defer s.observe("get", time.Now(), &err)
	return s.repo.Get(ctx, id)
}

// FindByOrderNumber возвращает заказ по номеру или nil.
func (s *Service) FindByOrderNumber(ctx context.Context, number string) (_ *domain.OrderView, err error) {
	defer s.observe("find_by_number", time.Now(), &err)
	return s.repo.FindByOrderNumber(ctx, number)
}

// ListForUser возвращает страницу заказов пользователя.
func (s *Service) ListForUser(ctx context.Context, userID int64, page, perPage int) (_ pagination.Page[domain.Order], err error) {
	defer s.observe("list_for_user", time.Now(), &err)
	return s.repo.ListForUser(ctx, userID, page, perPage)
}

// Search возвращает страницу заказов по фильтрам.
func (s *Service) Search(ctx context.Context, filter domain.OrderFilter, page, perPage int) (_ pagination.Page[domain.OrderView], err error) {
	defer s.observe("search", time.Now(), &err)
	return s.repo.Search(ctx, filter, page, perPage)
}

// UpdateStatus меняет статус заказа; допустим любой переход между известными статусами.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (err error) {
	defer s.observe("update_status", time.Now(), &err)

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.metrics.RecordStatusTransition("order", string(status))
	s.logger.WithFields(log.Fields{"order_id": id, "status": status}).Info("order status updated")
	return nil
}

// UpdatePaymentStatus меняет статус оплаты.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (err error) {
	defer s.observe("update_payment_status", time.Now(), &err)

	if err := s.repo.UpdatePaymentStatus(ctx, id, status); err != nil {
		return err
	}
	s.metrics.RecordStatusTransition("payment", string(status))
	s.logger.WithFields(log.Fields{"order_id": id, "payment_status": status}).Info("payment status updated")
	return nil
}

// AddTrackingCode сохраняет трек-номер и переводит заказ в shipped.
func (s *Service) AddTrackingCode(ctx context.Context, id int64, code string) (err error) {
	defer s.observe("add_tracking_code", time.Now(), &err)

	if err := s.repo.AddTrackingCode(ctx, id, code); err != nil {
		return err
	}
	s.metrics.RecordStatusTransition("tracking", string(domain.OrderStatusShipped))
	s.logger.WithField("order_id", id).Info("order shipped")
	return nil
}

// Items возвращает позиции заказа.
func (s *Service) Items(ctx context.Context, orderID int64) (_ []domain.OrderItem, err error) {
	defer s.observe("items", time.Now(), &err)
	return s.repo.Items(ctx, orderID)
}

// ShippingAddress возвращает адрес доставки заказа или nil.
func (s *Service) ShippingAddress(ctx context.Context, order domain.Order) (_ *domain.Address, err error) {
	defer s.observe("shipping_address", time.Now(), &err)
	return s.repo.ShippingAddress(ctx, order.ShippingAddressID)
}

// SalesStats возвращает корзины продаж за период (неизвестный период трактуется как monthly).
func (s *Service) SalesStats(ctx context.Context, period string) (_ []domain.SalesBucket, err error) {
	defer s.observe("sales_stats", time.Now(), &err)
	return s.repo.SalesStats(ctx, domain.ParseSalesPeriod(period))
}

// TopProducts возвращает самые продаваемые товары.
func (s *Service) TopProducts(ctx context.Context, limit int) (_ []domain.TopProduct, err error) {
	defer s.observe("top_products", time.Now(), &err)
	return s.repo.TopProducts(ctx, limit)
}

func (s *Service) observe(op string, started time.Time, errp *error) {
	err := *errp
	s.metrics.ObserveOperation(component, op, started, err)
	if domain.IsStoreError(err) {
		s.logger.WithError(err).WithField("operation", op).Error("order store operation failed")
	}
}
