package domain

import (
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ожидает обработки.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ печатается/собирается.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан перевозчику, трек-номер известен.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCanceled — заказ отменён; не учитывается в отчётах о продажах.
	OrderStatusCanceled OrderStatus = "canceled"
	// OrderStatusRefunded — деньги по заказу возвращены.
	OrderStatusRefunded OrderStatus = "refunded"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
// Переходы между статусами не ограничиваются: любой статус может смениться любым.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCanceled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// Order — запись заказа. Денежные поля хранятся в минимальных единицах (центах).
// Total не пересчитывается слоем данных: согласованность subtotal/discount/shipping/total
// обеспечивает вызывающий код.
type Order struct {
	ID                int64         `json:"id"`
	UserID            int64         `json:"user_id"`
	OrderNumber       string        `json:"order_number"`
	Status            OrderStatus   `json:"status"`
	PaymentMethod     string        `json:"payment_method"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	ShippingAddressID int64         `json:"shipping_address_id,omitempty"` // 0 - ссылки нет.
	ShippingMethod    string        `json:"shipping_method"`
	ShippingCostMinor int64         `json:"shipping_cost_minor"`
	SubtotalMinor     int64         `json:"subtotal_minor"`
	DiscountMinor     int64         `json:"discount_minor"`
	TotalMinor        int64         `json:"total_minor"`
	Notes             string        `json:"notes,omitempty"`
	TrackingCode      string        `json:"tracking_code,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// OrderView — заказ с отображаемыми данными владельца из справочника пользователей.
type OrderView struct {
	Order
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// NewOrderLine — позиция, сохраняемая вместе с новым заказом.
type NewOrderLine struct {
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
	Quantity   int32 `json:"quantity" validate:"required,gt=0"`
	PriceMinor int64 `json:"price_minor" validate:"gte=0"`
}

// NewOrder — поля для создания заказа. OrderNumber генерируется заранее.
type NewOrder struct {
	UserID            int64          `json:"user_id" validate:"required,gt=0"`
	OrderNumber       string         `json:"order_number"`
	Status            OrderStatus    `json:"status"`
	PaymentMethod     string         `json:"payment_method" validate:"required,max=50"`
	PaymentStatus     PaymentStatus  `json:"payment_status"`
	ShippingAddressID int64          `json:"shipping_address_id" validate:"gte=0"`
	ShippingMethod    string         `json:"shipping_method" validate:"max=50"`
	ShippingCostMinor int64          `json:"shipping_cost_minor" validate:"gte=0"`
	SubtotalMinor     int64          `json:"subtotal_minor" validate:"gte=0"`
	DiscountMinor     int64          `json:"discount_minor" validate:"gte=0"`
	TotalMinor        int64          `json:"total_minor" validate:"gte=0"`
	Notes             string         `json:"notes" validate:"max=2000"`
	Items             []NewOrderLine `json:"items" validate:"dive"`
}

// Normalize подставляет статусы по умолчанию для нового заказа.
func (o *NewOrder) Normalize() {
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentStatusPending
	}
}

// Check проверяет поля, без которых хранилище не примет заказ.
// Вызывается после Normalize.
func (o NewOrder) Check() error {
	switch {
	case o.UserID <= 0:
		return ErrUserRequired
	case strings.TrimSpace(o.OrderNumber) == "":
		return ErrOrderNumberRequired
	case IsNumericOrderRef(o.OrderNumber):
		return ErrOrderNumberNumeric
	case !o.Status.Valid():
		return ErrInvalidOrderStatus
	case !o.PaymentStatus.Valid():
		return ErrInvalidPaymentStatus
	}
	return nil
}

// IsNumericOrderRef сообщает, что ссылка на заказ состоит только из цифр и трактуется как id.
func IsNumericOrderRef(ref string) bool {
	if ref == "" {
		return false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// OrderItem — позиция заказа, собранная join'ом order_items и products (только чтение).
type OrderItem struct {
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	Quantity    int32  `json:"quantity"`
	PriceMinor  int64  `json:"price_minor"`
	ProductName string `json:"product_name"`
	ProductSlug string `json:"product_slug"`
}

// OrderFilter — необязательные фильтры поиска, объединяемые через AND.
// Пустое поле означает отсутствие фильтра.
type OrderFilter struct {
	Status        OrderStatus   `json:"status,omitempty"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty"`
	DateFrom      string        `json:"date_from,omitempty"` // YYYY-MM-DD, с 00:00:00
	DateTo        string        `json:"date_to,omitempty"`   // YYYY-MM-DD, до 23:59:59
	OrderNumber   string        `json:"order_number,omitempty"`
	Customer      string        `json:"customer,omitempty"`
}

// DateLayout — формат дат в фильтрах поиска.
const DateLayout = "2006-01-02"

// CreatedRange разбирает DateFrom/DateTo в границы включительного интервала (UTC).
// Нулевое время означает отсутствие границы.
func (f OrderFilter) CreatedRange() (from, to time.Time, err error) {
	if f.DateFrom != "" {
		from, err = time.ParseInLocation(DateLayout, f.DateFrom, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidInput
		}
	}
	if f.DateTo != "" {
		day, parseErr := time.ParseInLocation(DateLayout, f.DateTo, time.UTC)
		if parseErr != nil {
			return time.Time{}, time.Time{}, ErrInvalidInput
		}
		to = EndOfDay(day)
	}
	return from, to, nil
}

// EndOfDay возвращает 23:59:59.999999 того же дня (точность хранилища - микросекунды).
func EndOfDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Microsecond), day.Location())
}
