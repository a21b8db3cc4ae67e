package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OrderAggregate — тип агрегата для событий заказа.
const OrderAggregate = "order"

// OrderEventType — тип события жизненного цикла заказа.
type OrderEventType string

const (
	EventOrderCreated              OrderEventType = "order.created"
	EventOrderStatusChanged        OrderEventType = "order.status_changed"
	EventOrderPaymentStatusChanged OrderEventType = "order.payment_status_changed"
	EventOrderShipped              OrderEventType = "order.shipped"
)

// OrderEvent — полезная нагрузка события заказа. Пустые поля опускаются.
type OrderEvent struct {
	OrderID       int64         `json:"order_id"`
	OrderNumber   string        `json:"order_number,omitempty"`
	UserID        int64         `json:"user_id,omitempty"`
	Status        OrderStatus   `json:"status,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty"`
	TrackingCode  string        `json:"tracking_code,omitempty"`
	TotalMinor    int64         `json:"total_minor,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// NewOrderOutboxMessage сериализует событие заказа в outbox-сообщение.
// ID назначает репозиторий outbox.
func NewOrderOutboxMessage(eventType OrderEventType, event OrderEvent) (OutboxMessage, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		AggregateType: OrderAggregate,
		AggregateID:   strconv.FormatInt(event.OrderID, 10),
		EventType:     string(eventType),
		Payload:       payload,
	}, nil
}
