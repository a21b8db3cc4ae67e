package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "printshop.order.events"
	TopicDeadLetterQueue = "printshop.dlq" // Dead Letter Queue для сообщений, не прошедших retry
)

// Kafka headers сообщений outbox
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
)

// Envelope - формат outbox-сообщения в топике.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope упаковывает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt.UTC(),
	}
}

// PartitionKey - ключ партиционирования: события одного заказа попадают в одну партицию.
func PartitionKey(msg domain.OutboxMessage) string {
	if msg.AggregateID != "" {
		return msg.AggregateID
	}
	return msg.ID
}
