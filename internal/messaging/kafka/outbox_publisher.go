package kafka

import (
	"fmt"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer      *Producer
	topic         string
	originalTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер событий заказа.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// NewDLQPublisher создаёт паблишер в Dead Letter Queue; в заголовках сохраняется исходный topic.
func NewDLQPublisher(producer *Producer, dlqTopic, originalTopic string) *OutboxTopicPublisher {
	if dlqTopic == "" {
		dlqTopic = TopicDeadLetterQueue
	}
	if originalTopic == "" {
		originalTopic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer:      producer,
		topic:         dlqTopic,
		originalTopic: originalTopic,
	}
}

// Topic возвращает topic назначения.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	headers := map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
	}
	if p.originalTopic != "" {
		headers[HeaderOriginalTopic] = p.originalTopic
	}

	envelope := NewEnvelope(event, p.producer.now())
	return p.producer.PublishEvent(p.topic, PartitionKey(event), envelope, headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
