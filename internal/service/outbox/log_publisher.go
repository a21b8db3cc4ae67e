package outbox

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// LogPublisher пишет события в лог вместо брокера. Используется, когда Kafka не настроена,
// чтобы backlog outbox не рос в локальном окружении.
type LogPublisher struct {
	logger *log.Entry
}

// NewLogPublisher создаёт LogPublisher.
func NewLogPublisher(logger *log.Entry) *LogPublisher {
	if logger == nil {
		logger = log.WithField("component", "outbox-log-publisher")
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
		"order_id":   event.AggregateID,
	}).Info("order event")
	return nil
}

var _ domain.OutboxPublisher = (*LogPublisher)(nil)
