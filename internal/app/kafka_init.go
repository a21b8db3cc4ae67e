package app

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/printshop/internal/service/outbox"
)

// eventPublishers - паблишеры outbox worker.
type eventPublishers struct {
	events   domain.OutboxPublisher
	dlq      domain.OutboxPublisher
	producer *kafka.Producer
}

// initPublishers создаёт Kafka-паблишеры, если брокеры заданы. Без Kafka
// (или если producer не создался) события пишутся в лог.
func initPublishers(cfg Config, logger *log.Entry, registerer prometheus.Registerer) eventPublishers {
	fallback := eventPublishers{events: outbox.NewLogPublisher(logger.WithField("component", "outbox-log-publisher"))}
	if !cfg.KafkaEnabled() {
		return fallback
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaClientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return fallback
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

	events := kafka.NewBreakerPublisher(
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		kafka.DefaultBreakerConfig("order-events"),
		registerer,
	)
	return eventPublishers{
		events:   events,
		dlq:      kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic, cfg.KafkaTopic),
		producer: producer,
	}
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
