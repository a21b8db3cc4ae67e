package kafka

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Producer - синхронный Kafka producer для событий заказов и DLQ.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
	now    func() time.Time
}

// NewProducer подключается к брокерам. Producer идемпотентен и ждёт подтверждения всех ISR,
// поэтому повтор после таймаута не дублирует сообщение в партиции.
func NewProducer(brokers []string, clientID string) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, producerConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducer(sp), nil
}

func producerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	// Идемпотентный producer требует не больше одного запроса в полёте.
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func newProducer(sp sarama.SyncProducer) *Producer {
	return &Producer{
		sync:   sp,
		logger: log.WithField("component", "kafka-producer"),
		now:    time.Now,
	}
}

// PublishEvent кодирует event в JSON и синхронно отправляет его в topic с ключом key.
func (p *Producer) PublishEvent(topic, key string, event any, headers map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event for %s: %w", topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(body),
		Headers:   recordHeaders(headers),
		Timestamp: p.now(),
	}

	fields := log.Fields{"topic": topic, "key": key}
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", topic, err)
	}

	fields["partition"], fields["offset"] = partition, offset
	p.logger.WithFields(fields).Debug("kafka message sent")
	return nil
}

// recordHeaders упорядочивает заголовки по ключу, чтобы сообщения были воспроизводимы.
func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}
	return out
}

// Close закрывает producer, дожидаясь отправки буфера.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
