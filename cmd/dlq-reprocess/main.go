package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "PRINTSHOP_KAFKA_BROKERS"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// dlqRecord - полезная нагрузка, которую outbox worker кладёт в DLQ.
type dlqRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

type replayMessage struct {
	topic string
	event domain.OutboxMessage
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

// publishFunc отправляет восстановленное событие в topic.
type publishFunc func(topic string, event domain.OutboxMessage) error

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

// topicPublishers переиспользует outbox-паблишеры сервиса, по одному на topic.
func topicPublishers(producer *kafka.Producer) publishFunc {
	publishers := make(map[string]*kafka.OutboxTopicPublisher)
	return func(topic string, event domain.OutboxMessage) error {
		p, ok := publishers[topic]
		if !ok {
			p = kafka.NewOutboxPublisher(producer, topic)
			publishers[topic] = p
		}
		return p.Publish(event)
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig(args []string, getenv func(string) string) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "target topic when the message has no original topic header")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv(envKafkaBrokers)
	}
	cfg.brokers = parseBrokers(brokersRaw)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or %s)", envKafkaBrokers)
	case strings.TrimSpace(cfg.sourceTopic) == "":
		return config{}, errors.New("source-topic is required")
	case strings.TrimSpace(cfg.targetTopic) == "":
		return config{}, errors.New("target-topic is required")
	case cfg.limit <= 0:
		return config{}, errors.New("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, errors.New("idle-timeout must be > 0")
	}
	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"limit":        cfg.limit,
		"execute":      cfg.execute,
		"from_newest":  cfg.fromNewest,
	}).Info("starting dlq replay")

	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true
	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}
	defer func() { _ = client.Close() }()

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}
	defer func() { _ = consumer.Close() }()

	var publish publishFunc
	if cfg.execute {
		producer, err := kafka.NewProducer(cfg.brokers, "printshop-dlq-reprocess")
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()
		publish = topicPublishers(producer)
	}

	_, err = runReplay(ctx, cfg, client, consumer, publish)
	return err
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func runReplay(ctx context.Context, cfg config, client offsetClient, consumer partitionConsumerSource, publish publishFunc) (replayStats, error) {
	var total replayStats
	if client == nil || consumer == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && publish == nil {
		return total, errors.New("publisher is required in execute mode")
	}

	partitions, err := client.Partitions(cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", cfg.sourceTopic).Warn("source topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}
		stats, err := processPartition(ctx, consumer, client, publish, cfg, partition, cfg.limit-total.processed)
		total.processed += stats.processed
		total.replayed += stats.replayed
		total.skipped += stats.skipped
		if err != nil {
			return total, err
		}
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
	}).Info("dlq replay finished")

	return total, nil
}

func processPartition(
	ctx context.Context,
	consumer partitionConsumerSource,
	client offsetClient,
	publish publishFunc,
	cfg config,
	partition int32,
	limit int,
) (replayStats, error) {
	var stats replayStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	startOffset := oldest
	if cfg.fromNewest {
		startOffset = max(newest-int64(limit), oldest)
	}

	pc, err := consumer.ConsumePartition(cfg.sourceTopic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(cfg.idleTimeout)
	defer idleTimer.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case consumerErr := <-pc.Errors():
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			idleTimer.Reset(cfg.idleTimeout)
			stats.processed++

			replayed, err := replayOne(msg, cfg, publish)
			if err != nil {
				return stats, err
			}
			if replayed {
				stats.replayed++
			} else {
				stats.skipped++
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}
	return stats, nil
}

// replayOne публикует (или в dry-run только логирует) одно DLQ-сообщение.
// Нераспознанные сообщения пропускаются без ошибки.
func replayOne(msg *sarama.ConsumerMessage, cfg config, publish publishFunc) (bool, error) {
	replay, err := extractReplayMessage(msg, cfg.targetTopic)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skip unsupported dlq message")
		return false, nil
	}

	if !cfg.execute {
		log.WithFields(log.Fields{
			"partition":    msg.Partition,
			"offset":       msg.Offset,
			"target_topic": replay.topic,
			"outbox_id":    replay.event.ID,
			"event_type":   replay.event.EventType,
		}).Info("dlq replay candidate")
		return true, nil
	}
	if err := publish(replay.topic, replay.event); err != nil {
		return false, fmt.Errorf("publish replay message: %w", err)
	}
	return true, nil
}

// extractReplayMessage восстанавливает исходное outbox-событие из DLQ-конверта.
// Topic берётся из заголовка x-original-topic, иначе используется defaultTopic.
func extractReplayMessage(msg *sarama.ConsumerMessage, defaultTopic string) (replayMessage, error) {
	var envelope kafka.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return replayMessage{}, fmt.Errorf("decode dlq envelope: %w", err)
	}

	var record dlqRecord
	if err := json.Unmarshal(envelope.Payload, &record); err != nil {
		return replayMessage{}, fmt.Errorf("decode dlq record: %w", err)
	}
	if len(record.Payload) == 0 {
		return replayMessage{}, errors.New("dlq record does not contain original event payload")
	}

	topic := defaultTopic
	for _, header := range msg.Headers {
		if header != nil && string(header.Key) == kafka.HeaderOriginalTopic && len(header.Value) > 0 {
			topic = string(header.Value)
		}
	}

	return replayMessage{
		topic: topic,
		event: domain.OutboxMessage{
			ID:            firstNonEmpty(record.OutboxID, envelope.ID),
			AggregateType: firstNonEmpty(record.AggregateType, envelope.AggregateType),
			AggregateID:   firstNonEmpty(record.AggregateID, envelope.AggregateID),
			EventType:     firstNonEmpty(record.EventType, envelope.EventType),
			Payload:       []byte(record.Payload),
		},
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
