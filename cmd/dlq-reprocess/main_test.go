package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/messaging/kafka"
)

type fakeOffsetClient struct {
	partitions []int32
	oldest     map[int32]int64
	newest     map[int32]int64
	err        error
}

func (f *fakeOffsetClient) GetOffset(_ string, partition int32, at int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if at == sarama.OffsetOldest {
		return f.oldest[partition], nil
	}
	return f.newest[partition], nil
}

func (f *fakeOffsetClient) Partitions(string) ([]int32, error) { return f.partitions, f.err }
func (f *fakeOffsetClient) Close() error                       { return nil }

type fakePartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (f *fakePartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return f.messages }
func (f *fakePartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return f.errors }
func (f *fakePartitionConsumer) Close() error                             { return nil }

type fakeConsumerSource struct {
	byPartition map[int32][]*sarama.ConsumerMessage
	offsets     map[int32]int64
}

func (f *fakeConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	if f.offsets == nil {
		f.offsets = make(map[int32]int64)
	}
	f.offsets[partition] = offset

	pc := &fakePartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage, len(f.byPartition[partition])),
		errors:   make(chan *sarama.ConsumerError),
	}
	for _, msg := range f.byPartition[partition] {
		if msg.Offset >= offset {
			pc.messages <- msg
		}
	}
	return pc, nil
}

func (f *fakeConsumerSource) Close() error { return nil }

type published struct {
	topic string
	event domain.OutboxMessage
}

func dlqMessage(t *testing.T, partition int32, offset int64, orderID string, withHeader bool) *sarama.ConsumerMessage {
	t.Helper()

	record, err := json.Marshal(map[string]any{
		"outbox_id":      "evt-" + orderID,
		"aggregate_type": "order",
		"aggregate_id":   orderID,
		"event_type":     "order.status_changed",
		"payload":        map[string]any{"order_id": orderID, "status": "shipped"},
		"publish_error":  "kafka: circuit breaker is open",
	})
	require.NoError(t, err)

	envelope := kafka.NewEnvelope(domain.OutboxMessage{
		ID:            "evt-" + orderID,
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     "order.status_changed",
		Payload:       record,
	}, time.Now())
	value, err := json.Marshal(envelope)
	require.NoError(t, err)

	msg := &sarama.ConsumerMessage{Partition: partition, Offset: offset, Value: value}
	if withHeader {
		msg.Headers = []*sarama.RecordHeader{{Key: []byte(kafka.HeaderOriginalTopic), Value: []byte("printshop.order.events.v2")}}
	}
	return msg
}

func TestExtractReplayMessage(t *testing.T) {
	got, err := extractReplayMessage(dlqMessage(t, 0, 0, "42", false), kafka.TopicOrderEvents)
	require.NoError(t, err)

	assert.Equal(t, kafka.TopicOrderEvents, got.topic)
	assert.Equal(t, "evt-42", got.event.ID)
	assert.Equal(t, "42", got.event.AggregateID)
	assert.Equal(t, "order.status_changed", got.event.EventType)
	assert.JSONEq(t, `{"order_id":"42","status":"shipped"}`, string(got.event.Payload))

	withHeader, err := extractReplayMessage(dlqMessage(t, 0, 0, "43", true), kafka.TopicOrderEvents)
	require.NoError(t, err)
	assert.Equal(t, "printshop.order.events.v2", withHeader.topic)
}

func TestExtractReplayMessage_Invalid(t *testing.T) {
	_, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte("not-json")}, "t")
	assert.Error(t, err)

	noPayload, err := json.Marshal(kafka.NewEnvelope(domain.OutboxMessage{ID: "evt-1", Payload: []byte(`{"outbox_id":"evt-1"}`)}, time.Now()))
	require.NoError(t, err)
	_, err = extractReplayMessage(&sarama.ConsumerMessage{Value: noPayload}, "t")
	assert.ErrorContains(t, err, "original event payload")
}

func TestRunReplay_Execute(t *testing.T) {
	client := &fakeOffsetClient{
		partitions: []int32{1, 0},
		oldest:     map[int32]int64{0: 0, 1: 0},
		newest:     map[int32]int64{0: 2, 1: 1},
	}
	consumer := &fakeConsumerSource{byPartition: map[int32][]*sarama.ConsumerMessage{
		0: {dlqMessage(t, 0, 0, "1", false), {Partition: 0, Offset: 1, Value: []byte("garbage")}},
		1: {dlqMessage(t, 1, 0, "2", true)},
	}}

	var sent []published
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, targetTopic: kafka.TopicOrderEvents, limit: 10, execute: true, idleTimeout: time.Second}
	stats, err := runReplay(context.Background(), cfg, client, consumer, func(topic string, event domain.OutboxMessage) error {
		sent = append(sent, published{topic: topic, event: event})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, replayStats{processed: 3, replayed: 2, skipped: 1}, stats)
	require.Len(t, sent, 2)
	assert.Equal(t, kafka.TopicOrderEvents, sent[0].topic)
	assert.Equal(t, "1", sent[0].event.AggregateID)
	assert.Equal(t, "printshop.order.events.v2", sent[1].topic)
}

func TestRunReplay_DryRunRespectsLimitAndFromNewest(t *testing.T) {
	client := &fakeOffsetClient{
		partitions: []int32{0},
		oldest:     map[int32]int64{0: 0},
		newest:     map[int32]int64{0: 3},
	}
	consumer := &fakeConsumerSource{byPartition: map[int32][]*sarama.ConsumerMessage{
		0: {dlqMessage(t, 0, 0, "1", false), dlqMessage(t, 0, 1, "2", false), dlqMessage(t, 0, 2, "3", false)},
	}}

	cfg := config{sourceTopic: "dlq", targetTopic: "events", limit: 2, fromNewest: true, idleTimeout: time.Second}
	stats, err := runReplay(context.Background(), cfg, client, consumer, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), consumer.offsets[0])
	assert.Equal(t, 2, stats.processed)
	assert.Equal(t, 2, stats.replayed)
}

func TestRunReplay_Errors(t *testing.T) {
	cfg := config{sourceTopic: "dlq", targetTopic: "events", limit: 1, execute: true, idleTimeout: time.Second}

	_, err := runReplay(context.Background(), cfg, nil, nil, nil)
	assert.ErrorContains(t, err, "client and consumer are required")

	_, err = runReplay(context.Background(), cfg, &fakeOffsetClient{}, &fakeConsumerSource{}, nil)
	assert.ErrorContains(t, err, "publisher is required")

	boom := errors.New("broker down")
	_, err = runReplay(context.Background(), cfg, &fakeOffsetClient{err: boom}, &fakeConsumerSource{}, func(string, domain.OutboxMessage) error { return nil })
	assert.ErrorIs(t, err, boom)

	client := &fakeOffsetClient{partitions: []int32{0}, oldest: map[int32]int64{0: 0}, newest: map[int32]int64{0: 1}}
	consumer := &fakeConsumerSource{byPartition: map[int32][]*sarama.ConsumerMessage{0: {dlqMessage(t, 0, 0, "1", false)}}}
	_, err = runReplay(context.Background(), cfg, client, consumer, func(string, domain.OutboxMessage) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRunReplay_IdleTimeout(t *testing.T) {
	client := &fakeOffsetClient{partitions: []int32{0}, oldest: map[int32]int64{0: 0}, newest: map[int32]int64{0: 5}}
	consumer := &fakeConsumerSource{byPartition: map[int32][]*sarama.ConsumerMessage{0: {dlqMessage(t, 0, 0, "1", false)}}}

	cfg := config{sourceTopic: "dlq", targetTopic: "events", limit: 10, idleTimeout: 20 * time.Millisecond}
	stats, err := runReplay(context.Background(), cfg, client, consumer, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.replayed)
}

func TestReadConfig(t *testing.T) {
	env := func(key string) string {
		if key == envKafkaBrokers {
			return " kafka-1:9092, ,kafka-2:9092 "
		}
		return ""
	}

	cfg, err := readConfig([]string{"-limit", "5", "-execute"}, env)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.brokers)
	assert.Equal(t, kafka.TopicDeadLetterQueue, cfg.sourceTopic)
	assert.Equal(t, kafka.TopicOrderEvents, cfg.targetTopic)
	assert.Equal(t, 5, cfg.limit)
	assert.True(t, cfg.execute)

	noEnv := func(string) string { return "" }
	for _, args := range [][]string{
		{},
		{"-brokers", "k:9092", "-limit", "0"},
		{"-brokers", "k:9092", "-idle-timeout", "0s"},
		{"-brokers", "k:9092", "-source-topic", " "},
	} {
		_, err := readConfig(args, noEnv)
		assert.Error(t, err, "args %v", args)
	}
}
