package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond

	maxBackoffShift = 30
)

// Результаты публикации для printshop_outbox_publish_attempts_total.
const (
	resultSent      = "sent"
	resultRetry     = "retry_error"
	resultFailed    = "failed"
	resultDLQFailed = "dlq_failed"
)

var (
	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printshop_outbox_publish_attempts_total",
		Help: "Order event publish attempts by result.",
	}, []string{"result"})
	pendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "printshop_outbox_pending_records",
		Help: "Pending order events in the outbox.",
	})
	oldestPendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "printshop_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending order event.",
	})
)

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт logger воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithDLQPublisher включает отправку в DLQ событий, исчерпавших попытки.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) { w.dlq = publisher }
}

// WithPollInterval задаёт период опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) { w.pollInterval = interval }
}

// WithBatchSize задаёт число событий, забираемых за один цикл.
func WithBatchSize(size int) Option {
	return func(w *Worker) { w.batchSize = size }
}

// WithMaxAttempts задаёт число попыток публикации одного события.
func WithMaxAttempts(attempts int) Option {
	return func(w *Worker) { w.maxAttempts = attempts }
}

// WithRetryBaseDelay задаёт начальную паузу между попытками; каждая следующая вдвое длиннее.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) { w.retryBaseDelay = delay }
}

// Worker переносит события заказов из outbox в брокер.
// Событие помечается sent только после успешной публикации: доставка at-least-once,
// потребители должны быть идемпотентны по outbox_id.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	logger    *log.Entry

	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт воркер; некорректные значения опций заменяются значениями по умолчанию.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, apply := range options {
		apply(w)
	}

	if w.logger == nil {
		w.logger = log.WithField("component", "outbox-worker")
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = defaultMaxAttempts
	}
	if w.retryBaseDelay < 0 {
		w.retryBaseDelay = 0
	}
	return w
}

// Run опрашивает outbox до отмены ctx. Первый цикл выполняется сразу.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker disabled: repository or publisher not configured")
		return
	}

	w.logger.WithFields(log.Fields{
		"poll_interval": w.pollInterval,
		"batch_size":    w.batchSize,
		"dlq":           w.dlq != nil,
	}).Info("outbox worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Backlog возвращает размер и возраст очереди; используется health-проверкой.
func (w *Worker) Backlog(ctx context.Context) (domain.OutboxStats, error) {
	if w.repo == nil {
		return domain.OutboxStats{}, nil
	}
	return w.repo.Stats(ctx)
}

// ProcessOnce выполняет один цикл и возвращает число опубликованных событий.
// Событие, не опубликованное за maxAttempts попыток, уходит в DLQ (если он задан) и помечается failed.
// Отмена ctx прерывает повторы без DLQ: событие остаётся pending.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("pull pending outbox messages")
		return 0
	}

	sent := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		if w.handle(ctx, msg) {
			sent++
		}
	}
	if sent > 0 {
		w.logger.WithField("count", sent).Debug("order events published")
	}
	return sent
}

// handle публикует одно событие и фиксирует результат в outbox.
func (w *Worker) handle(ctx context.Context, msg domain.OutboxMessage) bool {
	entry := w.logger.WithFields(log.Fields{
		"outbox_id":  msg.ID,
		"event_type": msg.EventType,
		"order_id":   msg.AggregateID,
	})

	publishErr := w.deliver(ctx, msg)
	if publishErr == nil {
		if err := w.repo.MarkSent(ctx, msg.ID); err != nil {
			entry.WithError(err).Warn("mark outbox message sent")
		}
		return true
	}

	if ctx.Err() != nil {
		// Остановка посреди повторов: сообщение остаётся pending до следующего запуска.
		entry.WithError(publishErr).Info("order event publish interrupted by shutdown")
		return false
	}

	publishAttempts.WithLabelValues(resultFailed).Inc()
	entry.WithError(publishErr).Error("order event not published, giving up")

	if w.dlq != nil {
		if err := w.dlq.Publish(deadLetterFor(msg, publishErr)); err != nil {
			publishAttempts.WithLabelValues(resultDLQFailed).Inc()
			entry.WithError(err).Warn("publish to dlq")
		}
	}
	if err := w.repo.MarkFailed(ctx, msg.ID); err != nil {
		entry.WithError(err).Warn("mark outbox message failed")
	}
	return false
}

// deliver делает до maxAttempts попыток с экспоненциальной паузой между ними.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = w.publisher.Publish(msg); err == nil {
			publishAttempts.WithLabelValues(resultSent).Inc()
			return nil
		}
		publishAttempts.WithLabelValues(resultRetry).Inc()
		if attempt == w.maxAttempts {
			return fmt.Errorf("publish failed after %d attempts: %w", attempt, err)
		}

		pause := w.retryBackoff(attempt)
		if pause == 0 {
			continue
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// retryBackoff возвращает паузу после попытки attempt: base, 2*base, 4*base...
func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 || attempt < 1 {
		return 0
	}
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	if w.retryBaseDelay > time.Duration(math.MaxInt64>>shift) {
		return time.Duration(math.MaxInt64)
	}
	return w.retryBaseDelay << shift
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("collect outbox backlog stats")
		return
	}

	pendingGauge.Set(float64(stats.PendingCount))
	age := 0.0
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = max(time.Since(stats.OldestPendingAt).Seconds(), 0)
	}
	oldestPendingGauge.Set(age)
}

// deadLetter - тело сообщения в DLQ; cmd/dlq-reprocess разбирает его обратно.
type deadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

func deadLetterFor(msg domain.OutboxMessage, publishErr error) domain.OutboxMessage {
	body, err := json.Marshal(deadLetter{
		OutboxID:       msg.ID,
		AggregateType:  msg.AggregateType,
		AggregateID:    msg.AggregateID,
		EventType:      msg.EventType,
		Payload:        json.RawMessage(msg.Payload),
		PublishError:   publishErr.Error(),
		DLQPublishedAt: time.Now().UTC(),
	})
	if err != nil {
		// Payload - невалидный JSON; в DLQ уходит исходное тело.
		body = msg.Payload
	}

	dead := msg
	dead.Payload = body
	return dead
}
