package kafka

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// ErrBreakerOpen возвращается, пока breaker разомкнут.
var ErrBreakerOpen = gobreaker.ErrOpenState

// BreakerConfig - параметры circuit breaker вокруг паблишера.
type BreakerConfig struct {
	Name string
	// MaxRequests - число пробных запросов в half-open.
	MaxRequests uint32
	// Interval - период сброса счётчиков в closed; 0 - не сбрасывать.
	Interval time.Duration
	// Timeout - сколько breaker остаётся open перед half-open.
	Timeout time.Duration
	// FailureRatio и MinRequests определяют условие размыкания.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig возвращает значения по умолчанию.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// BreakerPublisher защищает паблишер circuit breaker'ом: при недоступном брокере
// outbox worker быстро получает ошибку, а сообщения остаются в backlog.
type BreakerPublisher struct {
	next    domain.OutboxPublisher
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *log.Entry
}

// NewBreakerPublisher оборачивает паблишер. registerer может быть nil.
func NewBreakerPublisher(next domain.OutboxPublisher, cfg BreakerConfig, registerer prometheus.Registerer) *BreakerPublisher {
	logger := log.WithFields(log.Fields{"component": "kafka-breaker", "breaker": cfg.Name})
	state := breakerStateGauge(registerer)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"from": from.String(),
				"to":   to.String(),
			}).Warn("circuit breaker state change")
			if state != nil {
				state.WithLabelValues(name).Set(stateToFloat(to))
			}
		},
	}
	if state != nil {
		state.WithLabelValues(cfg.Name).Set(stateToFloat(gobreaker.StateClosed))
	}

	return &BreakerPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:  logger,
	}
}

func (b *BreakerPublisher) Publish(event domain.OutboxMessage) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Publish(event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.WithField("outbox_id", event.ID).Debug("publish rejected by circuit breaker")
	}
	return err
}

// State возвращает текущее состояние breaker.
func (b *BreakerPublisher) State() gobreaker.State {
	return b.breaker.State()
}

func breakerStateGauge(registerer prometheus.Registerer) *prometheus.GaugeVec {
	if registerer == nil {
		return nil
	}
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "printshop_kafka_breaker_state",
		Help: "Current state of the Kafka publisher circuit breaker (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})
	if err := registerer.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing
			}
		}
		return nil
	}
	return gauge
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

var _ domain.OutboxPublisher = (*BreakerPublisher)(nil)
