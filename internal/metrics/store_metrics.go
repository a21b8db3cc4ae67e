package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// Результаты операций хранилища для label outcome.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// StoreMetrics содержит метрики слоя доступа к данным.
// Nil-значение допустимо: все методы становятся no-op.
type StoreMetrics struct {
	// Операции репозиториев
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Доменные события
	defaultSwitches    prometheus.Counter
	statusTransitions  *prometheus.CounterVec
	ordersCreated      prometheus.Counter
	orderNumberRetries prometheus.Counter

	// Кэш настроек
	settingsLookups *prometheus.CounterVec
}

// NewStoreMetrics создаёт метрики в DefaultRegisterer.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer создаёт метрики в заданном registerer (для тестов - отдельный Registry).
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "printshop_store_operations_total",
			Help: "Total number of data-access operations by outcome",
		}, []string{"component", "operation", "outcome"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "printshop_store_operation_duration_seconds",
			Help:    "Duration of data-access operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"component", "operation"}),
		defaultSwitches: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_address_default_switches_total",
			Help: "Total number of default address switches",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "printshop_order_status_transitions_total",
			Help: "Total number of order status transitions by kind and target value",
		}, []string{"kind", "to"}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_orders_created_total",
			Help: "Total number of orders created",
		}),
		orderNumberRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "printshop_order_number_retries_total",
			Help: "Total number of order number regenerations after a uniqueness conflict",
		}),
		settingsLookups: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "printshop_settings_cache_lookups_total",
			Help: "Total number of settings cache lookups by result",
		}, []string{"result"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// Outcome классифицирует ошибку операции для label outcome.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case domain.IsNotFound(err), errors.Is(err, domain.ErrAddressNotOwned):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrOrderNumberConflict), errors.Is(err, domain.ErrSlugConflict):
		return OutcomeConflict
	case domain.IsStoreError(err):
		return OutcomeError
	default:
		return OutcomeInvalid
	}
}

// ObserveOperation фиксирует результат и длительность операции.
func (m *StoreMetrics) ObserveOperation(component, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(component, operation, Outcome(err)).Inc()
	m.operationDuration.WithLabelValues(component, operation).Observe(time.Since(started).Seconds())
}

// RecordDefaultSwitch увеличивает счётчик смен адреса по умолчанию.
func (m *StoreMetrics) RecordDefaultSwitch() {
	if m == nil {
		return
	}
	m.defaultSwitches.Inc()
}

// RecordStatusTransition фиксирует переход статуса (kind: order|payment|tracking).
func (m *StoreMetrics) RecordStatusTransition(kind, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(kind, to).Inc()
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *StoreMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderNumberRetry увеличивает счётчик повторных генераций номера заказа.
func (m *StoreMetrics) RecordOrderNumberRetry() {
	if m == nil {
		return
	}
	m.orderNumberRetries.Inc()
}

// RecordSettingsLookup фиксирует попадание или промах кэша настроек.
func (m *StoreMetrics) RecordSettingsLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.settingsLookups.WithLabelValues(result).Inc()
}
