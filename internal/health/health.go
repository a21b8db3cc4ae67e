// Package health отдаёт состояние хранилища и outbox для /healthz и /readyz.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// Status представляет статус компонента
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const defaultCheckTimeout = 2 * time.Second

// Check представляет проверку здоровья компонента
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response представляет ответ health check
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler обрабатывает health check запросы
type Handler struct {
	mu           sync.RWMutex
	checkers     map[string]Checker
	version      string
	startTime    time.Time
	checkTimeout time.Duration
}

// NewHandler создаёт новый health handler
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:     make(map[string]Checker),
		version:      version,
		startTime:    time.Now(),
		checkTimeout: defaultCheckTimeout,
	}
}

// RegisterChecker регистрирует проверку компонента
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) runChecks(ctx context.Context) (map[string]Check, Status) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]Check, len(names))
	overall := StatusHealthy
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
		check := checkers[name].Check(checkCtx)
		cancel()
		checks[name] = check

		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}
	return checks, overall
}

// ServeHTTP обрабатывает HTTP запрос
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks, overall := h.runChecks(r.Context())

	response := Response{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler простой liveness probe (всегда возвращает 200)
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler возвращает 503, если хотя бы одна проверка unhealthy.
// Degraded не снимает сервис с балансировки.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if _, overall := h.runChecks(r.Context()); overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// FuncChecker - проверка на основе функции: ошибка означает unhealthy.
type FuncChecker struct {
	name    string
	checkFn func(ctx context.Context) error
}

// NewFuncChecker создаёт проверку из функции, например pgxpool.Pool.Ping.
func NewFuncChecker(name string, checkFn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, checkFn: checkFn}
}

// Check выполняет проверку
func (c *FuncChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.checkFn(ctx)
	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// OutboxStatsSource отдаёт состояние backlog outbox.
type OutboxStatsSource interface {
	Backlog(ctx context.Context) (domain.OutboxStats, error)
}

// OutboxChecker помечает сервис degraded, если старейшее неотправленное
// событие ждёт дольше maxAge. Ошибка чтения статистики - unhealthy.
type OutboxChecker struct {
	source OutboxStatsSource
	maxAge time.Duration
	now    func() time.Time
}

// NewOutboxChecker создаёт проверку backlog outbox.
func NewOutboxChecker(source OutboxStatsSource, maxAge time.Duration) *OutboxChecker {
	return &OutboxChecker{source: source, maxAge: maxAge, now: time.Now}
}

func (c *OutboxChecker) Check(ctx context.Context) Check {
	start := time.Now()
	stats, err := c.source.Backlog(ctx)
	check := Check{
		Name:       "outbox",
		Status:     StatusHealthy,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
		return check
	}
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		return check
	}

	age := c.now().Sub(stats.OldestPendingAt)
	check.Message = fmt.Sprintf("%d pending, oldest %s", stats.PendingCount, age.Truncate(time.Second))
	if c.maxAge > 0 && age > c.maxAge {
		check.Status = StatusDegraded
	}
	return check
}
