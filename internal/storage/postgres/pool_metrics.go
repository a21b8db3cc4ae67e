package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector экспортирует статистику pgxpool в Prometheus.
type PoolStatsCollector struct {
	pool *pgxpool.Pool

	acquiredConns    *prometheus.Desc
	idleConns        *prometheus.Desc
	totalConns       *prometheus.Desc
	maxConns         *prometheus.Desc
	acquireCount     *prometheus.Desc
	acquireDuration  *prometheus.Desc
	emptyAcquires    *prometheus.Desc
	canceledAcquires *prometheus.Desc
}

// NewPoolStatsCollector создаёт коллектор для пула хранилища.
func NewPoolStatsCollector(pool *pgxpool.Pool) *PoolStatsCollector {
	return &PoolStatsCollector{
		pool:             pool,
		acquiredConns:    prometheus.NewDesc("printshop_db_pool_acquired_connections", "Number of currently acquired connections.", nil, nil),
		idleConns:        prometheus.NewDesc("printshop_db_pool_idle_connections", "Number of currently idle connections.", nil, nil),
		totalConns:       prometheus.NewDesc("printshop_db_pool_total_connections", "Total number of connections in the pool.", nil, nil),
		maxConns:         prometheus.NewDesc("printshop_db_pool_max_connections", "Maximum number of connections allowed.", nil, nil),
		acquireCount:     prometheus.NewDesc("printshop_db_pool_acquire_count_total", "Total number of connection acquires.", nil, nil),
		acquireDuration:  prometheus.NewDesc("printshop_db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections.", nil, nil),
		emptyAcquires:    prometheus.NewDesc("printshop_db_pool_empty_acquire_count_total", "Acquires that had to wait for a connection.", nil, nil),
		canceledAcquires: prometheus.NewDesc("printshop_db_pool_canceled_acquire_count_total", "Acquires canceled by context.", nil, nil),
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.acquireCount
	ch <- c.acquireDuration
	ch <- c.emptyAcquires
	ch <- c.canceledAcquires
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()

	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(stat.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, stat.AcquireDuration().Seconds())
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.canceledAcquires, prometheus.CounterValue, float64(stat.CanceledAcquireCount()))
}

var _ prometheus.Collector = (*PoolStatsCollector)(nil)
