package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the archival scheduler. Nil-safe like the record metrics so
// tests can run without a registry.
type Metrics struct {
	Ticks        prometheus.Counter
	TickFailures prometheus.Counter
	TickDuration prometheus.Histogram
	SkippedLocks prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Ticks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recordvault_scheduler_ticks_total",
			Help: "Total archival ticks executed",
		}),
		TickFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recordvault_scheduler_tick_failures_total",
			Help: "Archival ticks abandoned due to errors",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recordvault_scheduler_tick_duration_seconds",
			Help:    "Duration of archival ticks",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		SkippedLocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recordvault_scheduler_skipped_locks_total",
			Help: "Ticks skipped because another instance held the run lock",
		}),
	}
}

func (m *Metrics) IncrementTicks() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

func (m *Metrics) IncrementFailures() {
	if m == nil {
		return
	}
	m.TickFailures.Inc()
}

func (m *Metrics) IncrementSkipped() {
	if m == nil {
		return
	}
	m.SkippedLocks.Inc()
}

func (m *Metrics) ObserveTick(start time.Time) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(time.Since(start).Seconds())
}
