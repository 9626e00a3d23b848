package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the record module. Construct once per
// process; promauto registers against the default registry.
type Metrics struct {
	RecordsCreated    prometheus.Counter
	RecordsArchived   prometheus.Counter
	AccessDenied      *prometheus.CounterVec
	CreateDuration    prometheus.Histogram
	UpdateDuration    prometheus.Histogram
	ListDuration      prometheus.Histogram
}

// New creates a Metrics instance with all record module metrics registered.
func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recordvault_records_created_total",
			Help: "Total number of records created",
		}),
		RecordsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recordvault_records_archived_total",
			Help: "Total number of records archived by the lifecycle scheduler",
		}),
		AccessDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recordvault_access_denied_total",
			Help: "Policy denials by operation kind",
		}, []string{"operation"}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recordvault_create_duration_seconds",
			Help:    "Duration of record create operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recordvault_update_duration_seconds",
			Help:    "Duration of record update operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recordvault_list_duration_seconds",
			Help:    "Duration of record list operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCreated records a successful record creation.
func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.RecordsCreated.Inc()
}

// IncrementArchived records a scheduler archival.
func (m *Metrics) IncrementArchived() {
	if m == nil {
		return
	}
	m.RecordsArchived.Inc()
}

// IncrementDenied records a policy denial for an operation kind.
func (m *Metrics) IncrementDenied(operation string) {
	if m == nil {
		return
	}
	m.AccessDenied.WithLabelValues(operation).Inc()
}

// ObserveCreate records the duration of a create. Call with time.Now() taken
// at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	if m == nil {
		return
	}
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveUpdate records the duration of an update.
func (m *Metrics) ObserveUpdate(start time.Time) {
	if m == nil {
		return
	}
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}

// ObserveList records the duration of a list.
func (m *Metrics) ObserveList(start time.Time) {
	if m == nil {
		return
	}
	m.ListDuration.Observe(time.Since(start).Seconds())
}
