package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records the outcome of availability reconcile passes.
type ReconcileMetrics struct {
	duration    prometheus.Histogram
	outcomes    *prometheus.CounterVec
	flaggedOpen prometheus.Gauge
}

// ReconcileOutcome labels the per-reservation counters.
type ReconcileOutcome string

const (
	OutcomeFlagged   ReconcileOutcome = "flagged"
	OutcomeResolved  ReconcileOutcome = "resolved"
	OutcomeUnchanged ReconcileOutcome = "unchanged"
	OutcomeSkipped   ReconcileOutcome = "skipped"
	OutcomeFailed    ReconcileOutcome = "failed"
)

// NewReconcileMetrics registers the reconcile metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "availability_reconcile_duration_seconds",
		Help:      "Duration of availability reconcile passes in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_reconcile_reservations_total",
		Help:      "Reservations processed by reconcile passes, by outcome.",
	}, []string{"outcome"})
	flagged := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "availability_flagged_reservations",
		Help:      "Open reservations flagged with conflicts after the last pass.",
	})
	reg.MustRegister(duration, outcomes, flagged)
	return &ReconcileMetrics{
		duration:    duration,
		outcomes:    outcomes,
		flaggedOpen: flagged,
	}
}

// ObserveDuration records how long a pass took.
func (m *ReconcileMetrics) ObserveDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// Add increments the counter for outcome by n.
func (m *ReconcileMetrics) Add(outcome ReconcileOutcome, n int) {
	if m == nil || m.outcomes == nil || n <= 0 {
		return
	}
	m.outcomes.WithLabelValues(string(outcome)).Add(float64(n))
}

// SetFlagged records the number of reservations left in conflict.
func (m *ReconcileMetrics) SetFlagged(n int) {
	if m == nil || m.flaggedOpen == nil {
		return
	}
	m.flaggedOpen.Set(float64(n))
}
