package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the visit module.
// Tracks lifecycle transition counts, geofence gate outcomes, and
// transition latencies on the field-officer critical path.
type Metrics struct {
	VisitsScheduled        prometheus.Counter
	VisitsStarted          prometheus.Counter
	VisitsCompleted        prometheus.Counter
	VisitsCancelled        prometheus.Counter
	GeofenceRejections     prometheus.Counter
	GeofenceOverrides      prometheus.Counter
	ReconciliationFailures prometheus.Counter
	TransitionDuration     *prometheus.HistogramVec
	RiskScores             prometheus.Histogram
}

// New creates a new Metrics instance with all visit module metrics registered.
func New() *Metrics {
	return &Metrics{
		VisitsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_visits_scheduled_total",
			Help: "Total number of visits scheduled",
		}),
		VisitsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_visits_started_total",
			Help: "Total number of visits started (geofence pass or override)",
		}),
		VisitsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_visits_completed_total",
			Help: "Total number of visits completed with a scored assessment",
		}),
		VisitsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_visits_cancelled_total",
			Help: "Total number of visits cancelled, including exception outcomes",
		}),
		GeofenceRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_geofence_rejections_total",
			Help: "Total number of start attempts rejected by the geofence gate",
		}),
		GeofenceOverrides: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_geofence_overrides_total",
			Help: "Total number of audited geofence overrides (force starts)",
		}),
		ReconciliationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_reconciliation_failures_total",
			Help: "Total number of deceased-report compensations that could not be applied",
		}),
		TransitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigil_visit_transition_duration_seconds",
			Help:    "Duration of visit lifecycle transitions (field-officer critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		RiskScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vigil_risk_scores",
			Help:    "Distribution of risk scores attached at completion",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
}

// ObserveTransition records the duration of a lifecycle transition.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(operation string, start time.Time) {
	m.TransitionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveRiskScore records the score attached by a completion.
func (m *Metrics) ObserveRiskScore(score int) {
	m.RiskScores.Observe(float64(score))
}
