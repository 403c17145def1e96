package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Safety engine metrics
	SafetyEvaluations    prometheus.Counter
	NotificationsEmitted *prometheus.CounterVec
	OverridesRecorded    prometheus.Counter
	DismissalsRecorded   prometheus.Counter

	// AI collaborator metrics
	AIClassifications      prometheus.Counter
	AIClassificationErrors prometheus.Counter
	AIStaleResponses       prometheus.Counter
	AILatency              prometheus.Histogram

	// Persistence metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SafetyEvaluations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_evaluations_total",
			Help:      "Total number of safety rule evaluation passes",
		}),
		NotificationsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_notifications_emitted_total",
			Help:      "Safety notifications emitted, by type",
		}, []string{"type"}),
		OverridesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_overrides_recorded_total",
			Help:      "Override decisions recorded in the audit log",
		}),
		DismissalsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_dismissals_recorded_total",
			Help:      "Notifications dismissed without audit",
		}),
		AIClassifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_classifications_total",
			Help:      "Completed AI classification calls",
		}),
		AIClassificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_classification_errors_total",
			Help:      "Failed AI classification calls",
		}),
		AIStaleResponses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_stale_responses_total",
			Help:      "AI responses discarded because a newer request superseded them",
		}),
		AILatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_classification_duration_seconds",
			Help:      "Time spent waiting on the AI classification service",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Database operations, by entity and operation",
		}, []string{"entity", "operation"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Database operation latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"entity", "operation"}),
	}
}
