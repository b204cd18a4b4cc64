package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegistryMetrics holds all Prometheus metrics for the provisioning engine.
type RegistryMetrics struct {
	ProvisionsTotal  *prometheus.CounterVec
	ProvisionSeconds prometheus.Histogram
	SweepRunsTotal   prometheus.Counter
	SweepSuspended   prometheus.Counter
	EventsPublished  *prometheus.CounterVec
	PlanCacheHits    prometheus.Counter
	PlanCacheMisses  prometheus.Counter
}

// NewRegistryMetrics initializes and registers the Prometheus metrics.
func NewRegistryMetrics() *RegistryMetrics {
	return &RegistryMetrics{
		ProvisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "provision",
			Name:      "requests_total",
			Help:      "Total number of provisioning requests by outcome.",
		}, []string{"outcome"}), // outcome: success, validation_error, conflict, infra_error, schema_error
		ProvisionSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campuscore",
			Subsystem: "provision",
			Name:      "duration_seconds",
			Help:      "End-to-end provisioning duration.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SweepRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "sweeper",
			Name:      "runs_total",
			Help:      "Total number of lifecycle sweep executions.",
		}),
		SweepSuspended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "sweeper",
			Name:      "suspended_total",
			Help:      "Total number of schools suspended by the sweeper.",
		}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of lifecycle events published by status.",
		}, []string{"status"}), // status: ok, error
		PlanCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "plans",
			Name:      "cache_hits_total",
			Help:      "Total number of plan cache hits.",
		}),
		PlanCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campuscore",
			Subsystem: "plans",
			Name:      "cache_misses_total",
			Help:      "Total number of plan cache misses.",
		}),
	}
}
