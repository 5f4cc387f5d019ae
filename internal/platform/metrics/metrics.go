package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TokenCacheHits       prometheus.Counter
	TokenCacheMisses     prometheus.Counter
	VerifyDurationMs     prometheus.Histogram
	AnalyticsDurationMs  prometheus.Histogram
	EventsTracked        prometheus.Counter
	UsersRegistered      prometheus.Counter
	AuditPublishFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TokenCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pulse_token_cache_hits_total",
			Help: "Total number of credential cache hits",
		}),
		TokenCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pulse_token_cache_misses_total",
			Help: "Total number of credential cache misses",
		}),
		VerifyDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_token_verify_duration_ms",
			Help:    "Latency of credential verification in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		}),
		AnalyticsDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_analytics_query_duration_ms",
			Help:    "Latency of analytics aggregation in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		EventsTracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pulse_feature_events_tracked_total",
			Help: "Total number of feature events recorded",
		}),
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pulse_users_registered_total",
			Help: "Total number of users registered through this service",
		}),
		AuditPublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pulse_audit_publish_failures_total",
			Help: "Total number of audit events that failed to publish",
		}),
	}
}
