package insight

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for insight generation.
type Metrics struct {
	// GenerationsTotal counts Generate calls.
	// Labels: engine (rule-based, remote, none), outcome (success, fallback, error)
	GenerationsTotal *prometheus.CounterVec

	// RemoteFailuresTotal counts failed remote calls.
	// Labels: reason (credential_missing, transport, status, malformed)
	RemoteFailuresTotal *prometheus.CounterVec

	// RemoteDuration tracks remote call latency including retries.
	RemoteDuration prometheus.Histogram
}

// NewMetrics returns the insight metrics, registering them with the default
// registry on first use. Later calls return the same instance.
//
// Metrics:
//   - weekpulse_insight_generations_total{engine,outcome}
//   - weekpulse_insight_remote_failures_total{reason}
//   - weekpulse_insight_remote_duration_seconds
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			GenerationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "weekpulse",
					Subsystem: "insight",
					Name:      "generations_total",
					Help:      "Total number of insight generations by engine and outcome",
				},
				[]string{"engine", "outcome"},
			),
			RemoteFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "weekpulse",
					Subsystem: "insight",
					Name:      "remote_failures_total",
					Help:      "Total number of failed remote insight calls by reason",
				},
				[]string{"reason"},
			),
			RemoteDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "weekpulse",
					Subsystem: "insight",
					Name:      "remote_duration_seconds",
					Help:      "Duration of remote insight calls in seconds",
					Buckets:   prometheus.DefBuckets,
				},
			),
		}
	})
	return globalMetrics
}
