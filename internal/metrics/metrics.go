// Package metrics records choice resolutions in Prometheus
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "choices"

// Metrics implements choice.Observer
type Metrics struct {
	Resolutions  *prometheus.CounterVec
	SoftFailures *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Resolutions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Total number of parameter operations by outcome",
			},
			[]string{"operation", "outcome"}, // outcome: ok/degraded/error
		),
		SoftFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "soft_failures_total",
				Help:      "Sources that failed and were replaced by an empty result",
			},
			[]string{"component"}, // source/repository/tabular
		),
		Duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Latency of parameter operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// ObserveResolution counts one operation and records its latency
func (m *Metrics) ObserveResolution(operation, outcome string, elapsed time.Duration) {
	m.Resolutions.WithLabelValues(operation, outcome).Inc()
	m.Duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveSoftFailure counts one degraded source
func (m *Metrics) ObserveSoftFailure(component string) {
	m.SoftFailures.WithLabelValues(component).Inc()
}
