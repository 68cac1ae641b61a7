package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "uiflow"

// Metrics holds the counters and histogram the orchestrator and step
// runner report to; it is constructed once per process and threaded
// through as a dependency rather than referenced as package globals.
type Metrics struct {
	StepsTotal        *prometheus.CounterVec
	AssertionsTotal   *prometheus.CounterVec
	TestCaseDuration  prometheus.Histogram
}

// NewMetrics registers the namespace's collectors against the default
// registry and returns the handles used to record observations.
func NewMetrics() *Metrics {
	return &Metrics{
		StepsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Count of executed actions by pass/fail status.",
		}, []string{"status"}),
		AssertionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "assertions_total",
			Help:      "Count of evaluated assertions by pass/fail status.",
		}, []string{"status"}),
		TestCaseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "test_case_duration_seconds",
			Help:      "Wall-clock duration of one test case execution.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RecordStep increments the step counter for the given result status.
func (m *Metrics) RecordStep(status string) {
	m.StepsTotal.WithLabelValues(status).Inc()
}

// RecordAssertion increments the assertion counter for the given result status.
func (m *Metrics) RecordAssertion(status string) {
	m.AssertionsTotal.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus exposition HTTP handler for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
