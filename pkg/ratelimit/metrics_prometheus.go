package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics using Prometheus collectors held in a
// custom registry, so tests and multiple limiters never collide on the
// default registerer.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// requestsTotal counts checks by outcome.
	// Labels:
	//   - app: AppIdentity.ID
	//   - status: "allowed" or "denied"
	//   - path: request path
	requestsTotal *prometheus.CounterVec

	// errorsTotal counts checks that could not complete.
	// Labels:
	//   - reason: "identity_missing" or "store_error"
	errorsTotal *prometheus.CounterVec

	// checkDuration tracks store round trips. Memory checks land in the first
	// buckets; Redis checks usually sit between 0.5ms and 5ms.
	checkDuration prometheus.Histogram

	activeKeys     prometheus.Gauge
	evictionsTotal prometheus.Counter
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance with its own registry.
//
// The registry can be passed to promhttp.HandlerFor() to expose metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_rate_limit_requests_total",
			Help: "Total app rate limit checks by app, status, and path",
		},
		[]string{"app", "status", "path"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_rate_limit_errors_total",
			Help: "Rate limit checks that could not be completed, by reason",
		},
		[]string{"reason"},
	)

	checkDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "app_rate_limit_check_duration_seconds",
			Help:    "Duration of rate limit check operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	activeKeys := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_rate_limit_active_keys",
			Help: "Current number of tracked rate limit windows",
		},
	)

	evictionsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "app_rate_limit_evictions_total",
			Help: "Total windows dropped by LRU eviction",
		},
	)

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		checkDuration,
		activeKeys,
		evictionsTotal,
	)

	return &PrometheusMetrics{
		registry:       registry,
		requestsTotal:  requestsTotal,
		errorsTotal:    errorsTotal,
		checkDuration:  checkDuration,
		activeKeys:     activeKeys,
		evictionsTotal: evictionsTotal,
	}
}

// Registry returns the Prometheus registry containing all rate limit metrics.
//
//	metrics := NewPrometheusMetrics()
//	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAllowed records a request that passed the limit check.
func (m *PrometheusMetrics) RecordAllowed(identity, path string) {
	m.requestsTotal.WithLabelValues(identity, "allowed", path).Inc()
}

// RecordDenied records a request rejected by the limit.
func (m *PrometheusMetrics) RecordDenied(identity, path string) {
	m.requestsTotal.WithLabelValues(identity, "denied", path).Inc()
}

// RecordError records a check that could not be completed.
func (m *PrometheusMetrics) RecordError(reason string) {
	m.errorsTotal.WithLabelValues(reason).Inc()
}

// RecordCheckDuration records the duration of a rate limit check.
func (m *PrometheusMetrics) RecordCheckDuration(duration time.Duration) {
	m.checkDuration.Observe(duration.Seconds())
}

// SetActiveKeys records the current number of tracked windows.
func (m *PrometheusMetrics) SetActiveKeys(count int) {
	m.activeKeys.Set(float64(count))
}

// RecordEviction records windows dropped by LRU eviction.
//
// A high eviction rate means MaxActiveKeys is too small for the number of
// registered apps, or that unknown keys are reaching the store.
func (m *PrometheusMetrics) RecordEviction(count int) {
	m.evictionsTotal.Add(float64(count))
}

var _ Metrics = (*PrometheusMetrics)(nil)
