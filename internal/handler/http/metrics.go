package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"teamhub/internal/handler/http/responsewriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// otherRoute labels every path that is not a registered route, so scanners
// probing random URLs cannot grow the label set.
const otherRoute = "other"

// HTTPMetrics records request counts, latency and sizes per route.
type HTTPMetrics struct {
	routes map[string]struct{}

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	responseSize     *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP metrics with reg. routes lists the paths
// that get their own label value.
func NewHTTPMetrics(reg prometheus.Registerer, routes ...string) *HTTPMetrics {
	factory := promauto.With(reg)

	m := &HTTPMetrics{
		routes: make(map[string]struct{}, len(routes)),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		// Buckets run from 5ms up to 10s, which covers a provider call that
		// waits out its retries.
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
		responseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),
	}
	for _, route := range routes {
		m.routes[route] = struct{}{}
	}
	return m
}

// route maps a request path to its label value.
func (m *HTTPMetrics) route(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := m.routes[path]; ok {
		return path
	}
	return otherRoute
}

// Middleware records one observation per request.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		route := m.route(r.URL.Path)
		rw := responsewriter.Wrap(w)

		start := time.Now()
		next.ServeHTTP(rw, r)
		duration := time.Since(start).Seconds()

		status := strconv.Itoa(rw.StatusCode())
		m.requestsTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(duration)
		m.responseSize.WithLabelValues(r.Method, route).Observe(float64(rw.BytesWritten()))
	})
}

// MetricsHandler serves every gatherer on one endpoint.
func MetricsHandler(gatherers ...prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers(gatherers), promhttp.HandlerOpts{})
}
