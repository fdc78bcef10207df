package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	access      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewMetrics registers collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epcr_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epcr_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epcr_http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		access: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epcr_access_decisions_total",
			Help: "Patient access decisions by rule and result.",
		}, []string{"basis", "granted"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epcr_assessment_transitions_total",
			Help: "Assessment transition validations by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.errors, m.access, m.transitions)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordAccessDecision counts one ResolveAccess outcome.
func (m *Metrics) RecordAccessDecision(basis string, granted bool) {
	if m == nil {
		return
	}
	m.access.WithLabelValues(basis, strconv.FormatBool(granted)).Inc()
}

// RecordTransition counts one ValidateTransition outcome.
func (m *Metrics) RecordTransition(result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(result).Inc()
}
