package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the service's prometheus collectors.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec

	ApprovalsTotal       *prometheus.CounterVec
	AssignmentsTotal     *prometheus.CounterVec
	CategorizationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Total number of HTTP requests that resulted in a domain error.",
		}, []string{"method", "path", "code"}),
		ApprovalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_approvals_total",
			Help: "Approval decisions by outcome and reason code.",
		}, []string{"outcome", "reason"}),
		AssignmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_assignments_total",
			Help: "Ticket assignments by mode.",
		}, []string{"mode"}),
		CategorizationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_categorizations_total",
			Help: "Categorization confirmations by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
		m.ApprovalsTotal,
		m.AssignmentsTotal,
		m.CategorizationsTotal,
	)
	return m
}

// RecordRequest observes one completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordError counts a request that ended in a domain error.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(method, path, code).Inc()
}
