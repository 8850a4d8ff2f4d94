// Package obsmetrics defines the Prometheus instrumentation surface for the
// engine: one struct of collectors, registered via promauto against a
// caller-supplied registerer.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors the engine records to. Pass the
// same instance to every component that needs to observe it.
type Metrics struct {
	ConnectionsActive   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	RateLimitDecisions  *prometheus.CounterVec
	RequestsInFlight    prometheus.Gauge
	RequestDuration     *prometheus.HistogramVec
	ProgressTokensOpen  prometheus.Gauge
	SamplingCallSeconds prometheus.Histogram
	NotificationsSent   *prometheus.CounterVec
}

// New creates and registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ConnectionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpcore",
				Name:      "connections_active",
				Help:      "Number of currently accepted connections",
			},
		),
		ConnectionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpcore",
				Name:      "connections_total",
				Help:      "Total connections accepted since startup",
			},
		),
		RateLimitDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpcore",
				Name:      "rate_limit_decisions_total",
				Help:      "Rate limit check outcomes",
			},
			[]string{"decision"}, // decision=allow/deny
		),
		RequestsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpcore",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being handled",
			},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcpcore",
				Name:      "request_duration_seconds",
				Help:      "Request handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"}, // status=ok/error
		),
		ProgressTokensOpen: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpcore",
				Name:      "progress_tokens_open",
				Help:      "Number of progress tokens currently tracked",
			},
		),
		SamplingCallSeconds: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mcpcore",
				Name:      "sampling_call_seconds",
				Help:      "Latency of server-initiated sampling/createMessage round trips",
				Buckets:   prometheus.DefBuckets,
			},
		),
		NotificationsSent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpcore",
				Name:      "notifications_sent_total",
				Help:      "Total notifications sent, by method",
			},
			[]string{"method"},
		),
	}
}

// ObserveRequest records one completed request's duration and outcome.
func (m *Metrics) ObserveRequest(method string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.RequestDuration.WithLabelValues(method, status).Observe(seconds)
}

// ObserveRateLimit records one rate limit check outcome.
func (m *Metrics) ObserveRateLimit(allowed bool) {
	if m == nil {
		return
	}
	decision := "allow"
	if !allowed {
		decision = "deny"
	}
	m.RateLimitDecisions.WithLabelValues(decision).Inc()
}
