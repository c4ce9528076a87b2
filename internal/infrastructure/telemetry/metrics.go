package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names
const (
	MetricRemoteCallsTotal          = "gateway_remote_calls_total"
	MetricRemoteCallDurationSeconds = "gateway_remote_call_duration_seconds"
	MetricWebhookActionsTotal       = "gateway_webhook_actions_total"
	MetricHTTPRequestsTotal         = "gateway_http_requests_total"
	MetricHTTPRequestDuration       = "gateway_http_request_duration_seconds"
	MetricHTTPActiveRequests        = "gateway_http_active_requests"
)

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
	// HistogramBuckets defaults to prometheus.DefBuckets
	HistogramBuckets []float64
}

// Metrics owns a private registry with the gateway's collectors.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry       *prometheus.Registry
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	webhookActions *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpActive     prometheus.Gauge
}

// NewMetrics creates and registers the gateway collectors plus the Go and
// process collectors.
func NewMetrics(cfg MetricsConfig) *Metrics {
	buckets := cfg.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRemoteCallsTotal,
				Help: "Remote calls made by the gateway, by system, operation and outcome.",
			},
			[]string{"system", "operation", "outcome"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRemoteCallDurationSeconds,
				Help:    "Duration of remote calls in seconds.",
				Buckets: buckets,
			},
			[]string{"system", "operation"},
		),
		webhookActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricWebhookActionsTotal,
				Help: "Actions planned by the webhook dispatcher, by event type.",
			},
			[]string{"event_type"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Inbound HTTP requests, by method, route and status code.",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "Inbound HTTP request latency in seconds.",
				Buckets: buckets,
			},
			[]string{"method", "route"},
		),
		httpActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricHTTPActiveRequests,
			Help: "Inbound HTTP requests currently being served.",
		}),
	}

	m.registry.MustRegister(
		m.remoteCalls,
		m.remoteDuration,
		m.webhookActions,
		m.httpRequests,
		m.httpDuration,
		m.httpActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRemoteCall implements remote.CallRecorder
func (m *Metrics) RecordRemoteCall(system, operation, outcome string, duration time.Duration) {
	m.remoteCalls.WithLabelValues(system, operation, outcome).Inc()
	m.remoteDuration.WithLabelValues(system, operation).Observe(duration.Seconds())
}

// RecordWebhookActions counts the actions planned for one event
func (m *Metrics) RecordWebhookActions(eventType string, planned int) {
	m.webhookActions.WithLabelValues(eventType).Add(float64(planned))
}

// HTTPRequestStarted marks one more request in flight
func (m *Metrics) HTTPRequestStarted() {
	m.httpActive.Inc()
}

// RecordHTTPRequest records a finished inbound request. route is the route
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpActive.Dec()
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
