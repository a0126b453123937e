package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry, so
// several servers (or tests) can coexist in one process.
//
// All Record/Set methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Backend metrics
	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	BreakerState    prometheus.Gauge

	// Formatter metrics
	FormatDuration prometheus.Histogram
	FormatInput    prometheus.Histogram

	// Conversation metrics
	ConversationItems *prometheus.CounterVec
	Captures          *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the JSON health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current counter values for the JSON API.
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	BackendCalls  int64   `json:"backend_calls"`
	BackendErrors int64   `json:"backend_errors"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidebar_http_requests_total",
				Help: "Total number of sidebar API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sidebar_http_request_duration_seconds",
				Help:    "Sidebar API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),

		BackendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidebar_backend_calls_total",
				Help: "Total number of FaultMaven backend calls",
			},
			[]string{"endpoint", "status"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sidebar_backend_call_duration_seconds",
				Help:    "FaultMaven backend call duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),

		FormatDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sidebar_format_duration_seconds",
				Help:    "Time spent rendering backend responses to HTML",
				Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05},
			},
		),
		FormatInput: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sidebar_format_input_bytes",
				Help:    "Size of backend responses passed to the formatter",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
		),

		ConversationItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidebar_conversation_items_total",
				Help: "Conversation items appended, by kind",
			},
			[]string{"kind"},
		),
		Captures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidebar_captures_total",
				Help: "Page and file captures, by source and outcome",
			},
			[]string{"source", "status"},
		),

		BreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sidebar_backend_breaker_state",
				Help: "Backend circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sidebar_ws_connections",
				Help: "Number of connected sidebar streams",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidebar_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sidebar_uptime_seconds",
			Help: "Sidebar server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records a sidebar API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordBackendCall records a FaultMaven backend call. status is "success" or an error class.
func (m *Metrics) RecordBackendCall(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(endpoint, status).Inc()
	m.BackendDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.BackendCalls++
	if status != "success" {
		m.snapshot.BackendErrors++
	}
	m.mu.Unlock()
}

// SetBreakerState records the backend circuit breaker state
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}

// RecordFormat records one formatter run
func (m *Metrics) RecordFormat(duration time.Duration, inputBytes int) {
	if m == nil {
		return
	}
	m.FormatDuration.Observe(duration.Seconds())
	m.FormatInput.Observe(float64(inputBytes))
}

// RecordItem records a conversation item of the given kind ("response", "info", "error")
func (m *Metrics) RecordItem(kind string) {
	if m == nil {
		return
	}
	m.ConversationItems.WithLabelValues(kind).Inc()
}

// RecordCapture records a page or file capture
func (m *Metrics) RecordCapture(source, status string) {
	if m == nil {
		return
	}
	m.Captures.WithLabelValues(source, status).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns current counter values
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
