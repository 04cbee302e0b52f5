package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sheetforge/sheetforge/internal/kernel"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Kernel metrics
	SyscallsTotal   *prometheus.CounterVec
	SyscallDuration *prometheus.HistogramVec
	OpenFDs         prometheus.Gauge
	NotifyDuration  *prometheus.HistogramVec

	// Capability metrics
	IoctlCalls  *prometheus.CounterVec
	IoctlErrors *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	registry *prometheus.Registry
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalSyscalls   int64
	SyscallFailures int64
	OpenFDs         int64
	TotalDuration   float64 // sum of all request durations
	RequestCount    int64   // count for averaging
}

// NewMetrics creates a new metrics collector. Each collector owns its own
// registry so several server instances can coexist in one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetforge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetforge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetforge_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetforge_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Kernel metrics
		SyscallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetforge_syscalls_total",
				Help: "Total number of kernel syscalls by operation and result",
			},
			[]string{"op", "errno"},
		),
		SyscallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetforge_syscall_duration_seconds",
				Help:    "Kernel syscall duration in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"op"},
		),
		OpenFDs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sheetforge_open_fds",
				Help: "Number of open kernel file descriptors",
			},
		),
		NotifyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetforge_notify_fanout_duration_seconds",
				Help:    "Change notification fan-out duration in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"kind"},
		),

		// Capability metrics
		IoctlCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetforge_ioctl_calls_total",
				Help: "Total number of ioctl requests by device",
			},
			[]string{"device", "status"},
		),
		IoctlErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetforge_ioctl_errors_total",
				Help: "Total number of failed ioctl requests by device and errno",
			},
			[]string{"device", "errno"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sheetforge_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetforge_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sheetforge_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// Registry returns the collector's Prometheus registry for exposition
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// ObserveSyscall records one kernel syscall. Implements kernel.Observer.
func (m *Metrics) ObserveSyscall(op string, errno kernel.Errno, seconds float64) {
	m.SyscallsTotal.WithLabelValues(op, errno.String()).Inc()
	m.SyscallDuration.WithLabelValues(op).Observe(seconds)

	m.mu.Lock()
	m.snapshot.TotalSyscalls++
	if !errno.Ok() {
		m.snapshot.SyscallFailures++
	}
	m.mu.Unlock()
}

// SetOpenFDs records the current descriptor table size. Implements
// kernel.Observer.
func (m *Metrics) SetOpenFDs(n int) {
	m.OpenFDs.Set(float64(n))
	m.mu.Lock()
	m.snapshot.OpenFDs = int64(n)
	m.mu.Unlock()
}

// ObserveNotify records one change-notification fan-out
func (m *Metrics) ObserveNotify(kind string, seconds float64) {
	m.NotifyDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordIoctl records one ioctl request against a capability device
func (m *Metrics) RecordIoctl(device string, errno kernel.Errno) {
	status := "ok"
	if !errno.Ok() {
		status = "error"
		m.IoctlErrors.WithLabelValues(device, errno.String()).Inc()
	}
	m.IoctlCalls.WithLabelValues(device, status).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// GetSnapshot returns current metric values for the JSON status endpoint
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds returns seconds since the collector was created
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
