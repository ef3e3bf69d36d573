package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP management API
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camgate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgate_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ManagementAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgate_management_access_total",
			Help: "Management API access attempts by result",
		},
		[]string{"result"},
	)

	RateLimitKeysGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgate_ratelimit_keys",
			Help: "Number of client keys tracked by the rate limiter",
		},
	)

	// Providers
	ProviderCapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgate_provider_captures_total",
			Help: "Frame captures by provider kind and error kind",
		},
		[]string{"provider", "result"},
	)

	ProviderCaptureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camgate_provider_capture_duration_seconds",
			Help:    "Frame capture latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	ProviderLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgate_provider_logins_total",
			Help: "Vendor-local login attempts by result",
		},
		[]string{"result"},
	)

	// Cameras and monitoring
	CamerasConfigured = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camgate_cameras_configured",
			Help: "Configured cameras by provider kind",
		},
		[]string{"provider"},
	)

	MonitorCapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgate_monitor_captures_total",
			Help: "Monitor tick captures by result",
		},
		[]string{"result"},
	)

	MonitorTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "camgate_monitor_tick_duration_seconds",
			Help:    "Time spent capturing all cameras in one monitor tick",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	MonitorRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgate_monitor_running",
			Help: "1 while the camera monitor is active",
		},
	)

	// Discovery
	DiscoveryResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgate_discovery_results_total",
			Help: "Unique discovery results by provider kind",
		},
		[]string{"provider"},
	)

	DiscoveryScanning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgate_discovery_scanning",
			Help: "1 while a discovery scan is in progress",
		},
	)

	// Storage
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgate_storage_operations_total",
			Help: "Storage backend operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camgate_storage_operation_duration_seconds",
			Help:    "Storage backend operation latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend", "operation"},
	)

	// Frame fan-out
	FrameSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgate_frame_subscribers",
			Help: "Connected websocket frame subscribers",
		},
	)
)

// ResultLabel maps an error to a bounded label value.
func ResultLabel(err error, kind string) string {
	if err == nil {
		return "ok"
	}
	if kind == "" {
		return "error"
	}
	return kind
}
