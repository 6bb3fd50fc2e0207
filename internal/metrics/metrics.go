package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Storage operation metrics
	StorageOperationTotal    *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Event publishing metrics
	EventPublishTotal    *prometheus.CounterVec
	EventPublishDuration *prometheus.HistogramVec

	// Media host metrics
	MediaOperationTotal    *prometheus.CounterVec
	MediaOperationDuration *prometheus.HistogramVec
	MediaRetryTotal        *prometheus.CounterVec
	MediaCircuitState      *prometheus.GaugeVec // 0 closed, 1 half-open, 2 open
	OrphanedAssetTotal     *prometheus.CounterVec

	// Like toggles by kind and outcome
	LikeToggleTotal *prometheus.CounterVec

	// Request body validation metrics
	SchemaValidationTotal    *prometheus.CounterVec
	SchemaValidationDuration *prometheus.HistogramVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics returns the process-wide Metrics, creating and registering it on first use.
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		StorageOperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Total number of storage operations",
		}, []string{"operation", "status"}),

		StorageOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_publish_total",
			Help: "Total number of event publish operations",
		}, []string{"event_type", "status"}),

		EventPublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "event_publish_duration_seconds",
			Help:    "Event publish duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"event_type", "status"}),

		MediaOperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_operations_total",
			Help: "Total number of media host operations",
		}, []string{"operation", "status"}),

		MediaOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "media_operation_duration_seconds",
			Help:    "Media host operation duration in seconds, retries included",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation", "status"}),

		MediaRetryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_retries_total",
			Help: "Total number of retried media host attempts",
		}, []string{"operation"}),

		MediaCircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "media_circuit_breaker_state",
			Help: "Media host circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"breaker"}),

		OrphanedAssetTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_orphaned_assets_total",
			Help: "Remote assets left behind after a failed delete",
		}, []string{"role", "stage"}),

		LikeToggleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "like_toggles_total",
			Help: "Total number of like toggles",
		}, []string{"kind", "result"}),

		SchemaValidationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schema_validation_total",
			Help: "Total number of request body validations",
		}, []string{"schema", "status"}),

		SchemaValidationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schema_validation_duration_seconds",
			Help:    "Request body validation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"schema", "status"}),
	}

	registerMetrics(m)
	globalMetrics = m

	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	registerOrGet(m.HTTPRequestTotal)
	registerOrGet(m.HTTPRequestDuration)
	registerOrGet(m.StorageOperationTotal)
	registerOrGet(m.StorageOperationDuration)
	registerOrGet(m.EventPublishTotal)
	registerOrGet(m.EventPublishDuration)
	registerOrGet(m.MediaOperationTotal)
	registerOrGet(m.MediaOperationDuration)
	registerOrGet(m.MediaRetryTotal)
	registerOrGet(m.MediaCircuitState)
	registerOrGet(m.OrphanedAssetTotal)
	registerOrGet(m.LikeToggleTotal)
	registerOrGet(m.SchemaValidationTotal)
	registerOrGet(m.SchemaValidationDuration)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}

// Status renders an operation outcome as a metric label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
