// Package metrics provides Prometheus metrics for the section optimization service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Section decision outcomes used as label values.
const (
	OutcomeKept      = "kept"
	OutcomeReplaced  = "replaced"
	OutcomeDropped   = "dropped"
	OutcomeAugmented = "augmented"
	OutcomeRejected  = "rejected"
)

// Recording outcomes used as label values.
const (
	RecordOK        = "ok"
	RecordDuplicate = "duplicate"
	RecordFailed    = "failed"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Optimizer
	optimizeCalls    prometheus.Counter
	optimizeLatency  prometheus.Histogram
	sectionDecisions *prometheus.CounterVec
	optimizedLength  prometheus.Histogram

	// Recorder and store
	selectionsRecorded *prometheus.CounterVec
	storeEvents        prometheus.Gauge
	storeSections      prometheus.Gauge
	storeKeywords      prometheus.Gauge
	storeLoadFailures  *prometheus.CounterVec
	storeAppendLatency prometheus.Histogram
	storeRebuildTime   prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Process
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cardsections",
		subsystem:        "optimizer",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	auto := promauto.With(m.registry)

	m.optimizeCalls = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "optimize_calls_total",
		Help:      "Total number of optimize calls",
	})

	m.optimizeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "optimize_latency_milliseconds",
		Help:      "Optimize call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.sectionDecisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "section_decisions_total",
		Help:      "Sections by optimizer outcome (kept, replaced, dropped, augmented, rejected)",
	}, []string{"outcome"})

	m.optimizedLength = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "optimized_sections",
		Help:      "Number of sections returned per optimize call",
		Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
	})

	m.selectionsRecorded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "selections_recorded_total",
		Help:      "Selection outcomes passed to the recorder by result",
	}, []string{"result"})

	m.storeEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "events",
		Help:      "Number of selection events in the loaded log",
	})

	m.storeSections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "sections",
		Help:      "Number of distinct sections with history",
	})

	m.storeKeywords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "keywords",
		Help:      "Number of distinct keywords with history",
	})

	m.storeLoadFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "load_failures_total",
		Help:      "Store load failures by kind (storage, corrupt)",
	}, []string{"kind"})

	m.storeAppendLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "append_latency_milliseconds",
		Help:      "Latency of appending one event, including the file lock",
		Buckets:   m.histogramBuckets,
	})

	m.storeRebuildTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "rebuild_duration_milliseconds",
		Help:      "Time to replay the event log into aggregates",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP error responses by endpoint and error type",
	}, []string{"endpoint", "error_type"})

	m.systemMemory = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Number of goroutines",
	})

	m.systemGCPause = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average GC pause in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordOptimize records one optimize call.
func RecordOptimize(latencyMs float64, returned int) {
	globalManager.optimizeCalls.Inc()
	globalManager.optimizeLatency.Observe(latencyMs)
	globalManager.optimizedLength.Observe(float64(returned))
}

// RecordSectionDecisions adds n sections to an outcome bucket.
func RecordSectionDecisions(outcome string, n int) {
	if n <= 0 {
		return
	}
	globalManager.sectionDecisions.WithLabelValues(outcome).Add(float64(n))
}

// RecordSelection counts a recorder result (ok, duplicate, failed).
func RecordSelection(result string) {
	globalManager.selectionsRecorded.WithLabelValues(result).Inc()
}

// UpdateStoreSize publishes the size of the loaded history.
func UpdateStoreSize(events, sections, keywords int) {
	globalManager.storeEvents.Set(float64(events))
	globalManager.storeSections.Set(float64(sections))
	globalManager.storeKeywords.Set(float64(keywords))
}

// RecordStoreLoadFailure counts a failed load by kind.
func RecordStoreLoadFailure(kind string) {
	globalManager.storeLoadFailures.WithLabelValues(kind).Inc()
}

// RecordStoreAppendLatency records append latency in milliseconds.
func RecordStoreAppendLatency(latencyMs float64) {
	globalManager.storeAppendLatency.Observe(latencyMs)
}

// RecordStoreRebuildDuration records a replay duration in milliseconds.
func RecordStoreRebuildDuration(latencyMs float64) {
	globalManager.storeRebuildTime.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// GetRegistry returns the custom metrics registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutines.Set(float64(n))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPause.Observe(ms)
}
