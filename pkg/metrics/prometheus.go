// Package metrics provides Prometheus metrics for the almanac service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the almanac service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Engine metrics
	rulesEvaluated      *prometheus.CounterVec
	ruleErrors          *prometheus.CounterVec
	occurrencesComposed *prometheus.CounterVec
	conflictGroups      prometheus.Counter
	evaluationLatency   prometheus.Histogram

	// Registry metrics
	totalCalendars prometheus.Gauge
	totalEvents    prometheus.Gauge
	totalPhenomena prometheus.Gauge

	// Dispatch queue metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueFullDrops   prometheus.Counter

	// Dispatch worker metrics
	workerCount     prometheus.Gauge
	dispatchLatency prometheus.Histogram
	dispatchErrors  prometheus.Counter
	hooksDispatched prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "almanac",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	// Engine metrics
	m.rulesEvaluated = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rules_evaluated_total",
			Help:      "Total number of repeat rule evaluations by rule variant",
		},
		[]string{"variant"},
	)

	m.ruleErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rule_errors_total",
			Help:      "Total number of failed repeat rule evaluations by rule variant",
		},
		[]string{"variant"},
	)

	m.occurrencesComposed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "occurrences_composed_total",
			Help:      "Total number of occurrences composed by source kind",
		},
		[]string{"source"},
	)

	m.conflictGroups = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "conflict_groups_total",
		Help:      "Total number of overlap groups detected",
	})

	m.evaluationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_latency_milliseconds",
		Help:      "Histogram of occurrence query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Registry metrics
	m.totalCalendars = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_calendars",
		Help:      "Number of registered calendar schemas",
	})

	m.totalEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_events",
		Help:      "Number of registered events",
	})

	m.totalPhenomena = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_phenomena",
		Help:      "Number of registered phenomena",
	})

	// Dispatch queue metrics
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_queue_size",
		Help:      "Current size of the hook dispatch queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_queue_capacity",
		Help:      "Maximum dispatch queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_queue_utilization_ratio",
		Help:      "Dispatch queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_enqueue_total",
		Help:      "Total number of dispatch records enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_dequeue_total",
		Help:      "Total number of dispatch records dequeued",
	})

	m.queueFullDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_enqueue_errors_total",
		Help:      "Total number of enqueue failures",
	})

	// Dispatch worker metrics
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of dispatch workers",
	})

	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_latency_milliseconds",
		Help:      "Hook dispatch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.dispatchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_errors_total",
		Help:      "Total number of dispatcher errors",
	})

	m.hooksDispatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hooks_dispatched_total",
		Help:      "Total number of hooks handed to the dispatcher",
	})

	// HTTP metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// System metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordRuleEvaluated increments the evaluation counter for a rule variant.
func RecordRuleEvaluated(variant string) {
	globalManager.rulesEvaluated.WithLabelValues(variant).Inc()
}

// RecordRuleError increments the error counter for a rule variant.
func RecordRuleError(variant string) {
	globalManager.ruleErrors.WithLabelValues(variant).Inc()
}

// RecordOccurrenceComposed increments the composed-occurrence counter for a
// source kind.
func RecordOccurrenceComposed(source string) {
	globalManager.occurrencesComposed.WithLabelValues(source).Inc()
}

// RecordConflictGroup increments the detected overlap group counter.
func RecordConflictGroup() {
	globalManager.conflictGroups.Inc()
}

// RecordEvaluationLatency records occurrence query latency in milliseconds.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// UpdateRegistryCounts sets the registry size gauges.
func UpdateRegistryCounts(calendars, events, phenomena int) {
	globalManager.totalCalendars.Set(float64(calendars))
	globalManager.totalEvents.Set(float64(events))
	globalManager.totalPhenomena.Set(float64(phenomena))
}

// UpdateQueueSize sets the current dispatch queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum dispatch queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the dispatch queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue failure counter.
func RecordQueueEnqueueError() {
	globalManager.queueFullDrops.Inc()
}

// UpdateWorkerCount sets the current dispatch worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordDispatchLatency records hook dispatch latency in milliseconds.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// RecordDispatchError increments the dispatcher error counter.
func RecordDispatchError() {
	globalManager.dispatchErrors.Inc()
}

// RecordHooksDispatched adds to the dispatched hook counter.
func RecordHooksDispatched(count int) {
	globalManager.hooksDispatched.Add(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
