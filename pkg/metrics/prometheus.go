// Package metrics provides Prometheus metrics for the leakscan service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the leakscan service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis Metrics
	analysesTotal       *prometheus.CounterVec
	analysisDuration    prometheus.Histogram
	gamesAnalyzed       prometheus.Counter
	positionsAggregated prometheus.Counter
	repeatedPositions   prometheus.Counter
	leaksFound          prometheus.Counter
	verdicts            *prometheus.CounterVec

	// Oracle Metrics
	oracleCache       *prometheus.CounterVec
	oracleUnavailable *prometheus.CounterVec
	evalCacheSize     prometheus.Gauge

	// Upstream Fetch Metrics
	fetchAttempts *prometheus.CounterVec
	fetchRetries  *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Worker Metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	oracleConcurrency       prometheus.Gauge

	// Service Metrics
	serviceUptime prometheus.Gauge

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// The global manager and the registry it writes to. Both are replaced
// together by Configure.
var (
	global         atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	globalRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry served on /metrics
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry, so default Go collectors are never exported. Handlers capture the
// registry when built; call Configure before registering /metrics.
func Configure(opts ...Option) {
	reg := prometheus.NewRegistry()
	opts = append(opts[:len(opts):len(opts)], WithPrometheusRegistry(reg))
	m := NewManager(opts...)
	globalRegistry.Store(reg)
	global.Store(m)
}

// Enabled reports whether the global manager records values.
func Enabled() bool { return global.Load().enabled }

// RefreshInterval is how often gauge updaters should sample.
func RefreshInterval() time.Duration { return global.Load().refreshInterval }

// active returns the global manager, or nil when recording is disabled.
func active() *Manager {
	if m := global.Load(); m.enabled {
		return m
	}
	return nil
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "leakscan",
		subsystem:        "analyzer",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.analysesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("analyses_total"),
		Help:        "Total number of analysis runs by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.analysisDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("analysis_duration_milliseconds"),
		Help:        "End-to-end analysis duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.gamesAnalyzed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("games_analyzed_total"),
		Help:        "Games in which the target player was identified",
		ConstLabels: labels,
	})

	m.positionsAggregated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("positions_aggregated_total"),
		Help:        "Distinct player-to-move positions aggregated",
		ConstLabels: labels,
	})

	m.repeatedPositions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("repeated_positions_total"),
		Help:        "Aggregated positions that cleared the repeat floor",
		ConstLabels: labels,
	})

	m.leaksFound = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("leaks_found_total"),
		Help:        "Leak records emitted",
		ConstLabels: labels,
	})

	m.verdicts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("position_verdicts_total"),
		Help:        "Classifier verdicts per aggregated position",
		ConstLabels: labels,
	}, []string{"verdict"})

	m.oracleCache = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("oracle_cache_total"),
		Help:        "Evaluation cache lookups by result (hit, miss, coalesced)",
		ConstLabels: labels,
	}, []string{"result"})

	m.oracleUnavailable = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("oracle_unavailable_total"),
		Help:        "Positions the oracle had no usable evaluation for, by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.evalCacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("eval_cache_entries"),
		Help:        "Entries in the most recently used evaluation cache",
		ConstLabels: labels,
	})

	m.fetchAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_attempts_total"),
		Help:        "Upstream HTTP attempts by endpoint and outcome",
		ConstLabels: labels,
	}, []string{"endpoint", "outcome"})

	m.fetchRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_retries_total"),
		Help:        "Upstream HTTP retries by endpoint",
		ConstLabels: labels,
	}, []string{"endpoint"})

	m.fetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fetch_latency_milliseconds"),
		Help:        "Upstream HTTP attempt latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_active_count"),
		Help:        "Classifier workers currently running",
		ConstLabels: labels,
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_processing_latency_milliseconds"),
		Help:        "Per-position classification latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.oracleConcurrency = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("oracle_concurrency"),
		Help:        "Configured classifier pool width",
		ConstLabels: labels,
	})

	m.serviceUptime = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("uptime_seconds"),
		Help:        "Seconds since the analysis service started",
		ConstLabels: labels,
	})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "Errors by HTTP endpoint, method and type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("error_latency_milliseconds"),
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Analysis Metrics Functions.

// RecordAnalysis records one finished analysis run.
func RecordAnalysis(outcome string, durationMs float64) {
	if m := active(); m != nil {
		m.analysesTotal.WithLabelValues(outcome).Inc()
		m.analysisDuration.Observe(durationMs)
	}
}

// RecordGamesAnalyzed adds to the analyzed games counter.
func RecordGamesAnalyzed(n int) {
	if m := active(); m != nil {
		m.gamesAnalyzed.Add(float64(n))
	}
}

// RecordPositions adds aggregated and repeated position counts.
func RecordPositions(aggregated, repeated int) {
	if m := active(); m != nil {
		m.positionsAggregated.Add(float64(aggregated))
		m.repeatedPositions.Add(float64(repeated))
	}
}

// RecordLeaksFound adds to the emitted leaks counter.
func RecordLeaksFound(n int) {
	if m := active(); m != nil {
		m.leaksFound.Add(float64(n))
	}
}

// RecordVerdict increments the counter for a classifier verdict.
func RecordVerdict(verdict string) {
	if m := active(); m != nil {
		m.verdicts.WithLabelValues(verdict).Inc()
	}
}

// Oracle Metrics Functions.

// RecordOracleCache records an evaluation cache lookup result.
func RecordOracleCache(result string) {
	if m := active(); m != nil {
		m.oracleCache.WithLabelValues(result).Inc()
	}
}

// RecordOracleUnavailable records a position with no usable evaluation.
func RecordOracleUnavailable(reason string) {
	if m := active(); m != nil {
		m.oracleUnavailable.WithLabelValues(reason).Inc()
	}
}

// UpdateEvalCacheSize sets the current evaluation cache size.
func UpdateEvalCacheSize(n int64) {
	if m := active(); m != nil {
		m.evalCacheSize.Set(float64(n))
	}
}

// Upstream Fetch Metrics Functions.

// RecordFetchAttempt records one upstream attempt outcome.
func RecordFetchAttempt(endpoint, outcome string) {
	if m := active(); m != nil {
		m.fetchAttempts.WithLabelValues(endpoint, outcome).Inc()
	}
}

// RecordFetchRetry records a retry of an upstream request.
func RecordFetchRetry(endpoint string) {
	if m := active(); m != nil {
		m.fetchRetries.WithLabelValues(endpoint).Inc()
	}
}

// RecordFetchLatency records upstream attempt latency.
func RecordFetchLatency(endpoint string, latencyMs float64) {
	if m := active(); m != nil {
		m.fetchLatency.WithLabelValues(endpoint).Observe(latencyMs)
	}
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := active(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := active(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if m := active(); m != nil {
		m.workerActiveCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.workerProcessingLatency.Observe(latencyMs)
	}
}

// UpdateOracleConcurrency sets the configured classifier pool width.
func UpdateOracleConcurrency(width int) {
	if m := active(); m != nil {
		m.oracleConcurrency.Set(float64(width))
	}
}

// UpdateServiceUptime sets the service uptime in seconds.
func UpdateServiceUptime(seconds float64) {
	if m := active(); m != nil {
		m.serviceUptime.Set(seconds)
	}
}

// Error Metrics Functions.

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if m := active(); m != nil {
		m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := active(); m != nil {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if m := active(); m != nil {
		m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := active(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := active(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := active(); m != nil {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return globalRegistry.Load()
}
