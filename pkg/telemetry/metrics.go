package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for fresnel.
type Metrics struct {
	config MetricsConfig

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Transform metrics
	transforms        *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec

	// Cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Watch metrics
	watchEvents *prometheus.CounterVec
	reloads     prometheus.Counter

	// Test metrics
	testFiles       *prometheus.CounterVec
	testRunDuration *prometheus.HistogramVec
	coverageRatio   prometheus.Gauge

	// System metrics
	activeRequests prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// HTTP metrics
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"server", "code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP request handling in seconds",
				Buckets:   buckets,
			},
			[]string{"server"},
		),

		// Transform metrics
		transforms: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transforms_total",
				Help:      "Total number of module transforms",
			},
			[]string{"plugin", "result"},
		),
		transformDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transform_duration_seconds",
				Help:      "Duration of module transforms in seconds",
				Buckets:   buckets,
			},
			[]string{"plugin"},
		),

		// Cache metrics
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transform_cache_hits_total",
				Help:      "Total number of transform cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transform_cache_misses_total",
				Help:      "Total number of transform cache misses",
			},
		),

		// Watch metrics
		watchEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_events_total",
				Help:      "Total number of filesystem watch events",
			},
			[]string{"op"},
		),
		reloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Total number of reloads triggered by file changes",
			},
		),

		// Test metrics
		testFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "test_files_total",
				Help:      "Total number of test files executed",
			},
			[]string{"status"},
		),
		testRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "test_run_duration_seconds",
				Help:      "Duration of test runs in seconds",
				Buckets:   buckets,
			},
			[]string{"environment"},
		),
		coverageRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "coverage_ratio",
				Help:      "Statement coverage of the last test run (0.0 to 1.0)",
			},
		),

		// System metrics
		activeRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_requests",
				Help:      "Current number of in-flight HTTP requests",
			},
		),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpRequestDuration,
		m.transforms,
		m.transformDuration,
		m.cacheHits,
		m.cacheMisses,
		m.watchEvents,
		m.reloads,
		m.testFiles,
		m.testRunDuration,
		m.coverageRatio,
		m.activeRequests,
	)

	return m, nil
}

// HTTP Metrics

// RecordRequest records a served HTTP request with its status code and duration.
func (m *Metrics) RecordRequest(server, code string, duration time.Duration) {
	if m.httpRequests == nil {
		return
	}
	m.httpRequests.WithLabelValues(server, code).Inc()
	m.httpRequestDuration.WithLabelValues(server).Observe(duration.Seconds())
}

// RequestStarted increments the in-flight request gauge.
func (m *Metrics) RequestStarted() {
	if m.activeRequests == nil {
		return
	}
	m.activeRequests.Inc()
}

// RequestFinished decrements the in-flight request gauge.
func (m *Metrics) RequestFinished() {
	if m.activeRequests == nil {
		return
	}
	m.activeRequests.Dec()
}

// Transform Metrics

// RecordTransform records a module transform with its outcome and duration.
func (m *Metrics) RecordTransform(plugin, result string, duration time.Duration) {
	if m.transforms == nil {
		return
	}
	m.transforms.WithLabelValues(plugin, result).Inc()
	m.transformDuration.WithLabelValues(plugin).Observe(duration.Seconds())
}

// RecordCacheHit increments the transform cache hit counter.
func (m *Metrics) RecordCacheHit() {
	if m.cacheHits == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss increments the transform cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	if m.cacheMisses == nil {
		return
	}
	m.cacheMisses.Inc()
}

// Watch Metrics

// RecordWatchEvent records a filesystem watch event by operation.
func (m *Metrics) RecordWatchEvent(op string) {
	if m.watchEvents == nil {
		return
	}
	m.watchEvents.WithLabelValues(op).Inc()
}

// RecordReload increments the reload counter.
func (m *Metrics) RecordReload() {
	if m.reloads == nil {
		return
	}
	m.reloads.Inc()
}

// Test Metrics

// RecordTestFile records an executed test file by status.
func (m *Metrics) RecordTestFile(status string) {
	if m.testFiles == nil {
		return
	}
	m.testFiles.WithLabelValues(status).Inc()
}

// RecordTestRun records a completed test run for an environment.
func (m *Metrics) RecordTestRun(environment string, duration time.Duration) {
	if m.testRunDuration == nil {
		return
	}
	m.testRunDuration.WithLabelValues(environment).Observe(duration.Seconds())
}

// SetCoverageRatio sets the coverage gauge for the last test run.
func (m *Metrics) SetCoverageRatio(ratio float64) {
	if m.coverageRatio == nil {
		return
	}
	m.coverageRatio.Set(ratio)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
