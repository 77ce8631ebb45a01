package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "filestage").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for batch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "filestage",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the stager collectors.
type Metrics struct {
	filesAccepted  prometheus.Counter
	filesRejected  *prometheus.CounterVec
	entriesRemoved prometheus.Counter
	previewsLive   prometheus.Gauge
	acquireErrors  prometheus.Counter
	batchDuration  prometheus.Histogram
}

// NewMetrics registers the stager collectors.
// It panics if the collectors are already registered with the registry,
// like promauto does; create one Metrics per registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		filesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "files_accepted_total",
			Help:        "Total number of files accepted into a staging store",
			ConstLabels: config.ConstLabels,
		}),

		filesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "files_rejected_total",
			Help:        "Total number of files rejected by policy",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		entriesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "entries_removed_total",
			Help:        "Total number of staged entries removed by id",
			ConstLabels: config.ConstLabels,
		}),

		previewsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "preview_handles_live",
			Help:        "Number of preview handles currently allocated",
			ConstLabels: config.ConstLabels,
		}),

		acquireErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "preview_acquire_errors_total",
			Help:        "Total number of failed preview allocations",
			ConstLabels: config.ConstLabels,
		}),

		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_duration_seconds",
			Help:        "Time spent evaluating and applying one capture batch",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// =============================================================================
// Recording Functions
// =============================================================================

// RecordAccepted adds n accepted files.
func (m *Metrics) RecordAccepted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.filesAccepted.Add(float64(n))
}

// RecordRejected counts one rejected file.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.filesRejected.WithLabelValues(reason).Inc()
}

// RecordRemoved counts one explicit removal.
func (m *Metrics) RecordRemoved() {
	if m == nil {
		return
	}
	m.entriesRemoved.Inc()
}

// PreviewAcquired increments the live preview gauge.
func (m *Metrics) PreviewAcquired() {
	if m == nil {
		return
	}
	m.previewsLive.Inc()
}

// PreviewReleased decrements the live preview gauge.
func (m *Metrics) PreviewReleased() {
	if m == nil {
		return
	}
	m.previewsLive.Dec()
}

// RecordAcquireError counts one failed preview allocation.
func (m *Metrics) RecordAcquireError() {
	if m == nil {
		return
	}
	m.acquireErrors.Inc()
}

// ObserveBatch records how long one batch took.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}
