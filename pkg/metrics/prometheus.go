// Package metrics provides Prometheus metrics for the rating estimation pipeline.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for a pipeline run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Dataset
	datasetRecords *prometheus.GaugeVec
	datasetGroups  *prometheus.GaugeVec

	// Sampler
	chainsCompleted   *prometheus.CounterVec
	chainDuration     *prometheus.HistogramVec
	drawsRecorded     *prometheus.CounterVec
	adaptIterations   *prometheus.CounterVec
	convergenceRHat   *prometheus.GaugeVec
	activeChainsGauge prometheus.Gauge

	// Summaries
	hdrEstimates  *prometheus.CounterVec
	hdrMultimodal *prometheus.CounterVec
	hdrWidth      *prometheus.GaugeVec
	plotsWritten  *prometheus.CounterVec

	// Pipeline
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	errorsByStage    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bayesrate",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.datasetRecords = m.gaugeVec("dataset_records", "Rating records loaded per institution", "institution")
	m.datasetGroups = m.gaugeVec("dataset_groups", "Distinct groups per grouping level", "level")

	m.chainsCompleted = m.counterVec("chains_completed_total", "Sampler chains that finished production", "variant")
	m.chainDuration = m.histogramVec("chain_duration_seconds", "Wall time of one chain including adaptation", "variant")
	m.drawsRecorded = m.counterVec("draws_recorded_total", "Posterior draws recorded across all chains", "variant")
	m.adaptIterations = m.counterVec("adapt_iterations_total", "Discarded adaptation iterations", "variant")
	m.convergenceRHat = m.gaugeVec("convergence_rhat", "Potential scale reduction factor per parameter", "variant", "parameter")
	m.activeChainsGauge = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "active_chains",
		Help:        "Chains currently running",
		ConstLabels: m.customLabels,
	})

	m.hdrEstimates = m.counterVec("hdr_estimates_total", "Highest density regions computed", "variant")
	m.hdrMultimodal = m.counterVec("hdr_multimodal_total", "Highest density regions made of more than one interval", "variant")
	m.hdrWidth = m.gaugeVec("hdr_width", "Total width of the highest density region", "variant", "parameter")
	m.plotsWritten = m.counterVec("plots_written_total", "Composite images written", "variant")

	m.pipelineRuns = m.counterVec("runs_total", "Pipeline runs by outcome", "variant", "status")
	m.pipelineDuration = m.histogramVec("run_duration_seconds", "Wall time of one pipeline run", "variant")
	m.errorsByStage = m.counterVec("errors_total", "Errors by pipeline stage", "stage", "error_type")

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap memory in use in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// UpdateDatasetRecords sets the number of records loaded for an institution.
func UpdateDatasetRecords(institution string, count int) {
	globalManager.datasetRecords.WithLabelValues(institution).Set(float64(count))
}

// UpdateDatasetGroups sets the number of distinct groups at a grouping level.
func UpdateDatasetGroups(level string, count int) {
	globalManager.datasetGroups.WithLabelValues(level).Set(float64(count))
}

// RecordChainCompleted records a finished chain and its wall time in seconds.
func RecordChainCompleted(variant string, seconds float64) {
	globalManager.chainsCompleted.WithLabelValues(variant).Inc()
	globalManager.chainDuration.WithLabelValues(variant).Observe(seconds)
}

// RecordDraws adds recorded posterior draws.
func RecordDraws(variant string, n int) {
	globalManager.drawsRecorded.WithLabelValues(variant).Add(float64(n))
}

// RecordAdaptIterations adds discarded adaptation iterations.
func RecordAdaptIterations(variant string, n int) {
	globalManager.adaptIterations.WithLabelValues(variant).Add(float64(n))
}

// UpdateConvergence sets the potential scale reduction factor of a parameter.
func UpdateConvergence(variant, parameter string, rhat float64) {
	globalManager.convergenceRHat.WithLabelValues(variant, parameter).Set(rhat)
}

// IncActiveChains marks a chain as started.
func IncActiveChains() { globalManager.activeChainsGauge.Inc() }

// DecActiveChains marks a chain as stopped.
func DecActiveChains() { globalManager.activeChainsGauge.Dec() }

// RecordHDR records one highest density region estimate.
func RecordHDR(variant, parameter string, width float64, intervals int) {
	globalManager.hdrEstimates.WithLabelValues(variant).Inc()
	globalManager.hdrWidth.WithLabelValues(variant, parameter).Set(width)
	if intervals > 1 {
		globalManager.hdrMultimodal.WithLabelValues(variant).Inc()
	}
}

// RecordPlotWritten increments the written images counter.
func RecordPlotWritten(variant string) {
	globalManager.plotsWritten.WithLabelValues(variant).Inc()
}

// RecordRun records the outcome and duration of a pipeline run.
func RecordRun(variant, status string, seconds float64) {
	globalManager.pipelineRuns.WithLabelValues(variant, status).Inc()
	globalManager.pipelineDuration.WithLabelValues(variant).Observe(seconds)
}

// RecordError records an error raised by a pipeline stage.
func RecordError(stage, errorType string) {
	globalManager.errorsByStage.WithLabelValues(stage, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format, for pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExport, path, err)
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExport, path, err)
	}
	return nil
}
