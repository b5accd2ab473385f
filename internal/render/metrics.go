package render

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricBatchesTotal  = "render_batches_total"
	MetricCyclesTotal   = "render_cycles_total"
	MetricCycleDuration = "render_cycle_duration_seconds"
)

// Metrics contains Prometheus metrics for progressive render cycles.
// All operations are thread-safe.
type Metrics struct {
	batchesTotal  prometheus.Counter
	cyclesTotal   prometheus.Counter
	cycleDuration prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register them
// with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		batchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricBatchesTotal,
				Help: "Total number of marker batches emitted by the progressive renderer",
			},
		),
		cyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCyclesTotal,
				Help: "Total number of completed progressive render cycles",
			},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricCycleDuration,
				Help:    "Histogram of progressive render cycle duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
			},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(registry *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{
		m.batchesTotal,
		m.cyclesTotal,
		m.cycleDuration,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncBatches records one emitted batch.
func (m *Metrics) IncBatches() {
	m.batchesTotal.Inc()
}

// ObserveCycle records one completed reveal cycle.
func (m *Metrics) ObserveCycle(elapsed time.Duration) {
	m.cyclesTotal.Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
}
