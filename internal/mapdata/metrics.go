package mapdata

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFetchesTotal      = "mapdata_fetches_total"
	MetricFetchDuration     = "mapdata_fetch_duration_seconds"
	MetricItemsFetchedTotal = "mapdata_items_fetched_total"
	MetricCacheLookupsTotal = "mapdata_cache_lookups_total"
)

// Fetch status label values.
const (
	statusSuccess  = "success"
	statusUpstream = "upstream_error"
	statusFailure  = "failure"
)

// Item kind label values.
const (
	kindTicketmasterEvent = "ticketmaster_event"
	kindRegularEvent      = "regular_event"
	kindLocation          = "location"
)

// Cache outcome label values.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics contains Prometheus metrics for upstream fetch operations.
// All operations are thread-safe.
type Metrics struct {
	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	itemsFetched  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register them
// with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFetchesTotal,
				Help: "Total number of upstream map data fetches by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFetchDuration,
				Help:    "Histogram of upstream fetch duration in seconds by endpoint",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),
		itemsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricItemsFetchedTotal,
				Help: "Total number of map items fetched by endpoint and item kind",
			},
			[]string{"endpoint", "kind"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheLookupsTotal,
				Help: "Total number of map data cache lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(registry *prometheus.Registry) error {
	for _, c := range []prometheus.Collector{
		m.fetchesTotal,
		m.fetchDuration,
		m.itemsFetched,
		m.cacheLookups,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveFetch records one upstream fetch attempt.
func (m *Metrics) ObserveFetch(endpoint string, err error, duration time.Duration) {
	status := statusSuccess
	if err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) {
			status = statusUpstream
		} else {
			status = statusFailure
		}
	}
	m.fetchesTotal.WithLabelValues(endpoint, status).Inc()
	m.fetchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// AddItems records the item counts of a successful fetch.
func (m *Metrics) AddItems(endpoint string, ticketmasterEvents, regularEvents, locations int) {
	m.itemsFetched.WithLabelValues(endpoint, kindTicketmasterEvent).Add(float64(ticketmasterEvents))
	m.itemsFetched.WithLabelValues(endpoint, kindRegularEvent).Add(float64(regularEvents))
	m.itemsFetched.WithLabelValues(endpoint, kindLocation).Add(float64(locations))
}

// ObserveCacheLookup records one cache lookup outcome (CacheHit, CacheMiss,
// or CacheError).
func (m *Metrics) ObserveCacheLookup(outcome string) {
	m.cacheLookups.WithLabelValues(outcome).Inc()
}
