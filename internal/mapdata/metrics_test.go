package mapdata

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherCounter(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetrics_ObserveFetch(t *testing.T) {
	metrics := NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	metrics.ObserveFetch("Nearby Data", nil, 100*time.Millisecond)
	metrics.ObserveFetch("Nearby Data", &UpstreamError{Endpoint: "Nearby Data", Status: 503}, 50*time.Millisecond)
	metrics.ObserveFetch("Map Data", errors.New("dial tcp: connection refused"), 10*time.Millisecond)

	tests := []struct {
		endpoint string
		status   string
		want     float64
	}{
		{"Nearby Data", "success", 1},
		{"Nearby Data", "upstream_error", 1},
		{"Map Data", "failure", 1},
	}
	for _, tt := range tests {
		got := gatherCounter(t, registry, MetricFetchesTotal, map[string]string{
			"endpoint": tt.endpoint,
			"status":   tt.status,
		})
		if got != tt.want {
			t.Errorf("fetches{endpoint=%s,status=%s} = %f, want %f", tt.endpoint, tt.status, got, tt.want)
		}
	}
}

func TestMetrics_AddItems(t *testing.T) {
	metrics := NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	metrics.AddItems("Nearby Data", 2, 5, 3)

	tests := []struct {
		kind string
		want float64
	}{
		{"ticketmaster_event", 2},
		{"regular_event", 5},
		{"location", 3},
	}
	for _, tt := range tests {
		got := gatherCounter(t, registry, MetricItemsFetchedTotal, map[string]string{
			"endpoint": "Nearby Data",
			"kind":     tt.kind,
		})
		if got != tt.want {
			t.Errorf("items{kind=%s} = %f, want %f", tt.kind, got, tt.want)
		}
	}
}

func TestMetrics_ObserveCacheLookup(t *testing.T) {
	metrics := NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}

	metrics.ObserveCacheLookup(CacheHit)
	metrics.ObserveCacheLookup(CacheHit)
	metrics.ObserveCacheLookup(CacheMiss)
	metrics.ObserveCacheLookup(CacheError)

	tests := []struct {
		outcome string
		want    float64
	}{
		{CacheHit, 2},
		{CacheMiss, 1},
		{CacheError, 1},
	}
	for _, tt := range tests {
		got := gatherCounter(t, registry, MetricCacheLookupsTotal, map[string]string{"outcome": tt.outcome})
		if got != tt.want {
			t.Errorf("cache_lookups{outcome=%s} = %f, want %f", tt.outcome, got, tt.want)
		}
	}
}

func TestMetrics_DoubleRegisterFails(t *testing.T) {
	metrics := NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := metrics.Register(registry); err == nil {
		t.Error("second Register should fail")
	}
}
