package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUpstreamChecker_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	checker := NewUpstreamChecker(srv.URL)
	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() failed: %v", err)
	}
}

func TestUpstreamChecker_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := NewUpstreamChecker(srv.URL)
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() succeeded, want error on 503")
	}
}

func TestUpstreamChecker_Unreachable(t *testing.T) {
	checker := NewUpstreamChecker("http://127.0.0.1:1")
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() succeeded, want error on unreachable host")
	}
}

func TestUpstreamChecker_NotConfigured(t *testing.T) {
	checker := NewUpstreamChecker("")
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() succeeded, want error when URL missing")
	}
}
