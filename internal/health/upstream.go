// Package health provides health check implementations for external dependencies.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// UpstreamChecker probes the events backend's health endpoint.
type UpstreamChecker struct {
	url    string
	client *http.Client
}

// NewUpstreamChecker creates a checker for the upstream events backend.
// baseURL is the backend base URL; the /health path is appended.
func NewUpstreamChecker(baseURL string) *UpstreamChecker {
	return &UpstreamChecker{
		url: baseURL + "/health",
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck performs an HTTP GET against the upstream health endpoint.
func (u *UpstreamChecker) HealthCheck(ctx context.Context) error {
	if u.url == "/health" {
		return fmt.Errorf("upstream url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upstream unhealthy: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
