package mapdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gatherpoint/mapfeed/internal/geo"
	"github.com/gatherpoint/mapfeed/internal/tracing"
)

// Fetch-stage constants. The nearby stage requests a fixed 100 mile radius
// and re-filters client-side at 160 km as a belt-and-suspenders check against
// server over-return; the complete stage honors the server-provided radius.
const (
	NearbyRadiusMeters   = 160934
	NearbyClientFilterKm = 160

	DefaultCompleteRadiusMeters = 500000
)

// DefaultTimeout bounds each upstream request.
const DefaultTimeout = 10 * time.Second

// Upstream endpoint paths.
const (
	nearbyPath = "/api/events/nearby"
	mapPath    = "/api/events/user-location"
	healthPath = "/health"
)

// Endpoint labels used in UpstreamError messages.
const (
	endpointNearby = "Nearby Data"
	endpointMap    = "Map Data"
	endpointHealth = "Health Check"
)

// breaker defaults: open after five consecutive failures, retry after 30s.
const (
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

// ServiceConfig configures the upstream map data client.
type ServiceConfig struct {
	// BaseURL of the upstream events backend, without trailing slash.
	BaseURL string

	// Timeout per upstream request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit breaker. Defaults to 5.
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing.
	// Defaults to 30s.
	BreakerTimeout time.Duration

	// Logger for fetch diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics for fetch tracking. Optional.
	Metrics *Metrics
}

// Service fetches map data from the upstream events backend in two stages:
// a fast radius-limited nearby pass and a fuller-radius complete pass. The
// two stages are independent and may be issued concurrently.
type Service struct {
	cfg     ServiceConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
	logger  *slog.Logger
	metrics *Metrics
}

// NewService creates an upstream map data client. The HTTP transport is
// instrumented with OpenTelemetry and guarded by a circuit breaker so a dead
// upstream fails fast instead of tying up request handlers.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:    "mapdata-upstream",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})

	return &Service{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// nearbyRequest is the wire body for the nearby endpoint.
type nearbyRequest struct {
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Radius              float64 `json:"radius"`
	IncludeTicketmaster bool    `json:"includeTicketmaster"`
}

// mapRequest is the wire body for the full-radius endpoint.
type mapRequest struct {
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Radius              float64 `json:"radius"`
	TimeRange           string  `json:"timeRange"`
	IncludeTicketmaster bool    `json:"includeTicketmaster"`
}

// GetNearbyData fetches the fast nearby stage: a fixed 100 mile server
// radius, re-filtered client-side at 160 km. The origin is validated before
// any network call; out-of-range coordinates fail with ErrInvalidCoordinate.
// Distances on returned items are computed relative to origin.
func (s *Service) GetNearbyData(ctx context.Context, origin geo.Point, timeRange string, includeTicketmaster bool) (*Response, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCoordinate, err)
	}

	body := nearbyRequest{
		Latitude:            origin.Lat,
		Longitude:           origin.Lng,
		Radius:              NearbyRadiusMeters,
		IncludeTicketmaster: includeTicketmaster,
	}

	resp, err := s.post(ctx, endpointNearby, nearbyPath, body)
	if err != nil {
		return nil, err
	}

	resp.Events = geo.FilterByRadius(resp.Events, origin, NearbyClientFilterKm, s.logger)
	resp.Locations = geo.FilterByRadius(resp.Locations, origin, NearbyClientFilterKm, s.logger)
	AnnotateDistances(resp, origin)

	s.logFetch(ctx, endpointNearby, timeRange, resp)
	return resp, nil
}

// GetMapData fetches the complete stage over the given radius in meters
// (DefaultCompleteRadiusMeters when zero). The server-provided radius is
// honored without client-side re-filtering.
func (s *Service) GetMapData(ctx context.Context, origin geo.Point, radiusMeters float64, timeRange string, includeTicketmaster bool) (*Response, error) {
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCoordinate, err)
	}
	if radiusMeters <= 0 {
		radiusMeters = DefaultCompleteRadiusMeters
	}

	body := mapRequest{
		Latitude:            origin.Lat,
		Longitude:           origin.Lng,
		Radius:              radiusMeters,
		TimeRange:           timeRange,
		IncludeTicketmaster: includeTicketmaster,
	}

	resp, err := s.post(ctx, endpointMap, mapPath, body)
	if err != nil {
		return nil, err
	}

	AnnotateDistances(resp, origin)

	s.logFetch(ctx, endpointMap, timeRange, resp)
	return resp, nil
}

// Health checks the upstream health endpoint.
func (s *Service) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach upstream: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &UpstreamError{Endpoint: endpointHealth, Status: httpResp.StatusCode, Body: string(raw)}
	}

	var status HealthStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &status, nil
}

// post issues one upstream POST through the circuit breaker and decodes the
// map data response. Non-2xx responses become UpstreamError.
func (s *Service) post(ctx context.Context, endpoint, path string, body any) (*Response, error) {
	start := time.Now()

	ctx, endSpan := tracing.StartUpstreamSpan(ctx, endpoint)
	resp, err := s.breaker.Execute(func() (*Response, error) {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		httpResp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to reach upstream: %w", err)
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read upstream response: %w", err)
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			return nil, &UpstreamError{Endpoint: endpoint, Status: httpResp.StatusCode, Body: string(raw)}
		}

		var decoded Response
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode upstream response: %w", err)
		}
		return &decoded, nil
	})

	duration := time.Since(start)
	endSpan(err)
	if s.metrics != nil {
		s.metrics.ObserveFetch(endpoint, err, duration)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "upstream fetch failed",
			slog.String("endpoint", endpoint),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, err
	}
	return resp, nil
}

// logFetch emits per-stage diagnostics: the ticketmaster/regular partition
// and the bounding box of returned coordinates.
func (s *Service) logFetch(ctx context.Context, endpoint, timeRange string, resp *Response) {
	ticketmaster := 0
	for _, e := range resp.Events {
		if e.IsTicketmaster || e.SourceType == SourceTicketmaster {
			ticketmaster++
		}
	}
	regular := len(resp.Events) - ticketmaster

	if s.metrics != nil {
		s.metrics.AddItems(endpoint, ticketmaster, regular, len(resp.Locations))
	}

	points := make([]geo.Point, 0, len(resp.Events)+len(resp.Locations))
	for _, e := range resp.Events {
		points = append(points, e.Coordinate)
	}
	for _, l := range resp.Locations {
		points = append(points, l.Coordinate)
	}
	bound := geo.Bound(points)

	s.logger.InfoContext(ctx, "map data fetched",
		slog.String("endpoint", endpoint),
		slog.String("time_range", timeRange),
		slog.Int("ticketmaster_events", ticketmaster),
		slog.Int("regular_events", regular),
		slog.Int("locations", len(resp.Locations)),
		slog.Float64("bound_min_lat", bound.Min.Lat()),
		slog.Float64("bound_min_lng", bound.Min.Lon()),
		slog.Float64("bound_max_lat", bound.Max.Lat()),
		slog.Float64("bound_max_lng", bound.Max.Lon()))
}
