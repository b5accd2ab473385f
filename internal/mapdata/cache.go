package mapdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/gatherpoint/mapfeed/internal/geo"
	"github.com/gatherpoint/mapfeed/internal/tracing"
)

// DefaultCacheTTL bounds how long a fetched stage is reused. Map data is
// fetched fresh per query upstream, so the TTL stays short.
const DefaultCacheTTL = 60 * time.Second

// cacheKeyDecimals controls origin rounding in cache keys: queries within the
// same ~11 m cell share an entry.
const cacheKeyDecimals = 4

// Fetcher is the two-stage map data contract implemented by Service and by
// the redis-backed CachedService that wraps it.
type Fetcher interface {
	GetNearbyData(ctx context.Context, origin geo.Point, timeRange string, includeTicketmaster bool) (*Response, error)
	GetMapData(ctx context.Context, origin geo.Point, radiusMeters float64, timeRange string, includeTicketmaster bool) (*Response, error)
}

// CachedService decorates a Fetcher with a redis cache. Cache failures are
// logged and degrade to a direct fetch; they never fail the request.
type CachedService struct {
	inner   Fetcher
	rdb     *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// NewCachedService wraps inner with a redis cache. TTL defaults to
// DefaultCacheTTL when zero.
func NewCachedService(inner Fetcher, rdb *redis.Client, ttl time.Duration, logger *slog.Logger, metrics *Metrics) *CachedService {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedService{
		inner:   inner,
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// GetNearbyData implements Fetcher with cache-aside semantics.
func (c *CachedService) GetNearbyData(ctx context.Context, origin geo.Point, timeRange string, includeTicketmaster bool) (*Response, error) {
	key := c.key("nearby", origin, 0, timeRange, includeTicketmaster)
	if resp, ok := c.lookup(ctx, key); ok {
		return resp, nil
	}

	resp, err := c.inner.GetNearbyData(ctx, origin, timeRange, includeTicketmaster)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, resp)
	return resp, nil
}

// GetMapData implements Fetcher with cache-aside semantics.
func (c *CachedService) GetMapData(ctx context.Context, origin geo.Point, radiusMeters float64, timeRange string, includeTicketmaster bool) (*Response, error) {
	key := c.key("map", origin, radiusMeters, timeRange, includeTicketmaster)
	if resp, ok := c.lookup(ctx, key); ok {
		return resp, nil
	}

	resp, err := c.inner.GetMapData(ctx, origin, radiusMeters, timeRange, includeTicketmaster)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, resp)
	return resp, nil
}

// key builds the cache key for one stage query. The origin is rounded so
// jittering device fixes within a few meters share an entry.
func (c *CachedService) key(stage string, origin geo.Point, radiusMeters float64, timeRange string, includeTicketmaster bool) string {
	cell := geo.RoundedCellKey(cacheKeyDecimals)(origin)
	return fmt.Sprintf("mapfeed:%s:%s:%.0f:%s:%t", stage, cell, radiusMeters, timeRange, includeTicketmaster)
}

// lookup returns a cached response, or false on miss or any redis/decode
// failure.
func (c *CachedService) lookup(ctx context.Context, key string) (*Response, bool) {
	if c.rdb == nil {
		return nil, false
	}

	ctx, endSpan := tracing.StartCacheSpan(ctx, tracing.CacheOperationGet)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		endSpan(nil)
	} else {
		endSpan(err)
	}
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "map data cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
			c.observe(CacheError)
			return nil, false
		}
		c.observe(CacheMiss)
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.WarnContext(ctx, "map data cache entry corrupt",
			slog.String("key", key),
			slog.String("error", err.Error()))
		c.observe(CacheError)
		return nil, false
	}

	c.observe(CacheHit)
	return &resp, true
}

// store writes a response to the cache. Failures are logged, never returned.
func (c *CachedService) store(ctx context.Context, key string, resp *Response) {
	if c.rdb == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode map data for cache",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}

	ctx, endSpan := tracing.StartCacheSpan(ctx, tracing.CacheOperationSet)
	err = c.rdb.Set(ctx, key, raw, c.ttl).Err()
	endSpan(err)
	if err != nil {
		c.logger.WarnContext(ctx, "map data cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func (c *CachedService) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveCacheLookup(outcome)
	}
}
