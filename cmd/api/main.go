// Package main is the entry point for the map feed server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gatherpoint/mapfeed/internal/api"
	"github.com/gatherpoint/mapfeed/internal/config"
	"github.com/gatherpoint/mapfeed/internal/geo"
	"github.com/gatherpoint/mapfeed/internal/health"
	"github.com/gatherpoint/mapfeed/internal/mapdata"
	"github.com/gatherpoint/mapfeed/internal/middleware"
	"github.com/gatherpoint/mapfeed/internal/render"
	"github.com/gatherpoint/mapfeed/internal/tracing"
)

const serviceName = "mapfeed-api"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Map Feed API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingProtocol,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	fetchMetrics := mapdata.NewMetrics()
	if err := fetchMetrics.Register(registry); err != nil {
		logger.Error("failed to register map data metrics", "error", err)
		os.Exit(1)
	}
	renderMetrics := render.NewMetrics()
	if err := renderMetrics.Register(registry); err != nil {
		logger.Error("failed to register render metrics", "error", err)
		os.Exit(1)
	}

	upstream, err := mapdata.NewService(mapdata.ServiceConfig{
		BaseURL: cfg.UpstreamBaseURL,
		Timeout: cfg.UpstreamTimeout(),
		Logger:  logger,
		Metrics: fetchMetrics,
	})
	if err != nil {
		logger.Error("failed to create upstream client", "error", err)
		os.Exit(1)
	}

	var fetcher mapdata.Fetcher = upstream
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		fetcher = mapdata.NewCachedService(upstream, rdb, cfg.CacheTTL(), logger, fetchMetrics)
		logger.Info("map data cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.CacheTTL())
	}

	renderCfg := render.Config{
		InitialBatch: cfg.RenderInitialBatch,
		Increment:    cfg.RenderIncrement,
		TickInterval: cfg.RenderTickInterval(),
	}

	keyFn := cellKeyFn(cfg)
	mapHandlers := api.NewMapHandlers(fetcher, keyFn, logger)
	streamHandlers := api.NewStreamHandlers(fetcher, keyFn, renderCfg, clock.New(), logger, renderMetrics)

	healthCfg := api.HealthHandlersConfig{
		UpstreamChecker: health.NewUpstreamChecker(cfg.UpstreamBaseURL),
	}
	if rdb != nil {
		healthCfg.RedisChecker = health.NewRedisChecker(rdb)
	}
	healthHandlers := api.NewHealthHandlers(healthCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/map/markers", mapHandlers.Markers)
	mux.HandleFunc("/api/map/filters", mapHandlers.Filters)
	mux.HandleFunc("/api/map/stream", streamHandlers.Stream)
	mux.HandleFunc("/healthz", healthHandlers.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"` + serviceName + `","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware order: request ID first so every later stage can log it,
	// tracing before logging so log lines carry span context.
	var handler http.Handler = mux
	handler = middleware.CORS(corsConfig(cfg))(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}

	logger.Info("server stopped")
}

// cellKeyFn picks the marker clustering key from config: geohash cells for
// wide viewports, rounded coordinate cells otherwise.
func cellKeyFn(cfg *config.Config) geo.CellKeyFunc {
	if cfg.CellKeyMode == config.CellKeyModeGeohash {
		return geo.GeohashCellKey(cfg.GeohashPrecision)
	}
	return geo.RoundedCellKey(geo.DefaultCellDecimals)
}

// corsConfig builds the CORS allowlist from the comma-separated config value.
func corsConfig(cfg *config.Config) middleware.CORSConfig {
	var origins []string
	for _, o := range strings.Split(cfg.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return middleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}
}
