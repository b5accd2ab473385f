// Package config provides configuration loading and validation for the map
// feed server. It uses koanf to merge environment variables with optional
// file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the map feed server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Upstream events backend
	UpstreamBaseURL        string `koanf:"upstream_base_url"`
	UpstreamTimeoutSeconds int    `koanf:"upstream_timeout_seconds"`

	// Redis response cache. Empty address disables caching.
	RedisAddr       string `koanf:"redis_addr"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	// Progressive marker rendering
	RenderInitialBatch   int `koanf:"render_initial_batch"`
	RenderIncrement      int `koanf:"render_increment"`
	RenderTickIntervalMS int `koanf:"render_tick_interval_ms"`

	// Marker clustering cells: "rounded" joins coordinates rounded to four
	// decimals, "geohash" uses coarser geohash cells for wide viewports.
	CellKeyMode      string `koanf:"cell_key_mode"`
	GeohashPrecision int    `koanf:"geohash_precision"`

	// CORS allowlist, comma-separated. Empty disables CORS processing.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingProtocol     string  `koanf:"tracing_protocol"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
}

// Configuration validation errors.
var (
	ErrMissingUpstreamBaseURL = errors.New("UPSTREAM_BASE_URL is required")
	ErrInvalidInteger         = errors.New("value must be a valid integer")
	ErrInvalidRenderBatch     = errors.New("render batch sizes must be positive")
	ErrInvalidCellKeyMode     = errors.New(`CELL_KEY_MODE must be "rounded" or "geohash"`)
)

// Accepted CELL_KEY_MODE values.
const (
	CellKeyModeRounded = "rounded"
	CellKeyModeGeohash = "geohash"
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultUpstreamTimeoutSeconds = 10
	DefaultCacheTTLSeconds        = 60
	DefaultRenderInitialBatch     = 20
	DefaultRenderIncrement        = 15
	DefaultRenderTickIntervalMS   = 50
	DefaultCellKeyMode            = CellKeyModeRounded
	DefaultGeohashPrecision       = 6
	DefaultTracingProtocol        = "otlp-http"
)

// DefaultTracingSamplingRate samples every trace; lower it in production.
const DefaultTracingSamplingRate = 1.0

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	upstreamTimeout, timeoutErr := getEnvIntOrDefault("UPSTREAM_TIMEOUT_SECONDS", k.Int("upstream_timeout_seconds"), DefaultUpstreamTimeoutSeconds)
	if timeoutErr != nil {
		loadErrs = append(loadErrs, timeoutErr)
	}

	cacheTTL, ttlErr := getEnvIntOrDefault("CACHE_TTL_SECONDS", k.Int("cache_ttl_seconds"), DefaultCacheTTLSeconds)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	initialBatch, batchErr := getEnvIntOrDefault("RENDER_INITIAL_BATCH", k.Int("render_initial_batch"), DefaultRenderInitialBatch)
	if batchErr != nil {
		loadErrs = append(loadErrs, batchErr)
	}
	increment, incErr := getEnvIntOrDefault("RENDER_INCREMENT", k.Int("render_increment"), DefaultRenderIncrement)
	if incErr != nil {
		loadErrs = append(loadErrs, incErr)
	}
	tickInterval, tickErr := getEnvIntOrDefault("RENDER_TICK_INTERVAL_MS", k.Int("render_tick_interval_ms"), DefaultRenderTickIntervalMS)
	if tickErr != nil {
		loadErrs = append(loadErrs, tickErr)
	}
	geohashPrecision, precisionErr := getEnvIntOrDefault("GEOHASH_PRECISION", k.Int("geohash_precision"), DefaultGeohashPrecision)
	if precisionErr != nil {
		loadErrs = append(loadErrs, precisionErr)
	}

	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefault("ENV", k.String("env"), DefaultEnv),
		UpstreamBaseURL:        getEnvOrKoanf("UPSTREAM_BASE_URL", k, "upstream_base_url"),
		UpstreamTimeoutSeconds: upstreamTimeout,
		RedisAddr:              getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		CacheTTLSeconds:        cacheTTL,
		RenderInitialBatch:     initialBatch,
		RenderIncrement:        increment,
		RenderTickIntervalMS:   tickInterval,
		CellKeyMode:            getEnvOrDefault("CELL_KEY_MODE", k.String("cell_key_mode"), DefaultCellKeyMode),
		GeohashPrecision:       geohashPrecision,
		CORSAllowedOrigins:     getEnvOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		TracingEnabled:         getEnvBool("TRACING_ENABLED", k.Bool("tracing_enabled")),
		TracingEndpoint:        getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingProtocol:        getEnvOrDefault("TRACING_PROTOCOL", k.String("tracing_protocol"), DefaultTracingProtocol),
		TracingInsecure:        getEnvBool("TRACING_INSECURE", k.Bool("tracing_insecure")),
		TracingSamplingRate:    getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// UpstreamTimeout returns the upstream request timeout as a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RenderTickInterval returns the render tick interval as a duration.
func (c *Config) RenderTickInterval() time.Duration {
	return time.Duration(c.RenderTickIntervalMS) * time.Millisecond
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvBool returns the environment variable as bool if set, otherwise the koanf value.
func getEnvBool(envKey string, koanfVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch val {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return koanfVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// Note: a zero value from a YAML file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, ErrInvalidInteger)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float if set and
// parseable, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) float64 {
	if val := os.Getenv(envKey); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	if koanfVal != 0 {
		return koanfVal
	}
	return defaultVal
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.UpstreamBaseURL == "" {
		errs = append(errs, ErrMissingUpstreamBaseURL)
	}
	if c.RenderInitialBatch <= 0 || c.RenderIncrement <= 0 {
		errs = append(errs, ErrInvalidRenderBatch)
	}
	if c.CellKeyMode != CellKeyModeRounded && c.CellKeyMode != CellKeyModeGeohash {
		errs = append(errs, ErrInvalidCellKeyMode)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                    fmt.Sprintf("%d", c.Port),
		"env":                     c.Env,
		"upstream_base_url":       c.UpstreamBaseURL,
		"upstream_timeout_s":      fmt.Sprintf("%d", c.UpstreamTimeoutSeconds),
		"redis_addr":              c.RedisAddr,
		"cache_ttl_s":             fmt.Sprintf("%d", c.CacheTTLSeconds),
		"render_initial_batch":    fmt.Sprintf("%d", c.RenderInitialBatch),
		"render_increment":        fmt.Sprintf("%d", c.RenderIncrement),
		"render_tick_interval_ms": fmt.Sprintf("%d", c.RenderTickIntervalMS),
		"cell_key_mode":           c.CellKeyMode,
		"cors_allowed_origins":    c.CORSAllowedOrigins,
		"tracing_enabled":         fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_endpoint":        c.TracingEndpoint,
		"tracing_protocol":        c.TracingProtocol,
	}
}
