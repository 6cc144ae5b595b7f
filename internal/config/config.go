package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	Storefront StorefrontConfig

	RedisURL         string
	SnapshotCacheTTL time.Duration
	PricingWorkers   int
	RateLimit        string
	CartLockWait     time.Duration
	CartLockTTL      time.Duration
	MaxBodyBytes     int64
	EnableHSTS       bool

	Obs ObsConfig
}

// StorefrontConfig configures the outbound storefront client and its breaker.
type StorefrontConfig struct {
	BaseURL             string
	Timeout             time.Duration
	ReadAttempts        int
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
}

// ObsConfig groups logging, metrics and tracing settings.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Storefront: StorefrontConfig{
			BaseURL:             strings.TrimRight(strings.TrimSpace(k.String("STOREFRONT_BASE_URL")), "/"),
			Timeout:             parseDuration(k.String("STOREFRONT_TIMEOUT"), "5s"),
			ReadAttempts:        parseInt(k.String("STOREFRONT_READ_ATTEMPTS"), 3),
			BreakerMinRequests:  parseInt(k.String("STOREFRONT_BREAKER_MIN_REQUESTS"), 10),
			BreakerFailureRatio: parseFloat(k.String("STOREFRONT_BREAKER_FAILURE_RATIO"), 0.5),
			BreakerOpenFor:      parseDuration(k.String("STOREFRONT_BREAKER_OPEN_FOR"), "30s"),
		},
		RedisURL:         strings.TrimSpace(k.String("REDIS_URL")),
		SnapshotCacheTTL: parseDuration(k.String("SNAPSHOT_CACHE_TTL"), "60s"),
		PricingWorkers:   parseInt(k.String("PRICING_WORKERS"), 8),
		RateLimit:        valueOrDefault(k.String("RATE_LIMIT"), "300-M"),
		CartLockWait:     parseDuration(k.String("CART_LOCK_WAIT"), "5s"),
		CartLockTTL:      parseDuration(k.String("CART_LOCK_TTL"), "30s"),
		MaxBodyBytes:     int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),
		EnableHSTS:       parseBool(k.String("SECURE_ENABLE_HSTS"), false),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko_pricing"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsBuckets:   strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		},
	}

	if cfg.Storefront.BaseURL == "" {
		return nil, errors.New("STOREFRONT_BASE_URL is required")
	}
	if u, err := url.Parse(cfg.Storefront.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("STOREFRONT_BASE_URL is not an absolute url: %q", cfg.Storefront.BaseURL)
	}
	if cfg.Storefront.ReadAttempts < 1 {
		cfg.Storefront.ReadAttempts = 1
	}
	if r := cfg.Storefront.BreakerFailureRatio; r <= 0 || r > 1 {
		return nil, fmt.Errorf("STOREFRONT_BREAKER_FAILURE_RATIO must be in (0,1], got %v", r)
	}
	if cfg.PricingWorkers < 1 {
		cfg.PricingWorkers = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// CacheEnabled reports whether a Redis URL was configured for snapshots and rate limiting.
func (c *Config) CacheEnabled() bool { return c.RedisURL != "" }

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
