package config

import (
	"errors"
	"fmt"
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
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	CurrencyCode       string

	AdminJWTSecret    string
	AdminPasswordHash string
	AdminTokenTTL     time.Duration

	SessionTTL      time.Duration
	CatalogCacheTTL time.Duration
	BodyLimitBytes  int64

	RateLimitWindow time.Duration
	RateLimitMax    int
	IdempotencyTTL  time.Duration
	ShutdownTimeout time.Duration

	TasksEnabled      bool
	WorkerConcurrency int
	SeedOnBoot        bool
	MigrateOnBoot     bool

	Obs ObsConfig
}

// ObsConfig groups logging, metrics and tracing settings.
type ObsConfig struct {
	LogLevel         string
	LogFormat        string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
	TracingEnabled bool
	OTLPEndpoint   string
	ServiceName    string
	SampleRatio    float64
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
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "KRW"),
		AdminJWTSecret:     k.String("ADMIN_JWT_SECRET"),
		AdminPasswordHash:  strings.TrimSpace(k.String("ADMIN_PASSWORD_HASH")),
		AdminTokenTTL:      parseDuration(k.String("ADMIN_TOKEN_TTL"), "1h"),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "24h"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		BodyLimitBytes:     parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       int(parseInt64(k.String("RATE_LIMIT_MAX"), 120)),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		TasksEnabled:       parseBool(k.String("TASKS_ENABLED")),
		WorkerConcurrency:  int(parseInt64(k.String("WORKER_CONCURRENCY"), 10)),
		SeedOnBoot:         parseBoolDefault(k.String("SEED_ON_BOOT"), true),
		MigrateOnBoot:      parseBoolDefault(k.String("MIGRATE_ON_BOOT"), true),
		Obs: ObsConfig{
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			MetricsEnabled:   parseBoolDefault(k.String("OBS_METRICS_ENABLED"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko_cart"),
			MetricsBuckets:   strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
			PprofEnabled:     parseBool(k.String("OBS_PPROF_ENABLED")),
			PprofUser:        strings.TrimSpace(k.String("OBS_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("OBS_PPROF_BASIC_AUTH_PASS")),
			TracingEnabled: parseBool(k.String("OBS_TRACING_ENABLED")),
			OTLPEndpoint:   k.String("OBS_OTLP_ENDPOINT"),
			ServiceName:    valueOrDefault(k.String("OBS_SERVICE_NAME"), "toko-cart-api"),
			SampleRatio:    parseFloat(k.String("OBS_TRACING_SAMPLE_RATIO"), 0.1),
		},
	}

	if cfg.AdminJWTSecret == "" {
		return nil, errors.New("ADMIN_JWT_SECRET is required")
	}
	if cfg.IsProduction() && cfg.Obs.PprofEnabled && cfg.Obs.PprofUser == "" {
		return nil, errors.New("OBS_PPROF_BASIC_AUTH_USER is required to expose pprof in production")
	}
	if cfg.TasksEnabled && cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required when TASKS_ENABLED is set")
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

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

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
		return value
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

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt64(value string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
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
