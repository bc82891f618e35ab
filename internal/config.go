package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dukerupert/sparks/internal/telemetry"
)

type Config struct {
	Env       string
	LogLevel  string
	API       APIConfig
	Cache     CacheConfig
	NATS      NATSConfig
	Metrics   MetricsConfig
	Sentry    telemetry.SentryConfig
	DevServer DevServerConfig
}

// APIConfig points the client at the catalog/cart service.
type APIConfig struct {
	// BaseURL is the service root, e.g. "https://api.example.org".
	BaseURL string `validate:"required,url"`

	// AccessToken is the bearer token for cart calls. Empty means signed out:
	// catalog commands work, cart commands fail with an auth error.
	AccessToken string

	// Timeout bounds each request.
	Timeout time.Duration `validate:"gt=0"`

	// PagePrefetch is how many pages `products` loads when --pages is not given.
	PagePrefetch int `validate:"gte=1,lte=50"`
}

// CacheConfig selects the product-detail cache.
// With RedisURL empty an in-process cache is used.
type CacheConfig struct {
	RedisURL string `validate:"omitempty,url"`
	Prefix   string
	TTL      time.Duration `validate:"gte=0"`
}

// NATSConfig enables publishing notifications and cart counts.
// Disabled when URL is empty.
type NATSConfig struct {
	URL           string `validate:"omitempty,url"`
	SubjectPrefix string `validate:"required"`
}

type MetricsConfig struct {
	Namespace string `validate:"required"`
}

// DevServerConfig configures the `devserver` command.
type DevServerConfig struct {
	Addr     string `validate:"required,hostname_port"`
	Products int    `validate:"gte=1"`
	PageSize int    `validate:"gte=1"`
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Debug(".env file not found, using environment variables and defaults")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("SPARKS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return load(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("PAGE_PREFETCH", 1)
	v.SetDefault("CACHE_PREFIX", "sparks:")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("NATS_SUBJECT_PREFIX", "sparks")
	v.SetDefault("METRICS_NAMESPACE", "sparks")
	v.SetDefault("SENTRY_ENABLED", false) // Disabled by default for development
	v.SetDefault("SENTRY_ENVIRONMENT", "development")
	v.SetDefault("SENTRY_SAMPLE_RATE", 1.0)
	v.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.0)
	v.SetDefault("DEVSERVER_ADDR", "localhost:8080")
	v.SetDefault("DEVSERVER_PRODUCTS", 60)
	v.SetDefault("DEVSERVER_PAGE_SIZE", 10)
}

// load builds and validates a Config from v.
func load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:      strings.ToLower(v.GetString("ENV")),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		API: APIConfig{
			BaseURL:      strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
			AccessToken:  v.GetString("ACCESS_TOKEN"),
			Timeout:      v.GetDuration("HTTP_TIMEOUT"),
			PagePrefetch: v.GetInt("PAGE_PREFETCH"),
		},
		Cache: CacheConfig{
			RedisURL: v.GetString("REDIS_URL"),
			Prefix:   v.GetString("CACHE_PREFIX"),
			TTL:      v.GetDuration("CACHE_TTL"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Metrics: MetricsConfig{
			Namespace: v.GetString("METRICS_NAMESPACE"),
		},
		Sentry: telemetry.SentryConfig{
			DSN:              v.GetString("SENTRY_DSN"),
			Enabled:          v.GetBool("SENTRY_ENABLED"),
			Environment:      v.GetString("SENTRY_ENVIRONMENT"),
			Release:          v.GetString("SENTRY_RELEASE"),
			SampleRate:       v.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: v.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Debug:            v.GetBool("SENTRY_DEBUG"),
		},
		DevServer: DevServerConfig{
			Addr:     v.GetString("DEVSERVER_ADDR"),
			Products: v.GetInt("DEVSERVER_PRODUCTS"),
			PageSize: v.GetInt("DEVSERVER_PAGE_SIZE"),
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Sentry.Enabled && cfg.Sentry.DSN == "" && cfg.Env == "prod" {
		return nil, fmt.Errorf("SENTRY_DSN must be set when SENTRY_ENABLED is true in production")
	}

	return cfg, nil
}
