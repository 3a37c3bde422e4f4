package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Config holds all environment backed configuration for keys-api.
type Config struct {
	// Service
	ServiceName      string        `env:"SERVICE_NAME" envDefault:"keys-api"`
	ServiceNamespace string        `env:"SERVICE_NAMESPACE" envDefault:"skim"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort         int           `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort      int           `env:"METRICS_PORT" envDefault:"9091"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL    string        `env:"DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate    bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	// Auth
	AuthEnabled         bool          `env:"AUTH_ENABLED" envDefault:"true"`
	JWKSURL             string        `env:"JWKS_URL"`
	Issuer              string        `env:"ISSUER"`
	Audience            string        `env:"AUDIENCE"`
	RefreshJWKSInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"5m"`

	// Legacy anonymous access: requests without credentials resolve to a
	// fixed default owner instead of 401. Deliberate opt-in, off by default.
	AnonymousDefaultOwner bool `env:"ANONYMOUS_DEFAULT_OWNER" envDefault:"false"`

	// API keys
	KeyPrefix     string `env:"KEY_PREFIX" envDefault:"ak"`
	MaxKeysPerUser int   `env:"MAX_KEYS_PER_USER" envDefault:"50"`

	// Summarization
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL"`
	SummarizeModel     string        `env:"SUMMARIZE_MODEL" envDefault:"gpt-4o-mini"`
	RemoteFetchTimeout time.Duration `env:"REMOTE_FETCH_TIMEOUT" envDefault:"15s"`
	MaxDocumentBytes   int64         `env:"MAX_DOCUMENT_BYTES" envDefault:"2097152"`

	// Rate limiting
	RateLimitPerMinute float64 `env:"RATE_LIMIT_PER_MINUTE" envDefault:"300"`

	// Observability / Logging
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders  string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	EnableSwagger bool `env:"ENABLE_SWAGGER" envDefault:"true"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.KeyPrefix = strings.TrimSpace(cfg.KeyPrefix)
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ak"
	}

	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.JWKSURL) == "" {
			return nil, fmt.Errorf("JWKS_URL is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.Issuer) == "" {
			return nil, fmt.Errorf("ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.Audience) == "" {
			return nil, fmt.Errorf("AUDIENCE is required when AUTH_ENABLED is true")
		}
	} else if !cfg.AnonymousDefaultOwner {
		return nil, fmt.Errorf("ANONYMOUS_DEFAULT_OWNER must be set when AUTH_ENABLED is false")
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MetricsAddr returns the Prometheus listen address.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}
