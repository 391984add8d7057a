// Package config loads the card importer's settings from the environment.
package config

import (
	"fmt"
	"math"
	"time"

	pkgconfig "github.com/paramirez/deckzter-seed/pkg/config"
)

// Config holds all configuration for the card importer and its server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort          int `env:"IMPORTER_HTTP_PORT" envDefault:"8010"`
	ImportTimeoutMins int `env:"IMPORT_TIMEOUT_MINUTES" envDefault:"30"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Kafka; events are dropped when no brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Redis page cache; disabled when empty.
	RedisURL          string `env:"REDIS_URL"`
	PageCacheTTLMins  int    `env:"SCRYFALL_PAGE_CACHE_TTL_MINUTES" envDefault:"360"`
	ScryfallBaseURL   string `env:"SCRYFALL_BASE_URL" envDefault:"https://api.scryfall.com"`
	ScryfallUserAgent string `env:"SCRYFALL_USER_AGENT" envDefault:"deckzter-seed/1.0"`
	ScryfallRateMs    int    `env:"SCRYFALL_REQUEST_INTERVAL_MS" envDefault:"100"`

	// Elasticsearch card index; disabled when empty.
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"catalog_cards"`

	// Import endpoint auth; the endpoint is open when the secret is empty.
	JWTSecret string `env:"IMPORT_JWT_SECRET"`
	JWTIssuer string `env:"IMPORT_JWT_ISSUER"`

	// Pricing
	ExchangeRate float64 `env:"EXCHANGE_RATE" envDefault:"4000"`
	Currency     string  `env:"CURRENCY_CODE" envDefault:"cop"`
	ProductType  string  `env:"PRODUCT_TYPE" envDefault:"Carta"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Prometheus Pushgateway for one-shot CLI runs; disabled when empty.
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads .env files, then environment variables, and validates the
// result.
func Load() (*Config, error) {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("load importer config: %w", err)
	}

	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load importer config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.ImportTimeoutMins < 1 {
		return fmt.Errorf("IMPORT_TIMEOUT_MINUTES must be at least 1, got %d", c.ImportTimeoutMins)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if math.IsNaN(c.ExchangeRate) || math.IsInf(c.ExchangeRate, 0) || c.ExchangeRate <= 0 {
		return fmt.Errorf("EXCHANGE_RATE must be a positive finite number, got %f", c.ExchangeRate)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY_CODE must be a 3-letter ISO code, got %q", c.Currency)
	}
	if c.ProductType == "" {
		return fmt.Errorf("PRODUCT_TYPE is required")
	}
	if c.ScryfallRateMs < 0 {
		return fmt.Errorf("SCRYFALL_REQUEST_INTERVAL_MS must not be negative, got %d", c.ScryfallRateMs)
	}
	if c.PageCacheTTLMins < 1 {
		return fmt.Errorf("SCRYFALL_PAGE_CACHE_TTL_MINUTES must be at least 1, got %d", c.PageCacheTTLMins)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("IMPORT_JWT_SECRET must be at least 32 characters")
	}
	if math.IsNaN(c.OTELSampleRate) || c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// ScryfallRequestInterval is the minimum spacing between Scryfall requests.
func (c *Config) ScryfallRequestInterval() time.Duration {
	return time.Duration(c.ScryfallRateMs) * time.Millisecond
}

// PageCacheTTL is how long fetched search pages stay cached.
func (c *Config) PageCacheTTL() time.Duration {
	return time.Duration(c.PageCacheTTLMins) * time.Minute
}

// ImportTimeout bounds a single import run.
func (c *Config) ImportTimeout() time.Duration {
	return time.Duration(c.ImportTimeoutMins) * time.Minute
}
