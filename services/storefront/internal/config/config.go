package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	pkgconfig "github.com/cyrasubia/phoinix-storefront/pkg/config"
	"github.com/cyrasubia/phoinix-storefront/pkg/logger"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage"
)

// Catalog providers accepted by CATALOG_PROVIDER.
const (
	CatalogShopify = "shopify"
	CatalogFixture = "fixture"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"STOREFRONT_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	CatalogMaxAge   time.Duration `env:"CATALOG_CACHE_MAX_AGE" envDefault:"60s"`

	// Per-client cart request limit; 0 disables it.
	CartRateLimitRPS   float64 `env:"CART_RATE_LIMIT_RPS" envDefault:"10"`
	CartRateLimitBurst int     `env:"CART_RATE_LIMIT_BURST" envDefault:"20"`

	// Cart store
	CartKey            string        `env:"CART_STORAGE_KEY" envDefault:"phoinix-cart"`
	CartStorageDriver  string        `env:"CART_STORAGE_DRIVER" envDefault:"sqlite"`
	CartMaxQuantity    int           `env:"CART_MAX_LINE_QUANTITY" envDefault:"100"`
	CartWriteQueueSize int           `env:"CART_WRITE_QUEUE_SIZE" envDefault:"64"`
	CartWriteTimeout   time.Duration `env:"CART_WRITE_TIMEOUT" envDefault:"5s"`

	// SQLite
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"data/storefront.db"`
	SQLiteBusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`

	// Redis
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass      string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"storefront:"`

	// Storage queries slower than this are logged; 0 disables it.
	SlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Postgres
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Catalog
	CatalogProvider    string        `env:"CATALOG_PROVIDER" envDefault:"shopify"`
	ShopifyDomain      string        `env:"SHOPIFY_STORE_DOMAIN" envDefault:"demo-store.myshopify.com"`
	ShopifyAPIVersion  string        `env:"SHOPIFY_API_VERSION" envDefault:"2026-01"`
	ShopifyToken       string        `env:"SHOPIFY_STOREFRONT_ACCESS_TOKEN" envDefault:"demo-token"`
	ShopifyEndpoint    string        `env:"SHOPIFY_ENDPOINT" envDefault:""`
	CatalogTimeout     time.Duration `env:"CATALOG_TIMEOUT" envDefault:"10s"`
	CatalogMaxRetries  int           `env:"CATALOG_MAX_RETRIES" envDefault:"0"`
	CatalogBreakerOpen time.Duration `env:"CATALOG_BREAKER_TIMEOUT" envDefault:"30s"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects settings the storefront cannot start with.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if !slices.Contains(storage.Drivers, c.CartStorageDriver) {
		return fmt.Errorf("CART_STORAGE_DRIVER must be one of: %s", strings.Join(storage.Drivers, ", "))
	}
	if strings.TrimSpace(c.CartKey) == "" {
		return errors.New("CART_STORAGE_KEY is required")
	}
	if c.CartMaxQuantity < 1 {
		return fmt.Errorf("CART_MAX_LINE_QUANTITY must be positive, got %d", c.CartMaxQuantity)
	}
	if c.CartWriteQueueSize < 1 {
		return fmt.Errorf("CART_WRITE_QUEUE_SIZE must be positive, got %d", c.CartWriteQueueSize)
	}
	if c.CartStorageDriver == storage.DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return errors.New("SQLITE_PATH is required for the sqlite driver")
	}
	if c.CatalogProvider != CatalogShopify && c.CatalogProvider != CatalogFixture {
		return fmt.Errorf("CATALOG_PROVIDER must be %q or %q", CatalogShopify, CatalogFixture)
	}
	if c.CatalogProvider == CatalogShopify && c.ShopifyDomain == "" && c.ShopifyEndpoint == "" {
		return errors.New("SHOPIFY_STORE_DOMAIN is required for the shopify catalog")
	}
	if c.CartRateLimitRPS > 0 && c.CartRateLimitBurst < 1 {
		return fmt.Errorf("CART_RATE_LIMIT_BURST must be positive, got %d", c.CartRateLimitBurst)
	}
	if c.CatalogMaxRetries < 0 {
		return fmt.Errorf("CATALOG_MAX_RETRIES must not be negative, got %d", c.CatalogMaxRetries)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return errors.New("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	return nil
}
