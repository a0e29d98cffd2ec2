package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store modes.
const (
	ModeAuto    = "auto"
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	// CORSOrigins lists the hosts allowed to call the API from a browser.
	CORSOrigins []string

	// StoreMode selects the Store Gateway: online requires PostgreSQL,
	// offline runs on fixtures, auto tries PostgreSQL and falls back.
	StoreMode string

	DB      DatabaseConfig
	Redis   RedisConfig
	Store   StoreConfig
	Outbox  OutboxConfig
	Breaker BreakerConfig
	Import  ImportConfig
	Kafka   KafkaConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Configured reports whether enough parameters are set to attempt a connection.
func (c DatabaseConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Name != ""
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StoreConfig contains storefront business defaults.
type StoreConfig struct {
	ShippingFee    int64
	CartTTL        time.Duration
	IdempotencyTTL time.Duration
	MigrationsPath string
}

// OutboxConfig controls the pending-write drain.
type OutboxConfig struct {
	Interval    time.Duration
	MaxAttempts int
	BatchSize   int
}

// BreakerConfig tunes the circuit breaker in front of the Store Gateway.
type BreakerConfig struct {
	Timeout  time.Duration
	Failures int
}

// ImportConfig bounds remote image conversion during bulk import.
type ImportConfig struct {
	ImageTimeout     time.Duration
	MaxImageBytes    int64
	ImageConcurrency int
}

// KafkaConfig enables the change-event publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.StoreMode = strings.ToLower(getEnv("STORE_MODE", ModeAuto))
	cfg.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "localhost:3000,127.0.0.1:3000"))

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Store.ShippingFee = int64(getEnvInt("SHIPPING_FEE", 5000))
	cfg.Store.MigrationsPath = getEnv("MIGRATIONS_PATH", "migrations")
	cfg.Outbox.MaxAttempts = getEnvInt("OUTBOX_MAX_ATTEMPTS", 8)
	cfg.Outbox.BatchSize = getEnvInt("OUTBOX_BATCH_SIZE", 50)
	cfg.Breaker.Failures = getEnvInt("GATEWAY_BREAKER_FAILURES", 5)
	cfg.Import.MaxImageBytes = int64(getEnvInt("IMPORT_MAX_IMAGE_BYTES", 2<<20))
	cfg.Import.ImageConcurrency = getEnvInt("IMPORT_IMAGE_CONCURRENCY", 4)

	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "storefront.events")
	cfg.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", ""))

	// Durations
	var err error
	if cfg.Store.CartTTL, err = parseDurationEnv("CART_TTL", "168h"); err != nil {
		return nil, fmt.Errorf("invalid CART_TTL: %w", err)
	}
	if cfg.Store.IdempotencyTTL, err = parseDurationEnv("IDEMPOTENCY_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	if cfg.Outbox.Interval, err = parseDurationEnv("OUTBOX_INTERVAL", "5s"); err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_INTERVAL: %w", err)
	}
	if cfg.Breaker.Timeout, err = parseDurationEnv("GATEWAY_BREAKER_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_BREAKER_TIMEOUT: %w", err)
	}
	if cfg.Import.ImageTimeout, err = parseDurationEnv("IMPORT_IMAGE_TIMEOUT", "10s"); err != nil {
		return nil, fmt.Errorf("invalid IMPORT_IMAGE_TIMEOUT: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreMode {
	case ModeAuto, ModeOnline, ModeOffline:
	default:
		return fmt.Errorf("invalid STORE_MODE %q: want auto, online or offline", c.StoreMode)
	}

	if c.StoreMode == ModeOnline && !c.DB.Configured() {
		return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if c.JWTSecret == "" && c.Env != "development" {
		return errors.New("JWT_SECRET must be set for authentication")
	}

	if c.Store.ShippingFee < 0 {
		return errors.New("SHIPPING_FEE must be >= 0")
	}
	if c.Outbox.MaxAttempts < 1 {
		return errors.New("OUTBOX_MAX_ATTEMPTS must be >= 1")
	}
	if c.Import.ImageConcurrency < 1 {
		c.Import.ImageConcurrency = 1
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// splitList splits a comma separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
