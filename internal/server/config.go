// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay service.
package server

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the relay configuration. Fields are populated from the
// environment; zero values fall back to the defaults in sanitize.
type Config struct {
	Env            string        `envconfig:"APP_ENV" default:"dev"`
	Port           string        `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"dev-secret-change"`
	MaxMessageSize int64         `envconfig:"MAX_MESSAGE_SIZE" default:"512"`
	FlushInterval  time.Duration `envconfig:"FLUSH_INTERVAL" default:"1s"`
	HistoryLimit   int           `envconfig:"HISTORY_LIMIT" default:"50"`

	// Empty PG_URL selects the in-memory store (dev only).
	PGURL string `envconfig:"PG_URL"`

	// Empty REDIS_ADDR disables the cross-instance bus.
	RedisAddr string `envconfig:"REDIS_ADDR"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	RateLimitBurst    int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	RateLimitInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
}

// LoadConfig reads configuration from the environment and applies defaults
// for anything missing or out of range.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return sanitizeConfig(cfg), nil
}

// NewConfig returns a Config populated with default values for all settings.
func NewConfig() Config {
	return sanitizeConfig(Config{})
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 5
	}
	if cfg.RateLimitInterval <= 0 {
		cfg.RateLimitInterval = time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:8080"}
	}
	return cfg
}

// RateLimit bundles the per-connection limiter parameters.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateLimitBurst, RefillInterval: c.RateLimitInterval}
}
