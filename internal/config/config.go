package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from the environment at startup.
type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL    string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	DataDir     string        `env:"DATA_DIR" envDefault:"./data"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured level string to a slog.Level,
// defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
