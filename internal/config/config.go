package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           int
	DBPath         string
	JWTSecret      string
	LogLevel       string
	LogFormat      string
	OtelEnabled    bool
	OtelStdout     bool
	RequestTimeout time.Duration
}

// Load reads .env files (when present) into the environment and resolves the
// configuration from environment variables, falling back to defaults.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("PORT", 5000)
	v.SetDefault("DB_PATH", "./tasks.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_STDOUT", false)
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.AutomaticEnv()

	cfg := &Config{
		Port:           v.GetInt("PORT"),
		DBPath:         v.GetString("DB_PATH"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:      strings.ToLower(v.GetString("LOG_FORMAT")),
		OtelEnabled:    v.GetBool("OTEL_ENABLED"),
		OtelStdout:     v.GetBool("OTEL_STDOUT"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Logger() *slog.Logger {
	level := slog.LevelInfo
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
