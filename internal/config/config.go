// Package config loads server settings from defaults, an optional TOML
// file, the environment and command-line flags, in that order.
package config

import (
	"fmt"
	"time"
)

const (
	DefaultAddr           = ":8080"
	DefaultDriver         = "sqlite"
	DefaultRequestTimeout = 15 * time.Second
	DefaultRateBurst      = 10
)

// Config is the full server configuration.
type Config struct {
	Addr      string          `toml:"addr"`
	Store     StoreConfig     `toml:"store"`
	Log       LogConfig       `toml:"log"`
	HTTP      HTTPConfig      `toml:"http"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Tracing   TracingConfig   `toml:"tracing"`
}

// StoreConfig selects the task repository. Driver is one of memory,
// sqlite, postgres or mysql; an empty sqlite DSN is an in-memory database
// and a DSN without the file: prefix is taken as a file path.
type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type HTTPConfig struct {
	RequestTimeout time.Duration `toml:"request_timeout"`
	CORSOrigins    []string      `toml:"cors_origins"`
}

// RateLimitConfig is per client IP; RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// TracingConfig selects a span exporter: none, stdout or otlp.
type TracingConfig struct {
	Exporter    string `toml:"exporter"`
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Addr:  DefaultAddr,
		Store: StoreConfig{Driver: DefaultDriver},
		Log:   LogConfig{Level: "info", Format: "json"},
		HTTP: HTTPConfig{
			RequestTimeout: DefaultRequestTimeout,
			CORSOrigins:    []string{"*"},
		},
		RateLimit: RateLimitConfig{Burst: DefaultRateBurst},
		Metrics:   MetricsConfig{Enabled: true},
		Tracing:   TracingConfig{Exporter: "none", ServiceName: "task-tracker"},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive, got %s", c.HTTP.RequestTimeout)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must not be negative")
	}
	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter)
	}
	return nil
}
