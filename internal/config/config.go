// Package config provides configuration loading for weekpulse.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then WEEKPULSE_* environment variables. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Storage drivers understood by the storage factory.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds the complete weekpulse configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Insight   InsightConfig   `koanf:"insight"`
	Goals     GoalsConfig     `koanf:"goals"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string `koanf:"cors_origins"`
}

// StorageConfig selects and configures the key-value persistence backend.
type StorageConfig struct {
	Driver string `koanf:"driver"` // memory, file, sqlite, postgres
	Path   string `koanf:"path"`   // directory for file, database file for sqlite
	DSN    Secret `koanf:"dsn"`    // postgres connection string
	Watch  bool   `koanf:"watch"`  // reload history when the file backend changes on disk
}

// InsightConfig configures the remote insight client.
//
// The API key here is a process-wide default. A key stored on the reflection
// profile takes precedence.
type InsightConfig struct {
	BaseURL     string   `koanf:"base_url"`
	Model       string   `koanf:"model"`
	APIKey      Secret   `koanf:"api_key"`
	Timeout     Duration `koanf:"timeout"`
	MaxRetries  int      `koanf:"max_retries"`
	RateLimit   float64  `koanf:"rate_limit"` // requests per second
	Burst       int      `koanf:"burst"`
	Temperature float64  `koanf:"temperature"`
	Scrub       bool     `koanf:"scrub"` // redact secrets from reflection text before sending
	Allowlist   string   `koanf:"allowlist"`
}

// GoalsConfig configures the SNS goal tracker.
type GoalsConfig struct {
	HistoryLimit int `koanf:"history_limit"`
}

// LoggingConfig holds the subset of logging settings exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	Protocol       string   `koanf:"protocol"` // grpc or http/protobuf
	Insecure       bool     `koanf:"insecure"`
	ServiceName    string   `koanf:"service_name"`
	SamplingRate   float64  `koanf:"sampling_rate"`
	ExportInterval Duration `koanf:"export_interval"`
}

// Default returns configuration with production-ready defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Driver: StorageFile,
			Path:   "~/.local/share/weekpulse",
		},
		Insight: InsightConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4o-mini",
			Timeout:     Duration(30 * time.Second),
			MaxRetries:  1,
			RateLimit:   1,
			Burst:       2,
			Temperature: 0.7,
			Scrub:       true,
		},
		Goals: GoalsConfig{
			HistoryLimit: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			Insecure:       true,
			ServiceName:    "weekpulse",
			SamplingRate:   1.0,
			ExportInterval: Duration(15 * time.Second),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageFile, StorageSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case StoragePostgres:
		if !c.Storage.DSN.IsSet() {
			return errors.New("storage.dsn is required for driver \"postgres\"")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Watch && c.Storage.Driver != StorageFile {
		return errors.New("storage.watch is only supported by the file driver")
	}

	if c.Insight.BaseURL == "" {
		return errors.New("insight.base_url is required")
	}
	if c.Insight.Timeout.Duration() <= 0 {
		return errors.New("insight.timeout must be positive")
	}
	if c.Insight.MaxRetries < 0 {
		return fmt.Errorf("insight.max_retries must be >= 0, got %d", c.Insight.MaxRetries)
	}
	if c.Insight.RateLimit <= 0 || c.Insight.Burst < 1 {
		return errors.New("insight.rate_limit must be positive and insight.burst at least 1")
	}
	if c.Insight.Temperature < 0 || c.Insight.Temperature > 2 {
		return fmt.Errorf("insight.temperature must be between 0 and 2, got %v", c.Insight.Temperature)
	}

	if c.Goals.HistoryLimit < 1 {
		return fmt.Errorf("goals.history_limit must be >= 1, got %d", c.Goals.HistoryLimit)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry.endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			return fmt.Errorf("telemetry.sampling_rate must be between 0 and 1, got %f", c.Telemetry.SamplingRate)
		}
	}

	return nil
}
