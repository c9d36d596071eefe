// Package config handles loading and parsing application configuration.
//
// Values come from (highest priority first):
//  1. Environment variables (env:"...")
//  2. The YAML file passed with --config or CONFIG_PATH, if any
//  3. The env-default:"..." values on the struct tags
//
// With no file at all the service still starts, on defaults plus
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers accepted in Storage.Driver.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	Storage    Storage    `yaml:"storage"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Storage selects and configures the record store backend.
type Storage struct {
	// Driver is "memory" (default, nothing survives a restart) or "sqlite".
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`

	// Path is the SQLite database file. Ignored by the memory driver.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"storage/records.db"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8082"`

	// Timeouts guard against slow clients holding connections open.
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`

	// ShutdownTimeout bounds how long in-flight requests get to finish.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Leave it off unless a proxy in front rewrites those headers.
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_SERVER_TRUST_PROXY"`
}

// Metrics controls the Prometheus endpoint, served unless Disabled is set.
// cleanenv applies env-default to every zero value, so this must not be an
// Enabled flag defaulting to true.
type Metrics struct {
	Disabled bool   `yaml:"disabled" env:"METRICS_DISABLED"`
	Path     string `yaml:"path" env:"METRICS_PATH" env-default:"/metrics"`
}

// Load reads the config file at path (if path is non-empty), applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from environment: %w", err)
		}
	} else {
		// os.Stat first so a typo in the path gives a clear message
		// rather than a cryptic parse error.
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file does not exist: %s", path)
			}
			return nil, fmt.Errorf("stat config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q: want %q or %q", c.Storage.Driver, DriverMemory, DriverSQLite)
	}

	if c.HTTPServer.Addr == "" {
		return errors.New("http_server.address is required")
	}

	if !c.Metrics.Disabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /: %q", c.Metrics.Path)
	}

	return nil
}
