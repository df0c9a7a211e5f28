// Package config loads process configuration from the environment and an
// optional YAML metrics file.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hiscores/internal/metric"
)

// Driver names a database backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config is the process configuration.
type Config struct {
	Driver       Driver `env:"HISCORES_DB_DRIVER" envDefault:"sqlite"`
	DBPath       string `env:"HISCORES_DB_PATH" envDefault:"hiscores.db"`
	PostgresDSN  string `env:"HISCORES_POSTGRES_DSN"`
	HooksEnabled bool   `env:"HISCORES_HOOKS_ENABLED" envDefault:"true"`
	LogLevel     string `env:"HISCORES_LOG_LEVEL" envDefault:"info"`
	MetricsFile  string `env:"HISCORES_METRICS_FILE"`

	// Metrics is loaded from MetricsFile.
	Metrics MetricsFile `env:"-"`
}

// MetricsFile is the YAML document at HISCORES_METRICS_FILE.
//
//	denominators:
//	  ehp: 10000
//	  ehb: 100000
type MetricsFile struct {
	Denominators map[string]int64 `yaml:"denominators"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment, then the metrics file when one is named, and
// validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.MetricsFile != "" {
		mf, err := LoadMetricsFile(cfg.MetricsFile)
		if err != nil {
			return nil, err
		}
		cfg.Metrics = *mf
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field combinations.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("HISCORES_DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("HISCORES_POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q (want sqlite or postgres)", c.Driver)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for name, d := range c.Metrics.Denominators {
		if d <= 0 {
			return fmt.Errorf("denominator for %s must be positive, got %d", name, d)
		}
	}
	return nil
}

// LoadMetricsFile parses a metrics YAML file. Unknown keys are rejected.
func LoadMetricsFile(path string) (*MetricsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics file: %w", err)
	}

	var mf MetricsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&mf); err != nil {
		return nil, fmt.Errorf("failed to parse metrics file: %w", err)
	}
	return &mf, nil
}

// ApplyDenominators installs the configured denominators on catalog. Every
// name must be a computed metric.
func (c *Config) ApplyDenominators(catalog *metric.Catalog) error {
	names := make([]string, 0, len(c.Metrics.Denominators))
	for name := range c.Metrics.Denominators {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m, err := catalog.Parse(name)
		if err != nil {
			return err
		}
		d := c.Metrics.Denominators[name]
		if err := catalog.SetDenominator(m, d); err != nil {
			return err
		}
		slog.Debug("metric denominator overridden", "metric", m, "denominator", d)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
