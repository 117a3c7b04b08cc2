// Package config loads the pricecast configuration: a YAML file laid over
// per-package defaults, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/pricecast/internal/decision"
	"github.com/sawpanic/pricecast/internal/lagmodel"
	"github.com/sawpanic/pricecast/internal/segment"
	"github.com/sawpanic/pricecast/internal/simulate"
)

// Environment variables read by FromEnv.
const (
	EnvConfig   = "PRICECAST_CONFIG"
	EnvData     = "PRICECAST_DATA"
	EnvLogLevel = "PRICECAST_LOG_LEVEL"
)

// Config is the complete application configuration.
type Config struct {
	// Data is the reference snapshot document.
	Data string `yaml:"data"`

	Log LogConfig `yaml:"log"`

	// LagBackend is an optional external churn forecaster command line.
	// Empty uses the native model.
	LagBackend string `yaml:"lag_backend"`

	Segment  segment.Config  `yaml:"segment"`
	Simulate simulate.Config `yaml:"simulate"`
	Decision decision.Config `yaml:"decision"`
	LagModel lagmodel.Config `yaml:"lag_model"`
}

// LogConfig selects level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, console or json
}

// Default returns every package default.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "auto"},
		Segment:  *segment.DefaultConfig(),
		Simulate: *simulate.DefaultConfig(),
		Decision: *decision.DefaultConfig(),
		LagModel: *lagmodel.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads .env when present, then the file named by path (or
// PRICECAST_CONFIG when path is empty, or nothing), then applies
// PRICECAST_DATA and PRICECAST_LOG_LEVEL.
func FromEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv(EnvData); v != "" {
		cfg.Data = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would make the engines misbehave.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("log format must be auto, console or json, got %q", c.Log.Format)
	}

	s := c.Simulate
	if s.LifetimeVisits <= 0 {
		return fmt.Errorf("simulate lifetime_visits must be positive, got %f", s.LifetimeVisits)
	}
	if s.ChurnDamping < 0 {
		return fmt.Errorf("simulate churn_damping cannot be negative, got %f", s.ChurnDamping)
	}
	if s.MigrationFactor < 0 {
		return fmt.Errorf("simulate migration_factor cannot be negative, got %f", s.MigrationFactor)
	}
	if s.MigrationCap < 0 || s.MigrationCap > 1 {
		return fmt.Errorf("simulate migration_cap must be between 0 and 1, got %f", s.MigrationCap)
	}
	if s.RampMonths < 0 {
		return fmt.Errorf("simulate ramp_months cannot be negative, got %d", s.RampMonths)
	}
	if s.HorizonMonths <= 0 {
		return fmt.Errorf("simulate horizon_months must be positive, got %d", s.HorizonMonths)
	}
	for tier, p := range s.ProxyTiers {
		if p.DonorTier == "" {
			return fmt.Errorf("simulate proxy %s: donor_tier cannot be empty", tier)
		}
		if p.AdoptionRate <= 0 || p.AdoptionRate > 1 {
			return fmt.Errorf("simulate proxy %s: adoption_rate must be in (0, 1], got %f", tier, p.AdoptionRate)
		}
	}

	d := c.Decision
	if d.TopN <= 0 {
		return fmt.Errorf("decision top_n must be positive, got %d", d.TopN)
	}
	if d.DefaultChurnCap < 0 {
		return fmt.Errorf("decision default_churn_cap cannot be negative, got %f", d.DefaultChurnCap)
	}
	if d.Risk.MediumAt > d.Risk.HighAt {
		return fmt.Errorf("decision risk medium_at (%d) must be <= high_at (%d)", d.Risk.MediumAt, d.Risk.HighAt)
	}

	if c.LagModel.Breaker.ConsecutiveFailures == 0 {
		return fmt.Errorf("lag_model breaker consecutive_failures must be positive")
	}
	return nil
}
