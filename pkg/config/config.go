package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tabstat-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8600"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Store configuration (embedded DuckDB)
	Store StoreConfig `yaml:"store"`

	// Statistics defaults applied when a caller does not pass explicit values.
	Stats StatsConfig `yaml:"stats"`
}

// StoreConfig holds analytic store configuration.
type StoreConfig struct {
	// Path is the DuckDB database file. Parent directories are created on open.
	Path string `yaml:"path" env:"STORE_PATH" env-default:"data/duckdb/eda.duckdb"`
	// UploadDir is where uploaded source files are materialized before ingest.
	UploadDir string `yaml:"upload_dir" env:"STORE_UPLOAD_DIR" env-default:"data/processed"`
}

// StatsConfig holds default knobs for the statistics engines.
type StatsConfig struct {
	HistogramBins int `yaml:"histogram_bins" env:"STATS_HISTOGRAM_BINS" env-default:"30"`
	SampleSize    int `yaml:"sample_size" env:"STATS_SAMPLE_SIZE" env-default:"100000"`
	DriftBins     int `yaml:"drift_bins" env:"STATS_DRIFT_BINS" env-default:"10"`
	TopK          int `yaml:"top_k" env:"STATS_TOP_K" env-default:"20"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; the environment alone is sufficient.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate rejects configurations the engines cannot run with.
func (c *Config) validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store path must not be empty")
	}
	if c.Stats.HistogramBins < 2 {
		return fmt.Errorf("histogram_bins must be at least 2, got %d", c.Stats.HistogramBins)
	}
	if c.Stats.DriftBins < 2 {
		return fmt.Errorf("drift_bins must be at least 2, got %d", c.Stats.DriftBins)
	}
	if c.Stats.SampleSize < 1 {
		return fmt.Errorf("sample_size must be positive, got %d", c.Stats.SampleSize)
	}
	return nil
}
