package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("1.0.0-test")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "8600", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "1.0.0-test", cfg.Version)
	assert.Equal(t, "data/duckdb/eda.duckdb", cfg.Store.Path)
	assert.Equal(t, "data/processed", cfg.Store.UploadDir)
	assert.Equal(t, 30, cfg.Stats.HistogramBins)
	assert.Equal(t, 100000, cfg.Stats.SampleSize)
	assert.Equal(t, 10, cfg.Stats.DriftBins)
	assert.Equal(t, 20, cfg.Stats.TopK)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_PATH", "/tmp/test.duckdb")
	t.Setenv("STATS_HISTOGRAM_BINS", "50")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "/tmp/test.duckdb", cfg.Store.Path)
	assert.Equal(t, 50, cfg.Stats.HistogramBins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty store path", "STORE_PATH", ""},
		{"histogram bins too low", "STATS_HISTOGRAM_BINS", "1"},
		{"drift bins too low", "STATS_DRIFT_BINS", "1"},
		{"sample size zero", "STATS_SAMPLE_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("dev")
			assert.Error(t, err)
		})
	}
}
