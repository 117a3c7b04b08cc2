package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pricecast/internal/domain"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// inDir runs the test from dir so .env lookups are isolated.
func inDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Decision.TopN)
	assert.Equal(t, 0.10, cfg.Simulate.MigrationCap)
	assert.Equal(t, -2.0, cfg.Segment.DefaultElasticity)
	assert.Equal(t, -2.944, cfg.LagModel.Intercept)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pricecast.yaml", `
data: ./snapshot.yaml
log:
  level: debug
simulate:
  migration_cap: 0.05
  proxy_tiers:
    platinum_pass:
      donor_tier: premium_pass
      adoption_rate: 0.1
      demand_elasticity: -0.8
decision:
  top_n: 5
lag_model:
  breaker:
    timeout: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./snapshot.yaml", cfg.Data)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format, "unset keys keep defaults")
	assert.Equal(t, 0.05, cfg.Simulate.MigrationCap)
	assert.Equal(t, 0.25, cfg.Simulate.MigrationFactor)
	assert.Contains(t, cfg.Simulate.ProxyTiers, domain.TierID("vip_pass"))
	assert.Equal(t, 0.1, cfg.Simulate.ProxyTiers["platinum_pass"].AdoptionRate)
	assert.Equal(t, 5, cfg.Decision.TopN)
	assert.Equal(t, 0.02, cfg.Decision.DefaultChurnCap)
	assert.Equal(t, 45*time.Second, cfg.LagModel.Breaker.Timeout)
	assert.Equal(t, uint32(3), cfg.LagModel.Breaker.ConsecutiveFailures)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "simulate: [1, 2"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"cap over one", "simulate:\n  migration_cap: 1.5\n"},
		{"zero horizon", "simulate:\n  horizon_months: 0\n"},
		{"proxy without donor", "simulate:\n  proxy_tiers:\n    x:\n      adoption_rate: 0.1\n"},
		{"zero top n", "decision:\n  top_n: 0\n"},
		{"risk bands inverted", "decision:\n  risk:\n    medium_at: 5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "c.yaml", tt.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestFromEnv(t *testing.T) {
	dir := t.TempDir()
	inDir(t, dir)
	path := writeFile(t, dir, "c.yaml", "data: from-file.yaml\nlog:\n  level: warn\n")

	t.Run("no file", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		t.Setenv(EnvData, "")
		t.Setenv(EnvLogLevel, "")
		cfg, err := FromEnv("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("config env names the file", func(t *testing.T) {
		t.Setenv(EnvConfig, path)
		t.Setenv(EnvData, "")
		t.Setenv(EnvLogLevel, "")
		cfg, err := FromEnv("")
		require.NoError(t, err)
		assert.Equal(t, "from-file.yaml", cfg.Data)
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		t.Setenv(EnvData, "from-env.yaml")
		t.Setenv(EnvLogLevel, "error")
		cfg, err := FromEnv(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env.yaml", cfg.Data)
		assert.Equal(t, "error", cfg.Log.Level)
	})

	t.Run("invalid env level", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		t.Setenv(EnvData, "")
		t.Setenv(EnvLogLevel, "chatty")
		_, err := FromEnv("")
		assert.Error(t, err)
	})
}

func TestFromEnvReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	inDir(t, dir)
	writeFile(t, dir, ".env", EnvData+"=dotenv.yaml\n")

	t.Setenv(EnvConfig, "")
	t.Setenv(EnvLogLevel, "")
	// empty value set by Setenv is not replaced by godotenv, so unset it
	t.Setenv(EnvData, "")
	require.NoError(t, os.Unsetenv(EnvData))

	cfg, err := FromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv.yaml", cfg.Data)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load("../../config/pricecast.example.yaml")
	require.NoError(t, err)

	want := Default()
	want.Data = "data/reference.yaml"
	assert.Equal(t, want, cfg)
}
