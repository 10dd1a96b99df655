package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "azure/gpt-4o", cfg.Arbitrage.FallbackModel)
	assert.Equal(t, 3, cfg.Arbitrage.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Arbitrage.FailureWindow)
	assert.Equal(t, 3, cfg.Arbitrage.FailureThreshold)
	assert.Equal(t, 300*time.Second, cfg.Arbitrage.Cooldown)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoaderLoadsDefaultsWithNoFile(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "azure/gpt-4o", cfg.Arbitrage.FallbackModel)
}

func TestLoaderReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
arbitrage:
  fallback_model: "custom/fallback"
  max_attempts: 5
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "custom/fallback", cfg.Arbitrage.FallbackModel)
	assert.Equal(t, 5, cfg.Arbitrage.MaxAttempts)
}

func TestLoaderMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/no/such/file.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "azure/gpt-4o", cfg.Arbitrage.FallbackModel)
}

func TestLoaderEnvOverridesDefaults(t *testing.T) {
	t.Setenv("ARBITRAGE_ARBITRAGE_FALLBACK_MODEL", "env/fallback")
	t.Setenv("ARBITRAGE_ARBITRAGE_MAX_ATTEMPTS", "7")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "env/fallback", cfg.Arbitrage.FallbackModel)
	assert.Equal(t, 7, cfg.Arbitrage.MaxAttempts)
}

func TestLoaderEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
arbitrage:
  fallback_model: "yaml/fallback"
`), 0o644))
	t.Setenv("ARBITRAGE_ARBITRAGE_FALLBACK_MODEL", "env/fallback")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "env/fallback", cfg.Arbitrage.FallbackModel)
}

func TestLoaderCustomEnvPrefix(t *testing.T) {
	t.Setenv("MYGATEWAY_ARBITRAGE_FALLBACK_MODEL", "prefixed/fallback")

	cfg, err := NewLoader().WithEnvPrefix("MYGATEWAY").Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed/fallback", cfg.Arbitrage.FallbackModel)
}

func TestLoaderValidatorRuns(t *testing.T) {
	_, err := NewLoader().WithValidator(func(c *Config) error {
		return assertErr{}
	}).Load()
	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "validation failed" }

func TestModelConfigToDefinition(t *testing.T) {
	mc := ModelConfig{ID: "a", Provider: "P1", Tier: "smart", CostPer1kInput: 0.01, CostPer1kOutput: 0.02, Domain: "medical"}
	def := mc.ToDefinition()

	assert.Equal(t, "a", def.ID)
	assert.True(t, def.IsHealthy)
	assert.Equal(t, "medical", def.Domain)
	assert.Equal(t, 0.01, def.CostPer1kInput)
}
