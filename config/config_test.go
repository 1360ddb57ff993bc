package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreUsableStandalone(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "XAUUSD", cfg.Trading.Symbol)
	assert.Greater(t, cfg.Trading.MaxLotSize, cfg.Trading.MinLotSize)
	assert.NotEmpty(t, cfg.Rules)
	sum := 0.0
	for _, r := range cfg.Rules {
		sum += r.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestLoadWithoutFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "Balanced", cfg.Trading.Mode)
}

func TestEnvOverrideTakesPrecedence(t *testing.T) {
	t.Setenv("TRADING_SYMBOL", "XAGUSD")
	t.Setenv("TRADING_MODE", "Aggressive")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "XAGUSD", cfg.Trading.Symbol)
	assert.Equal(t, "Aggressive", cfg.Trading.Mode)
}
