package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Scorer.MaxBoost)
	assert.Equal(t, 30, cfg.Scorer.FreshDays)
	assert.Equal(t, 90, cfg.Scorer.StaleDays)
	assert.InDelta(t, 0.8, cfg.Dedupe.LooseThreshold, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SUBURBMATES_SERVER_PORT", "9999")
	t.Setenv("SUBURBMATES_STORE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Store.Driver = "oracle"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Dedupe.LooseThreshold = 1.5
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Scorer.MaxBoost = 150
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Scorer.StaleDays = 5
	assert.Error(t, bad.Validate())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
