package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, 500, cfg.Batch.PageSize)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 5.0, cfg.Batch.CommitsPerSecond)

	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 48, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, 0.05, cfg.Monitoring.ErrorRateThreshold)
	assert.Equal(t, 30, cfg.Monitoring.StaleSweepHours)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Scoring defaults line up with the in-code defaults.
	assert.Equal(t, 10.0, cfg.Credibility.TierWeights["standard"])
	assert.Equal(t, 30.0, cfg.Credibility.TierWeights["verified"])
	assert.Equal(t, 60.0, cfg.Credibility.TierWeights["signature"])
	assert.Equal(t, 3.0, cfg.Credibility.CreditMultipliers.AXVerified)
	assert.Equal(t, 50.0, cfg.Credibility.DiminishingReturns.Threshold)
	assert.Equal(t, 2.0, cfg.Credibility.PositiveReviewWeight)

	// Cache stays off unless an address is configured.
	assert.Empty(t, cfg.Cache.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CRED_STORE_DRIVER", "sqlite")
	t.Setenv("CRED_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
