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
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "http://localhost:8091", cfg.Triage.URL)
	assert.True(t, cfg.Triage.Enabled)
	assert.Equal(t, 8, cfg.Pipeline.MaxConcurrentCampaigns)
	assert.Equal(t, []int{7, 30}, cfg.Feedback.Horizons)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ADSPEND_STORE_DRIVER", "sqlite")
	t.Setenv("ADSPEND_PIPELINE_MAX_CONCURRENT_CAMPAIGNS", "2")
	t.Setenv("ADSPEND_TRIAGE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 2, cfg.Pipeline.MaxConcurrentCampaigns)
	assert.False(t, cfg.Triage.Enabled)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "shouty", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
