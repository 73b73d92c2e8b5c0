package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file", c.Storage.Snapshots)
	assert.Equal(t, "file", c.Storage.Ledgers)
	assert.Equal(t, 4, c.Pipeline.VelocityWindow)
	assert.Equal(t, 8, c.Pipeline.CooldownDays)
	assert.Equal(t, 0.45, c.Scoring.Weights.Trend)
	assert.Equal(t, 0.65, c.Scoring.Regime.Majority)
	assert.Equal(t, 4, c.Calibration.MinSamples)
	assert.Equal(t, 1, c.Calibration.HorizonDays)
	assert.Equal(t, "imminent", c.Calibration.Scope)
	assert.Equal(t, "directional", c.Calibration.ReportScope)
	assert.Equal(t, 10*time.Second, c.Telegram.Timeout)
	assert.Equal(t, DefaultGrid(), c.Calibration.Grid)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
environment: prod
calibration:
  horizon_days: 3
  scope: actionable
  grid:
    - {rise: 0.8, fall: 0.2}
scoring:
  weights: {pressure: 0.5, velocity: 0.25, trend: 0.25}
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Calibration.HorizonDays)
	assert.Equal(t, "actionable", c.Calibration.Scope)
	assert.Equal(t, []QuantilePair{{Rise: 0.8, Fall: 0.2}}, c.Calibration.Grid)
	assert.Equal(t, 0.5, c.Scoring.Weights.Pressure)
}

func TestValidateRejectsInvertedGrid(t *testing.T) {
	path := writeConfig(t, `
environment: test
calibration:
  grid:
    - {rise: 0.1, fall: 0.9}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fall quantile")
}

func TestValidateRequiresBackendSettings(t *testing.T) {
	path := writeConfig(t, `
environment: test
storage:
  ledgers: postgres
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: test
telegram:
  enabled: true
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("DATA_DIR", "/tmp/pp")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "token", c.Telegram.BotToken)
	assert.Equal(t, "42", c.Telegram.ChatID)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.Equal(t, "/tmp/pp", c.Storage.DataDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
