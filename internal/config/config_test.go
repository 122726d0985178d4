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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "s3cret")
	path := writeConfig(t, `
server:
  jwt_secret: "${TEST_JWT_SECRET}"
engine:
  workers: 4
  detector_timeout: 500ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "strategy-updates", cfg.Redis.Channel)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.DetectorTimeout)
	assert.Equal(t, 0.7, cfg.Engine.AlertThresholds.Critical)
	assert.Equal(t, 5, cfg.Engine.HistoryWindow)
	assert.Equal(t, 50, cfg.Engine.HistoryLimit)
}

func TestLoadConfigPartialOverrideKeepsOtherDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  pattern_thresholds:
    high_engagement: 80
  engagement_weights:
    comments: 0.5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	stock := DefaultEngine()
	assert.Equal(t, PatternThresholds{
		HighEngagement: 80,
		Viral:          stock.PatternThresholds.Viral,
		LowEngagement:  stock.PatternThresholds.LowEngagement,
		EmojiResponse:  stock.PatternThresholds.EmojiResponse,
		AIDetection:    stock.PatternThresholds.AIDetection,
	}, cfg.Engine.PatternThresholds)
	assert.Equal(t, EngagementWeights{Likes: 0.3, Comments: 0.5, Shares: 0.2, Emoji: 0.1}, cfg.Engine.EngagementWeights)
	assert.Equal(t, stock.AlertThresholds, cfg.Engine.AlertThresholds)
	assert.Equal(t, stock.Indicators, cfg.Engine.Indicators)
}

func TestLoadConfigRejectsExplicitZeroes(t *testing.T) {
	path := writeConfig(t, `
engine:
  trend_threshold: 0
  report_history_limit: 0
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trend threshold must be positive")
	assert.Contains(t, err.Error(), "report history limit")
}

func TestLoadConfigRejectsInvalidEngine(t *testing.T) {
	path := writeConfig(t, `
engine:
  alert_thresholds:
    critical: 0.4
    warning: 0.6
  peak_hours: [9, 25]
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warning threshold must be below critical threshold")
	assert.Contains(t, err.Error(), "hour 25 outside 0..23")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultEngineIsValid(t *testing.T) {
	e := DefaultEngine()

	require.NoError(t, e.Validate())
	assert.True(t, e.IsPeakHour(20))
	assert.False(t, e.IsPeakHour(3))
	assert.True(t, e.IsLunchHour(13))
	assert.InDelta(t, 1.0, e.EngagementWeights.Likes+e.EngagementWeights.Comments+e.EngagementWeights.Shares+e.EngagementWeights.Emoji, 1e-9)
}

func TestValidateHistoryBounds(t *testing.T) {
	e := DefaultEngine()
	e.HistoryLimit = 2
	e.Workers = 0

	err := e.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history limit")
	assert.Contains(t, err.Error(), "workers")
}

func TestLoadEnvOverridesFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ENGINE_TEST_VALUE=from-env\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("ENGINE_TEST_VALUE", "")

	loaded := LoadEnv()

	assert.Equal(t, []string{".env"}, loaded)
	assert.Equal(t, "from-env", os.Getenv("ENGINE_TEST_VALUE"))
}
