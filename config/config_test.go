package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbend/marketmaker/config"
	"github.com/riverbend/marketmaker/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FillsDefaults(t *testing.T) {
	path := writeConfig(t, `
exchange:
  id: ex1
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "@every 2s", cfg.Orchestrator.PollEvery)
	assert.Equal(t, 1, cfg.Orchestrator.RunEveryMinutes)
	assert.Equal(t, "USDT", cfg.Exchange.Fiat)
	assert.Equal(t, "marketmaker.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "default", cfg.Strategy.Name)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
exchange:
  id: ex1
log:
  level: info
`)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_DSN", ":memory:")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
}

func TestMarketOptions_DeepMergesOverGlobalAndDefaults(t *testing.T) {
	path := writeConfig(t, `
exchange:
  id: ex1
strategy:
  entry:
    minimum_trend: 0.2
  market_settings:
    BTC/USDT:
      entry:
        minimum_trend: 0.35
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	def := strategy.DefaultMarketOptions()

	other := cfg.MarketOptions("ETH/USDT")
	assert.Equal(t, 0.2, other.Entry.MinimumTrend)
	assert.Equal(t, def.Entry.MaximumPriceLevel, other.Entry.MaximumPriceLevel)

	btc := cfg.MarketOptions("BTC/USDT")
	assert.Equal(t, 0.35, btc.Entry.MinimumTrend)
}

func TestAPIConfig_DurationHelpers(t *testing.T) {
	path := writeConfig(t, `
exchange:
  id: ex1
api:
  rate_limit_ms: 500
  timeout_seconds: 20
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500e6, float64(cfg.API.RateLimit()))
	assert.Equal(t, 20e9, float64(cfg.API.Timeout()))
}
