// Package config loads the engine's static configuration: a YAML file,
// overridden by a `.env` file and environment variables, with sane
// defaults filled in for anything left unset (§6 "Configuration").
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/riverbend/marketmaker/internal/strategy"
)

// Config is the engine's top-level configuration.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Exchange     ExchangeConfig     `yaml:"exchange"`
	API          APIConfig          `yaml:"api"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`
	Strategy     StrategyConfig     `yaml:"strategy"`
}

// OrchestratorConfig controls the job orchestrator's poll cadence and how
// often each agent's run job repeats (§4.11). The lock lifetime is not
// configured here; it is the fixed domain.LockLifetime.
type OrchestratorConfig struct {
	PollEvery       string `yaml:"poll_every"`        // cron spec, e.g. "@every 2s"
	RunEveryMinutes int    `yaml:"run_every_minutes"` // how often an agent's run job repeats
}

// ExchangeConfig is the subset of domain.Exchange's fields an operator
// sets up front; live state (balances, orders, ...) is populated at
// runtime, not configured.
type ExchangeConfig struct {
	ID                string             `yaml:"id"`
	Name              string             `yaml:"name"`
	Fiat              string             `yaml:"fiat"`
	Fee               float64            `yaml:"fee"`
	Simulation        bool               `yaml:"simulation"`
	ForceAutoCancel   bool               `yaml:"force_auto_cancel"`
	MaxSyncAgeMinutes int                `yaml:"max_sync_age_minutes"`
	Reserves          map[string]float64 `yaml:"reserves"`
	MinDealAmounts    map[string]float64 `yaml:"min_deal_amounts"`
}

// MaxSyncAge returns the configured staleness window as a time.Duration.
func (c ExchangeConfig) MaxSyncAge() time.Duration {
	return time.Duration(c.MaxSyncAgeMinutes) * time.Minute
}

// APIConfig holds the reference ExchangeClient adapter's transport
// settings (internal/adapters/restexchange).
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	WSURL          string `yaml:"ws_url"`
	APIKey         string `yaml:"api_key"`
	APISecret      string `yaml:"api_secret"`
	RateLimitMS    int    `yaml:"rate_limit_ms"` // minimum gap between requests
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RateLimit returns the configured inter-request gap as a time.Duration.
func (c APIConfig) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMS) * time.Millisecond
}

// Timeout returns the configured HTTP timeout as a time.Duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig controls where persisted entities live.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to a SQLite file, or ":memory:"
}

// LogConfig controls the format and level of the package-level slog
// logger (SPEC_FULL.md "AMBIENT STACK / Logging").
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// StrategyConfig is the YAML-facing mirror of strategy.MarketOptions: a
// global options block plus per-market overrides, deep-merged at load time
// (§6 "Configuration": "per-market overrides are applied under
// marketSettings[<market>] and override global options for that market
// only").
type StrategyConfig struct {
	Name           string                    `yaml:"name"` // strategy registry key, default "default"
	Entry          EntryOptionsYAML          `yaml:"entry"`
	Exit           ExitOptionsYAML           `yaml:"exit"`
	Maker          MakerOptionsYAML          `yaml:"maker"`
	MarketSettings map[string]MarketOverride `yaml:"market_settings"`
}

// MarketOverride is one market's override block; any field left unset
// (nil) is left untouched by the merge, while any field set in YAML,
// including an explicit 0, overrides the value beneath it.
type MarketOverride struct {
	Entry EntryOptionsYAML `yaml:"entry"`
	Exit  ExitOptionsYAML  `yaml:"exit"`
	Maker MakerOptionsYAML `yaml:"maker"`
}

// EntryOptionsYAML mirrors strategy.EntryOptions with YAML tags; unset
// (nil) fields are left at the package default by mergeEntry.
type EntryOptionsYAML struct {
	MinimumTrend              *float64 `yaml:"minimum_trend"`
	MaximumPriceLevel         *float64 `yaml:"maximum_price_level"`
	MinimumReturnsPeriod      *int     `yaml:"minimum_returns_period"`
	MinimumReturns            *float64 `yaml:"minimum_returns"`
	MAPeriodVolume            *int     `yaml:"ma_period_volume"`
	EMAPeriodDailyRetracement *int     `yaml:"ema_period_daily_retracement"`
	ATRPeriodDaily            *int     `yaml:"atr_period_daily"`
	ATRRetracementMultiplier  *float64 `yaml:"atr_retracement_multiplier"`
	EMAPeriodFast             *int     `yaml:"ema_period_fast"`
	EMAPeriodMid              *int     `yaml:"ema_period_mid"`
	VolumeBalancePeriod       *int     `yaml:"volume_balance_period"`
	MinimumNotionalValue      *float64 `yaml:"minimum_notional_value"`
}

// ExitOptionsYAML mirrors strategy.ExitOptions with YAML tags.
type ExitOptionsYAML struct {
	MinimumNotionalValue    *float64 `yaml:"minimum_notional_value"`
	TakeProfitRSIThreshold  *float64 `yaml:"take_profit_rsi_threshold"`
	MinNextQuoteDifference  *float64 `yaml:"min_next_quote_difference"`
	TakeProfitATRMultiplier *float64 `yaml:"take_profit_atr_multiplier"`
	ATRPeriodDaily          *int     `yaml:"atr_period_daily"`
	ReturnBasedExitAfter    *string  `yaml:"return_based_exit_after"`
	MAPeriodReturns         *int     `yaml:"ma_period_returns"`
	ReturnThreshold         *float64 `yaml:"return_threshold"`
	EMAPeriodSlow           *int     `yaml:"ema_period_slow"`
	TrailingStopEnabled     *bool    `yaml:"trailing_stop_enabled"`
	VolatilityMultiplier    *float64 `yaml:"volatility_multiplier"`
}

// MakerOptionsYAML mirrors strategy.MakerOptions with YAML tags.
type MakerOptionsYAML struct {
	InventorySteps              *int     `yaml:"inventory_steps"`
	SpreadFixedTerm             *float64 `yaml:"spread_fixed_term"`
	SpreadSigmaMultiplier       *float64 `yaml:"spread_sigma_multiplier"`
	RiskAversionCorrection      *float64 `yaml:"risk_aversion_correction"`
	MinDealAmount               *float64 `yaml:"min_deal_amount"`
	MinimumNotionalValue        *float64 `yaml:"minimum_notional_value"`
	MinNextQuoteDifference      *float64 `yaml:"min_next_quote_difference"`
	DynamicAmountDropoff        *float64 `yaml:"dynamic_amount_dropoff"`
	EMAPeriodSlow               *int     `yaml:"ema_period_slow"`
	TradingRangeSigmaMultiplier *float64 `yaml:"trading_range_sigma_multiplier"`
	TradeVolumeCap              *float64 `yaml:"trade_volume_cap"`
	CoolOffPeriod               *string  `yaml:"cool_off_period"`
	AutoCancelAtFillPercentage  *float64 `yaml:"auto_cancel_at_fill_percentage"`
}

// Load reads the YAML config at path, applies `.env` and environment
// overrides, and fills in defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // silently ignore a missing .env

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg, nil
}

// applyEnvOverrides lets deployment-time secrets and log settings come
// from the environment instead of the checked-in YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("EXCHANGE_API_SECRET"); v != "" {
		cfg.API.APISecret = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Orchestrator.PollEvery == "" {
		cfg.Orchestrator.PollEvery = "@every 2s"
	}
	if cfg.Orchestrator.RunEveryMinutes <= 0 {
		cfg.Orchestrator.RunEveryMinutes = 1
	}
	if cfg.Exchange.Fiat == "" {
		cfg.Exchange.Fiat = "USDT"
	}
	if cfg.Exchange.MaxSyncAgeMinutes <= 0 {
		cfg.Exchange.MaxSyncAgeMinutes = 5
	}
	if cfg.API.RateLimitMS <= 0 {
		cfg.API.RateLimitMS = 200
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "marketmaker.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Strategy.Name == "" {
		cfg.Strategy.Name = "default"
	}
}

// MarketOptions builds the deep-merged strategy.MarketOptions for market:
// package defaults, then the global YAML block, then market's own
// override block (§6 "Configuration").
func (c *Config) MarketOptions(market string) strategy.MarketOptions {
	opts := strategy.DefaultMarketOptions()
	mergeEntry(&opts.Entry, c.Strategy.Entry)
	mergeExit(&opts.Exit, c.Strategy.Exit)
	mergeMaker(&opts.Maker, c.Strategy.Maker)

	if ov, ok := c.Strategy.MarketSettings[market]; ok {
		mergeEntry(&opts.Entry, ov.Entry)
		mergeExit(&opts.Exit, ov.Exit)
		mergeMaker(&opts.Maker, ov.Maker)
	}
	return opts
}

func mergeEntry(dst *strategy.EntryOptions, src EntryOptionsYAML) {
	if src.MinimumTrend != nil {
		dst.MinimumTrend = *src.MinimumTrend
	}
	if src.MaximumPriceLevel != nil {
		dst.MaximumPriceLevel = *src.MaximumPriceLevel
	}
	if src.MinimumReturnsPeriod != nil {
		dst.MinimumReturnsPeriod = *src.MinimumReturnsPeriod
	}
	if src.MinimumReturns != nil {
		dst.MinimumReturns = *src.MinimumReturns
	}
	if src.MAPeriodVolume != nil {
		dst.MAPeriodVolume = *src.MAPeriodVolume
	}
	if src.EMAPeriodDailyRetracement != nil {
		dst.EMAPeriodDailyRetracement = *src.EMAPeriodDailyRetracement
	}
	if src.ATRPeriodDaily != nil {
		dst.ATRPeriodDaily = *src.ATRPeriodDaily
	}
	if src.ATRRetracementMultiplier != nil {
		dst.ATRRetracementMultiplier = *src.ATRRetracementMultiplier
	}
	if src.EMAPeriodFast != nil {
		dst.EMAPeriodFast = *src.EMAPeriodFast
	}
	if src.EMAPeriodMid != nil {
		dst.EMAPeriodMid = *src.EMAPeriodMid
	}
	if src.VolumeBalancePeriod != nil {
		dst.VolumeBalancePeriod = *src.VolumeBalancePeriod
	}
	if src.MinimumNotionalValue != nil {
		dst.MinimumNotionalValue = *src.MinimumNotionalValue
	}
}

func mergeExit(dst *strategy.ExitOptions, src ExitOptionsYAML) {
	if src.MinimumNotionalValue != nil {
		dst.MinimumNotionalValue = *src.MinimumNotionalValue
	}
	if src.TakeProfitRSIThreshold != nil {
		dst.TakeProfitRSIThreshold = *src.TakeProfitRSIThreshold
	}
	if src.MinNextQuoteDifference != nil {
		dst.MinNextQuoteDifference = *src.MinNextQuoteDifference
	}
	if src.TakeProfitATRMultiplier != nil {
		dst.TakeProfitATRMultiplier = *src.TakeProfitATRMultiplier
	}
	if src.ATRPeriodDaily != nil {
		dst.ATRPeriodDaily = *src.ATRPeriodDaily
	}
	if src.ReturnBasedExitAfter != nil {
		dst.ReturnBasedExitAfter = *src.ReturnBasedExitAfter
	}
	if src.MAPeriodReturns != nil {
		dst.MAPeriodReturns = *src.MAPeriodReturns
	}
	if src.ReturnThreshold != nil {
		dst.ReturnThreshold = *src.ReturnThreshold
	}
	if src.EMAPeriodSlow != nil {
		dst.EMAPeriodSlow = *src.EMAPeriodSlow
	}
	if src.TrailingStopEnabled != nil {
		dst.TrailingStopEnabled = *src.TrailingStopEnabled
	}
	if src.VolatilityMultiplier != nil {
		dst.VolatilityMultiplier = *src.VolatilityMultiplier
	}
}

func mergeMaker(dst *strategy.MakerOptions, src MakerOptionsYAML) {
	if src.InventorySteps != nil {
		dst.InventorySteps = *src.InventorySteps
	}
	if src.SpreadFixedTerm != nil {
		dst.SpreadFixedTerm = *src.SpreadFixedTerm
	}
	if src.SpreadSigmaMultiplier != nil {
		dst.SpreadSigmaMultiplier = *src.SpreadSigmaMultiplier
	}
	if src.RiskAversionCorrection != nil {
		dst.RiskAversionCorrection = *src.RiskAversionCorrection
	}
	if src.MinDealAmount != nil {
		dst.MinDealAmount = *src.MinDealAmount
	}
	if src.MinimumNotionalValue != nil {
		dst.MinimumNotionalValue = *src.MinimumNotionalValue
	}
	if src.MinNextQuoteDifference != nil {
		dst.MinNextQuoteDifference = *src.MinNextQuoteDifference
	}
	if src.DynamicAmountDropoff != nil {
		dst.DynamicAmountDropoff = *src.DynamicAmountDropoff
	}
	if src.EMAPeriodSlow != nil {
		dst.EMAPeriodSlow = *src.EMAPeriodSlow
	}
	if src.TradingRangeSigmaMultiplier != nil {
		dst.TradingRangeSigmaMultiplier = *src.TradingRangeSigmaMultiplier
	}
	if src.TradeVolumeCap != nil {
		dst.TradeVolumeCap = *src.TradeVolumeCap
	}
	if src.CoolOffPeriod != nil {
		if d, err := time.ParseDuration(*src.CoolOffPeriod); err == nil {
			dst.CoolOffPeriod = d
		}
	}
	if src.AutoCancelAtFillPercentage != nil {
		dst.AutoCancelAtFillPercentage = *src.AutoCancelAtFillPercentage
	}
}
