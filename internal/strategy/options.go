// Package strategy implements the three per-market strategies the trading
// agent dispatches through — entry, market-making, exit — and the state
// machine (§4.7-§4.10) that sequences them. Every strategy is a pure
// function of its inputs plus the mutable Mirror it's handed; none of them
// touch persistence directly.
package strategy

import "time"

// EntryOptions configures the entry gate (§4.7). Defaults match the spec.
type EntryOptions struct {
	MinimumTrend            float64 // default 0.1
	MaximumPriceLevel       float64 // default 0.6
	MinimumReturnsPeriod    int     // default 14
	MinimumReturns          float64 // default 0.01
	MAPeriodVolume          int     // default 20
	EMAPeriodDailyRetracement int   // default 20
	ATRPeriodDaily          int     // default 14
	ATRRetracementMultiplier float64 // default 1.0
	EMAPeriodFast           int     // default 12
	EMAPeriodMid            int     // default 26
	VolumeBalancePeriod     int     // default 20
	MinimumNotionalValue    float64
}

// DefaultEntryOptions returns §4.7's stated defaults.
func DefaultEntryOptions() EntryOptions {
	return EntryOptions{
		MinimumTrend:             0.1,
		MaximumPriceLevel:        0.6,
		MinimumReturnsPeriod:     14,
		MinimumReturns:           0.01,
		MAPeriodVolume:           20,
		EMAPeriodDailyRetracement: 20,
		ATRPeriodDaily:           14,
		ATRRetracementMultiplier: 1.0,
		EMAPeriodFast:            12,
		EMAPeriodMid:             26,
		VolumeBalancePeriod:      20,
	}
}

// ExitOptions configures the exit strategy (§4.8).
type ExitOptions struct {
	MinimumNotionalValue     float64
	TakeProfitRSIThreshold   float64       // default 80
	MinNextQuoteDifference   float64       // default 0.005
	TakeProfitATRMultiplier  float64       // default 3
	ATRPeriodDaily           int           // default 20
	ReturnBasedExitAfter     string        // period string, default "24h"
	MAPeriodReturns          int           // default 14
	ReturnThreshold          float64       // default 0
	EMAPeriodSlow            int           // default 20
	TrailingStopEnabled      bool          // opt-in, default false (§9 open question 1)
	VolatilityMultiplier     float64       // used only if TrailingStopEnabled
}

// DefaultExitOptions returns §4.8's stated defaults.
func DefaultExitOptions() ExitOptions {
	return ExitOptions{
		TakeProfitRSIThreshold:  80,
		MinNextQuoteDifference:  0.005,
		TakeProfitATRMultiplier: 3,
		ATRPeriodDaily:          20,
		ReturnBasedExitAfter:    "24h",
		MAPeriodReturns:         14,
		EMAPeriodSlow:           20,
	}
}

// MakerOptions configures the market-maker core (§4.9).
type MakerOptions struct {
	Sigma                  float64       // per-market GBM estimate, default 0.05
	Gamma                  float64       // risk aversion, per-market
	InventorySteps         int           // default 8
	SpreadFixedTerm        float64       // default 0.005
	SpreadSigmaMultiplier  float64       // default 0.1
	RiskAversionCorrection float64       // default 0.1
	MinDealAmount          float64       // default 1
	MinimumNotionalValue   float64       // default 0
	MinNextQuoteDifference float64       // default 0.005
	DynamicAmountDropoff   float64       // default 20
	EMAPeriodSlow          int           // default 20
	TradingRangeSigmaMultiplier float64  // default 1
	TradeVolumeCap         float64       // default 0.01
	CoolOffPeriod          time.Duration // default 2h
	AutoCancelAtFillPercentage float64
}

// DefaultMakerOptions returns §4.9's stated defaults.
func DefaultMakerOptions() MakerOptions {
	return MakerOptions{
		InventorySteps:              8,
		SpreadFixedTerm:             0.005,
		SpreadSigmaMultiplier:       0.1,
		RiskAversionCorrection:      0.1,
		MinDealAmount:               1,
		MinNextQuoteDifference:      0.005,
		DynamicAmountDropoff:        20,
		EMAPeriodSlow:               20,
		TradingRangeSigmaMultiplier: 1,
		TradeVolumeCap:              0.01,
		CoolOffPeriod:               2 * time.Hour,
		AutoCancelAtFillPercentage:  1,
	}
}

// MarketOptions is the deep-merged, per-market configuration bundle a
// strategy run needs: global defaults with marketSettings[market]
// overrides already folded in (§6 "Configuration").
type MarketOptions struct {
	Entry  EntryOptions
	Exit   ExitOptions
	Maker  MakerOptions
}

// DefaultMarketOptions bundles every sub-strategy's defaults.
func DefaultMarketOptions() MarketOptions {
	return MarketOptions{
		Entry: DefaultEntryOptions(),
		Exit:  DefaultExitOptions(),
		Maker: DefaultMakerOptions(),
	}
}
