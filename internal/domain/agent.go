package domain

import "time"

// AgentState is where a (agent, market) pair sits in the entry/hold/exit
// state machine (§3 "MarketState").
type AgentState string

const (
	StateIdle           AgentState = "idle"
	StateTryingToEnter  AgentState = "trying_to_enter"
	StateHasPosition    AgentState = "has_position"
	StateTryingToLeave  AgentState = "trying_to_leave"
)

// MarketState is the per-market slice of a TradingAgent's strategyState.
type MarketState struct {
	Ratio           float64 // portfolio weight
	EntryPrice      float64
	EntryTimestamp  time.Time
	AgentState      AgentState

	// Per-market model settings, computed or configured.
	Sigma    float64
	Mu       float64
	Gamma    float64
	ABuy     float64
	KBuy     float64
	ASell    float64
	KSell    float64
	Trend    float64 // VDX in [-1, 1]
	PriceLevel float64 // RSI/100
	CanTrade bool
}

// HasGBMParams reports whether sigma/mu have been estimated yet.
func (m MarketState) HasGBMParams() bool {
	return m.Sigma != 0
}

// HasGueantParams reports whether the quoting intensity parameters have
// been estimated yet.
func (m MarketState) HasGueantParams() bool {
	return m.ABuy != 0 && m.KBuy != 0 && m.ASell != 0 && m.KSell != 0
}

// TradingAgent is the persisted entity owning an exchange account, a
// strategy, and per-market state (§3 "TradingAgent (persisted)").
type TradingAgent struct {
	ID             string
	ExchangeID     string
	StrategyName   string
	StrategyState  map[string]MarketState // keyed by market

	Paused         bool
	MaxDrawdown    float64 // (0,1), default 0.2
	PeakMarketAmount float64

	MinimumVolume             float64
	MinimumAverageVolume      float64
	MinimumFiatPrice          float64
	MaxPercentageHoursNoVolume float64

	Blacklist     []string
	FiatCurrency  string
	FiatRatio     float64 // fraction of total balance kept in fiat, not deployed

	ActiveMarkets []string
}

// NewTradingAgent returns a TradingAgent with sane defaults (§4.10 and §3).
func NewTradingAgent(id, exchangeID, strategyName string) *TradingAgent {
	return &TradingAgent{
		ID:                         id,
		ExchangeID:                 exchangeID,
		StrategyName:               strategyName,
		StrategyState:              make(map[string]MarketState),
		MaxDrawdown:                0.2,
		MinimumVolume:              70,
		MaxPercentageHoursNoVolume: 0.1,
	}
}

// IsActive reports whether a market is in the agent's active set.
func (a *TradingAgent) IsActive(market string) bool {
	for _, m := range a.ActiveMarkets {
		if m == market {
			return true
		}
	}
	return false
}

// IsBlacklisted reports whether a market has been excluded from trading.
func (a *TradingAgent) IsBlacklisted(market string) bool {
	for _, m := range a.Blacklist {
		if m == market {
			return true
		}
	}
	return false
}

// SetActive adds market to the active set if it isn't already present.
func (a *TradingAgent) SetActive(market string) {
	if a.IsActive(market) {
		return
	}
	a.ActiveMarkets = append(a.ActiveMarkets, market)
}

// RemoveActive drops market from the active set and its strategy state.
func (a *TradingAgent) RemoveActive(market string) {
	for i, m := range a.ActiveMarkets {
		if m == market {
			a.ActiveMarkets = append(a.ActiveMarkets[:i], a.ActiveMarkets[i+1:]...)
			break
		}
	}
	delete(a.StrategyState, market)
}

// EqualRatio returns the default equal-weight portfolio ratio over n active
// markets, reserving FiatRatio of the total balance undeployed (§4.10).
func (a *TradingAgent) EqualRatio(n int) float64 {
	if n <= 0 {
		return 0
	}
	return (1 - a.FiatRatio) / float64(n)
}

// Drawdown computes (peak-current)/peak, 0 if peak is 0 or non-positive.
func Drawdown(peak, current float64) float64 {
	if peak <= 0 {
		return 0
	}
	return (peak - current) / peak
}
