package strategy

import (
	"context"
	"log/slog"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/indicators"
	"github.com/riverbend/marketmaker/internal/mirror"
)

// defaultMinimumTrend and defaultMaximumPriceLevel gate which markets beforeRun admits
// into the active set; they mirror EntryOptions' defaults so a market that
// wouldn't pass the entry gate never gets initialized in the first place.
const (
	defaultMinimumTrend      = 0.1
	defaultMaximumPriceLevel = 0.6
)

// MarketSettings is the per-market configuration and candle data needed to
// (re)compute trend/priceLevel and run a tick, keyed by market symbol.
type MarketSettings struct {
	Options              MarketOptions
	CanTrade             bool
	DayCandles           []domain.Candle
	HourCandles          []domain.Candle
	FifteenMinuteCandles []domain.Candle
	Trades               []domain.Trade
}

// BeforeRun implements §4.10 "beforeRun": it scans marketSettings and
// admits any market whose trend/priceLevel (computed now if absent) clears
// the minimum bar into the agent's active set.
func BeforeRun(agent *domain.TradingAgent, settings map[string]MarketSettings) {
	for market, s := range settings {
		state, active := agent.StrategyState[market]
		if !s.CanTrade && !active {
			continue
		}

		if state.Trend == 0 && state.PriceLevel == 0 {
			closes := domain.Closes(s.DayCandles)
			state.Trend = domain.Tail(indicators.VDX(s.DayCandles, 30))
			state.PriceLevel = domain.Tail(indicators.RSI(closes, 20, indicators.RSIOptions{})) / 100
		}

		if state.Trend >= defaultMinimumTrend && state.PriceLevel < defaultMaximumPriceLevel {
			state.CanTrade = s.CanTrade
			if state.AgentState == "" {
				state.AgentState = domain.StateIdle
			}
			agent.StrategyState[market] = state
			agent.SetActive(market)
		}
	}
}

// Run executes one tick of the agent's active markets: a RunForMarket per
// active market, then the drawdown guard (§4.10, §7 "DrawdownTriggered").
// It does not call BeforeRun; RunAgentCycle calls BeforeRun before Run.
// totalBalance is the mirror's fiat-denominated total across every
// currency, computed by the caller via Mirror.GetTotalBalance before
// calling Run.
//
// Markets are processed one at a time, not fanned out across goroutines:
// RunForMarket reaches Mirror methods (CreateOrder, CancelAllOrders, ...)
// that mutate the single shared Exchange's order/balance maps and event
// log directly, and the Mirror is owned exclusively by the current agent
// run (§5 "Shared-resource policy") rather than internally synchronized,
// so two markets' mutations can never be allowed to interleave.
func Run(ctx context.Context, agent *domain.TradingAgent, m *mirror.Mirror, reg Registry, settings map[string]MarketSettings, totalBalance float64) {
	if agent.Paused {
		return
	}

	for _, market := range agent.ActiveMarkets {
		s, ok := settings[market]
		if !ok {
			continue
		}
		state := agent.StrategyState[market]

		err := RunForMarket(ctx, m, market, &state, reg, agent.StrategyName, s.Options,
			totalBalance, agent.FiatRatio, len(agent.ActiveMarkets), MarketInputs{
				Trend:                state.Trend,
				PriceLevel:           state.PriceLevel,
				DayCandles:           s.DayCandles,
				HourCandles:          s.HourCandles,
				FifteenMinuteCandles: s.FifteenMinuteCandles,
				Trades:               s.Trades,
			})
		if err != nil {
			slog.Error("strategy: run for market failed", "agent", agent.ID, "market", market, "err", err)
			continue
		}
		agent.StrategyState[market] = state
	}

	applyDrawdownGuard(agent, m, totalBalance)
}

// applyDrawdownGuard is §7's "DrawdownTriggered": once drawdown from the
// running peak exceeds MaxDrawdown, the agent is paused and an event is
// posted. Drawdown monotonicity (§8 invariant 7) follows because Paused is
// only ever set here, never cleared by this package.
func applyDrawdownGuard(agent *domain.TradingAgent, m *mirror.Mirror, totalBalance float64) {
	if totalBalance > agent.PeakMarketAmount {
		agent.PeakMarketAmount = totalBalance
	}
	dd := domain.Drawdown(agent.PeakMarketAmount, totalBalance)
	if dd <= agent.MaxDrawdown {
		return
	}
	agent.Paused = true
	m.Exchange.Events = append(m.Exchange.Events, domain.Event{
		ExchangeID: m.Exchange.ID,
		Type:       domain.EventMaxDrawdownReached,
		Data: map[string]any{
			"peak":         agent.PeakMarketAmount,
			"currentTotal": totalBalance,
		},
		Timestamp: m.Clock(),
	})
}
