package strategy

import (
	"context"
	"fmt"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/mirror"
	"github.com/riverbend/marketmaker/internal/quant"
)

// MarketInputs is everything RunMarket needs about a single market beyond
// the mirror and the persisted state (§4.7-§4.9's candle/trend/balance
// inputs).
type MarketInputs struct {
	Trend                float64
	PriceLevel           float64
	TargetBalance        float64
	MinDealAmount        float64
	MinimumNotional      float64
	DayCandles           []domain.Candle
	HourCandles          []domain.Candle
	FifteenMinuteCandles []domain.Candle
	Trades               []domain.Trade
}

// DefaultStrategy is the engine's single built-in strategy: the
// Entry/MarketMaker/Exit dispatch described in §4.7-§4.10.
type DefaultStrategy struct{}

// Name identifies this strategy in the registry and in a TradingAgent's
// StrategyName field.
func (DefaultStrategy) Name() string { return "default" }

// RunMarket dispatches by the market's current AgentState (§4.10
// "runForMarket" step 4): Idle/TryingToEnter tries to enter; HasPosition
// quotes both sides and checks for an exit trigger; TryingToLeave only
// checks for the exit trigger (a sticky sell is already resting).
func (DefaultStrategy) RunMarket(ctx context.Context, m *mirror.Mirror, market string, state *domain.MarketState, opts MarketOptions, in MarketInputs) error {
	switch state.AgentState {
	case domain.StateIdle, domain.StateTryingToEnter:
		return RunEntry(ctx, m, state, EntryInput{
			Market:          market,
			Trend:           in.Trend,
			PriceLevel:      in.PriceLevel,
			TargetBalance:   in.TargetBalance,
			MinDealAmount:   in.MinDealAmount,
			MinimumNotional: in.MinimumNotional,
			DayCandles:      in.DayCandles,
			HourCandles:     in.HourCandles,
			Trades:          in.Trades,
		}, opts.Entry)

	case domain.StateHasPosition:
		makerOpts := opts.Maker
		makerOpts.Sigma = state.Sigma
		makerOpts.Gamma = state.Gamma
		if err := RunMarketMaker(ctx, m, MakerInput{
			Market:        market,
			TargetBalance: in.TargetBalance,
			HourCandles:   in.HourCandles,
		}, makerOpts); err != nil {
			return err
		}
		return RunExit(ctx, m, state, ExitInput{
			Market:          market,
			MinDealAmount:   in.MinDealAmount,
			MinimumNotional: in.MinimumNotional,
			DayCandles:      in.DayCandles,
			HourCandles:     in.HourCandles,
		}, opts.Exit)

	case domain.StateTryingToLeave:
		return RunExit(ctx, m, state, ExitInput{
			Market:          market,
			MinDealAmount:   in.MinDealAmount,
			MinimumNotional: in.MinimumNotional,
			DayCandles:      in.DayCandles,
			HourCandles:     in.HourCandles,
		}, opts.Exit)
	}
	return fmt.Errorf("strategy: unknown agent state %q for market %s", state.AgentState, market)
}

// EnsureGBMParams fills in state.Sigma/Mu from the estimator if they are
// still unset (§4.10 "runForMarket" step 2).
func EnsureGBMParams(state *domain.MarketState, hourCandles []domain.Candle) error {
	if state.HasGBMParams() {
		return nil
	}
	params, err := quant.ComputeGBMParameters(hourCandles)
	if err != nil {
		return err
	}
	state.Sigma = params.Sigma
	state.Mu = params.Mu
	return nil
}

// EnsureGueantParams fills in state.ABuy/KBuy/ASell/KSell from the
// first-passage-time intensity estimator if they are still unset. Unlike
// EnsureGBMParams this is best-effort: ComputeMarketDynamicsParameters
// needs quant.DynamicsWindow 15m candles, which a freshly-listed market
// won't have yet, and nothing on the live maker path (§4.9's inventory-skew
// spread) depends on these fields being populated, so a shortfall is not
// an error — the estimate is simply deferred to a later cycle.
func EnsureGueantParams(state *domain.MarketState, fifteenMinuteCandles []domain.Candle) {
	if state.HasGueantParams() {
		return
	}
	dynamics, err := quant.ComputeMarketDynamicsParameters(fifteenMinuteCandles)
	if err != nil {
		return
	}
	state.ABuy = dynamics.Buy.A
	state.KBuy = dynamics.Buy.K
	state.ASell = dynamics.Sell.A
	state.KSell = dynamics.Sell.K
}

// RunForMarket is §4.10 "runForMarket": reconcile, ensure model params,
// compute the per-market target balance, then dispatch.
func RunForMarket(ctx context.Context, m *mirror.Mirror, market string, state *domain.MarketState, reg Registry, strategyName string, opts MarketOptions, totalBalance, fiatRatio float64, activeMarketCount int, in MarketInputs) error {
	if state.AgentState != domain.StateIdle {
		if !m.Update(ctx, market) {
			return fmt.Errorf("strategy: RunForMarket: reconciliation mismatch for %s: %w", market, domain.ErrReconciliationMismatch)
		}
	}

	if err := EnsureGBMParams(state, in.HourCandles); err != nil {
		return fmt.Errorf("strategy: RunForMarket: %w", err)
	}
	EnsureGueantParams(state, in.FifteenMinuteCandles)

	ratio := state.Ratio
	if ratio == 0 && activeMarketCount > 0 {
		ratio = (1 - fiatRatio) / float64(activeMarketCount)
	}
	in.TargetBalance = ratio * convertToBase(m, market, totalBalance*(1-fiatRatio))

	strat, ok := reg.Get(strategyName)
	if !ok {
		return fmt.Errorf("strategy: RunForMarket: unknown strategy %q", strategyName)
	}
	return strat.RunMarket(ctx, m, market, state, opts, in)
}

// convertToBase converts a fiat-denominated amount into the market's base
// currency at the market's current bid.
func convertToBase(m *mirror.Mirror, market string, fiatAmount float64) float64 {
	ticker := m.Exchange.Tickers[market]
	if ticker.Bid == 0 {
		return 0
	}
	return fiatAmount / ticker.Bid
}
