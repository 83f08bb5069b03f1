package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/mirror"
	"github.com/riverbend/marketmaker/internal/ports"
	"github.com/riverbend/marketmaker/internal/quant"
)

// dayCandleCount/hourCandleCount/fifteenMinuteCandleCount are how far back
// RunAgentCycle fetches OHLCV for each market it considers: §4.7/§4.8 need
// at least 30 day candles and 60 hour candles; fifteenMinuteCandleCount
// matches quant.DynamicsWindow, the Gueant intensity estimator's minimum.
const (
	dayCandleCount           = 40
	hourCandleCount          = 70
	fifteenMinuteCandleCount = quant.DynamicsWindow
	tradeLookback            = 50
)

// MarketOptionsFunc resolves a market's deep-merged strategy options
// (§6 "Configuration" — global + marketSettings[<market>] overrides),
// supplied by the caller (config.Config.MarketOptions in cmd/agent).
type MarketOptionsFunc func(market string) MarketOptions

// RunAgentCycle is one full tick of a trading agent (§4.10): sync the
// mirror against the remote exchange, fetch per-market candle/trade
// inputs, run beforeRun + the Entry/MarketMaker/Exit dispatch for every
// active market, then persist nothing itself — the caller saves the
// mutated agent and exchange afterward.
func RunAgentCycle(ctx context.Context, m *mirror.Mirror, agent *domain.TradingAgent, reg Registry, optsFor MarketOptionsFunc) error {
	markets := candidateMarkets(agent)
	if len(markets) == 0 {
		return nil
	}

	if !m.SyncBalance(ctx) {
		return fmt.Errorf("strategy.RunAgentCycle: agent %s: balance sync failed", agent.ID)
	}
	if !m.SyncTickers(ctx, markets) {
		return fmt.Errorf("strategy.RunAgentCycle: agent %s: ticker sync failed", agent.ID)
	}

	settings, err := fetchMarketSettings(ctx, m.Client, agent, markets, optsFor)
	if err != nil {
		return fmt.Errorf("strategy.RunAgentCycle: agent %s: %w", agent.ID, err)
	}

	BeforeRun(agent, settings)

	totalBalance, ok := m.GetTotalBalance(false, nil, true)
	if !ok {
		return fmt.Errorf("strategy.RunAgentCycle: agent %s: total balance unavailable", agent.ID)
	}

	Run(ctx, agent, m, reg, settings, totalBalance)
	return nil
}

// candidateMarkets is every market RunAgentCycle needs candle/trade data
// for: already-active markets plus any the allocator marked canTrade
// (§4.10 "Market-universe membership is sticky").
func candidateMarkets(agent *domain.TradingAgent) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(m string) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for _, m := range agent.ActiveMarkets {
		add(m)
	}
	for m, s := range agent.StrategyState {
		if s.CanTrade {
			add(m)
		}
	}
	return out
}

func fetchMarketSettings(ctx context.Context, client ports.ExchangeClient, agent *domain.TradingAgent, markets []string, optsFor MarketOptionsFunc) (map[string]MarketSettings, error) {
	out := make(map[string]MarketSettings, len(markets))
	since := time.Time{}

	for _, market := range markets {
		dayCandles, err := client.FetchOHLCV(ctx, market, ports.Timeframe1d, since, dayCandleCount)
		if err != nil {
			return nil, fmt.Errorf("fetch day candles for %s: %w", market, err)
		}
		hourCandles, err := client.FetchOHLCV(ctx, market, ports.Timeframe1h, since, hourCandleCount)
		if err != nil {
			return nil, fmt.Errorf("fetch hour candles for %s: %w", market, err)
		}
		// Fails soft (FetchOHLCV's contract): a market too young to have
		// quant.DynamicsWindow 15m candles yet just leaves the Gueant
		// intensity estimate unpopulated for this cycle.
		fifteenMinuteCandles, err := client.FetchOHLCV(ctx, market, ports.Timeframe15m, since, fifteenMinuteCandleCount)
		if err != nil {
			return nil, fmt.Errorf("fetch 15m candles for %s: %w", market, err)
		}
		trades, err := client.FetchTrades(ctx, []string{market}, since, tradeLookback)
		if err != nil {
			return nil, fmt.Errorf("fetch trades for %s: %w", market, err)
		}

		state := agent.StrategyState[market]
		opts := MarketOptions{}
		if optsFor != nil {
			opts = optsFor(market)
		} else {
			opts = DefaultMarketOptions()
		}

		out[market] = MarketSettings{
			Options:              opts,
			CanTrade:             state.CanTrade,
			DayCandles:           dayCandles,
			HourCandles:          hourCandles,
			FifteenMinuteCandles: fifteenMinuteCandles,
			Trades:               trades[market],
		}
	}
	return out, nil
}
