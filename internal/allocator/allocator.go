// Package allocator implements the portfolio allocator (§4.12): it scans an
// agent's market universe and decides which markets are liquid and volatile
// enough to trade, writing the result back into the agent's per-market
// strategy state.
package allocator

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/indicators"
	"github.com/riverbend/marketmaker/internal/ports"
	"github.com/riverbend/marketmaker/internal/quant"
)

// MinimumDailyCandles is how many 1d candles a market needs before the
// allocator will consider its average-volume filter meaningful.
const MinimumDailyCandles = 30

// emaPeriod is the EMA window applied to the daily quoteVolumeEstimate
// series when checking the minimumAverageVolume floor.
const emaPeriod = 5

// result is one market's allocation verdict, passed back over a channel by
// the worker pool.
type result struct {
	market     string
	eligible   bool
	trend      float64
	priceLevel float64
	sigma      float64
	mu         float64
}

// Allocate scans agent's universe (client.GetMarkets minus the agent's
// blacklist), evaluates every candidate market's liquidity and volatility
// filters concurrently, and marks survivors canTrade with freshly computed
// trend/priceLevel in agent.StrategyState. workers <= 0 defaults to
// runtime.NumCPU() * 2, mirroring how the rest of the engine saturates an
// I/O-bound fan-out.
func Allocate(ctx context.Context, client ports.ExchangeClient, agent *domain.TradingAgent, workers int) error {
	markets, err := client.GetMarkets(ctx, agent.FiatCurrency)
	if err != nil {
		return err
	}

	candidates := make([]string, 0, len(markets))
	for _, m := range markets {
		if !agent.IsBlacklisted(m) {
			candidates = append(candidates, m)
		}
	}

	tickers, err := client.FetchTickers(ctx, candidates)
	if err != nil {
		return err
	}

	results := evaluateConcurrent(ctx, client, agent, candidates, tickers, workers)

	survivors := 0
	for _, r := range results {
		if !r.eligible {
			continue
		}
		state := agent.StrategyState[r.market]
		state.CanTrade = true
		state.Trend = r.trend
		state.PriceLevel = r.priceLevel
		if !state.HasGBMParams() {
			state.Sigma = r.sigma
			state.Mu = r.mu
		}
		agent.StrategyState[r.market] = state
		survivors++
	}

	slog.Info("allocator: universe scan complete",
		"agent", agent.ID, "candidates", len(candidates), "eligible", survivors)
	return nil
}

// evaluateConcurrent runs evaluateMarket over candidates through a worker
// pool, grounded on the same fetch-then-fan-out-analysis shape the rest of
// the engine's concurrent scans use: one goroutine per worker pulling off a
// shared work channel, results collected on a buffered result channel.
func evaluateConcurrent(ctx context.Context, client ports.ExchangeClient, agent *domain.TradingAgent, candidates []string, tickers map[string]domain.Ticker, workers int) []result {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	workCh := make(chan string, len(candidates))
	resultCh := make(chan result, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for market := range workCh {
				resultCh <- evaluateMarket(ctx, client, agent, market, tickers[market])
			}
		}()
	}

	for _, market := range candidates {
		workCh <- market
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make([]result, 0, len(candidates))
	for r := range resultCh {
		out = append(out, r)
	}
	return out
}

// evaluateMarket applies §4.12's filter chain to a single market: volume
// and price floors from the ticker, an hours-with-zero-volume ceiling and a
// fitted GBM model from a week of hourly candles, and an EMA-smoothed
// average daily turnover floor from a month of daily candles.
func evaluateMarket(ctx context.Context, client ports.ExchangeClient, agent *domain.TradingAgent, market string, ticker domain.Ticker) result {
	r := result{market: market}

	if ticker.QuoteVolume < agent.MinimumVolume {
		return r
	}
	if ticker.Last < agent.MinimumFiatPrice {
		return r
	}

	hourCandles, err := client.FetchOHLCV(ctx, market, ports.Timeframe1h, time.Now().Add(-quant.GBMWindow*time.Hour), quant.GBMWindow)
	if err != nil || len(hourCandles) < quant.GBMWindow {
		slog.Debug("allocator: insufficient hourly candles", "market", market)
		return r
	}

	zeroVolumeHours := 0
	for _, c := range hourCandles {
		if c.Volume == 0 {
			zeroVolumeHours++
		}
	}
	if float64(zeroVolumeHours)/float64(len(hourCandles)) > agent.MaxPercentageHoursNoVolume {
		return r
	}

	params, err := quant.ComputeGBMParameters(hourCandles)
	if err != nil {
		slog.Debug("allocator: GBM estimation failed", "market", market, "err", err)
		return r
	}

	dayCandles, err := client.FetchOHLCV(ctx, market, ports.Timeframe1d, time.Now().AddDate(0, 0, -MinimumDailyCandles), MinimumDailyCandles)
	if err != nil || len(dayCandles) < MinimumDailyCandles {
		slog.Debug("allocator: insufficient daily candles", "market", market)
		return r
	}

	quoteVolumes := make([]float64, len(dayCandles))
	for i, c := range dayCandles {
		quoteVolumes[i] = c.QuoteVolumeEstimate()
	}
	avgVolume := domain.Tail(indicators.EMA(quoteVolumes, emaPeriod))
	if avgVolume < agent.MinimumAverageVolume {
		return r
	}

	r.eligible = true
	r.sigma = params.Sigma
	r.mu = params.Mu
	r.trend = domain.Tail(indicators.VDX(dayCandles, 30))
	r.priceLevel = domain.Tail(indicators.RSI(domain.Closes(dayCandles), 20, indicators.RSIOptions{})) / 100
	return r
}
