package allocator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/ports"
	"github.com/riverbend/marketmaker/internal/quant"
)

type fakeAllocatorClient struct {
	markets    []string
	tickers    map[string]domain.Ticker
	hourly     map[string][]domain.Candle
	daily      map[string][]domain.Candle
}

func (f *fakeAllocatorClient) LoadMarkets(ctx context.Context) error { return nil }
func (f *fakeAllocatorClient) GetMarkets(ctx context.Context, fiat string) ([]string, error) {
	return f.markets, nil
}
func (f *fakeAllocatorClient) GetMinDealAmount(ctx context.Context, market string) (float64, error) {
	return 0, nil
}
func (f *fakeAllocatorClient) FetchBalance(ctx context.Context) (map[string]domain.Balance, error) {
	return nil, nil
}
func (f *fakeAllocatorClient) FetchTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error) {
	out := make(map[string]domain.Ticker, len(markets))
	for _, m := range markets {
		out[m] = f.tickers[m]
	}
	return out, nil
}
func (f *fakeAllocatorClient) FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]domain.OrderBook, error) {
	return nil, nil
}
func (f *fakeAllocatorClient) FetchTrades(ctx context.Context, markets []string, since time.Time, limit int) (map[string][]domain.Trade, error) {
	return nil, nil
}
func (f *fakeAllocatorClient) FetchOpenOrders(ctx context.Context, market string) ([]domain.Order, error) {
	return nil, nil
}
func (f *fakeAllocatorClient) FetchOHLCV(ctx context.Context, market, timeframe string, since time.Time, limit int) ([]domain.Candle, error) {
	switch timeframe {
	case ports.Timeframe1h:
		return f.hourly[market], nil
	case ports.Timeframe1d:
		return f.daily[market], nil
	}
	return nil, nil
}
func (f *fakeAllocatorClient) CreateOrder(ctx context.Context, market string, typ domain.OrderType, side domain.Side, amount, price float64) (string, error) {
	return "", nil
}
func (f *fakeAllocatorClient) CancelOrder(ctx context.Context, order domain.Order) error { return nil }

// trendingDailyCandles builds a month of daily candles with steadily rising
// high/low/volume so both the EMA-average-volume filter and VDX trend come
// out comfortably positive.
func trendingDailyCandles(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		base := 100 + float64(i)
		out[i] = domain.Candle{
			Timestamp: int64(i) * 86_400_000,
			Open:      base,
			High:      base + 2,
			Low:       base - 1,
			Close:     base + 1,
			Volume:    10_000,
		}
	}
	return out
}

// steadyHourlyCandles builds a week of non-zero-volume hourly candles with
// small log-returns, enough for ComputeGBMParameters to run cleanly.
func steadyHourlyCandles(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		close := 100 + float64(i%5)*0.1
		out[i] = domain.Candle{
			Timestamp: int64(i) * 3_600_000,
			Open:      close,
			High:      close + 0.2,
			Low:       close - 0.2,
			Close:     close,
			Volume:    5,
		}
	}
	return out
}

func newEligibleAgent() *domain.TradingAgent {
	a := domain.NewTradingAgent("a1", "ex1", "default")
	a.FiatCurrency = "USDT"
	a.MinimumVolume = 70
	a.MinimumFiatPrice = 1
	a.MinimumAverageVolume = 100
	a.MaxPercentageHoursNoVolume = 0.1
	return a
}

func TestAllocateMarksEligibleMarketCanTrade(t *testing.T) {
	agent := newEligibleAgent()
	client := &fakeAllocatorClient{
		markets: []string{"BTC/USDT"},
		tickers: map[string]domain.Ticker{
			"BTC/USDT": {Last: 100, QuoteVolume: 1_000_000},
		},
		hourly: map[string][]domain.Candle{"BTC/USDT": steadyHourlyCandles(quant.GBMWindow)},
		daily:  map[string][]domain.Candle{"BTC/USDT": trendingDailyCandles(MinimumDailyCandles)},
	}

	require.NoError(t, Allocate(context.Background(), client, agent, 2))

	state := agent.StrategyState["BTC/USDT"]
	assert.True(t, state.CanTrade)
	assert.Greater(t, state.Trend, 0.0)
	assert.True(t, state.HasGBMParams())
}

func TestAllocateRejectsMarketBelowMinimumVolume(t *testing.T) {
	agent := newEligibleAgent()
	client := &fakeAllocatorClient{
		markets: []string{"LOW/USDT"},
		tickers: map[string]domain.Ticker{
			"LOW/USDT": {Last: 100, QuoteVolume: 10},
		},
	}

	require.NoError(t, Allocate(context.Background(), client, agent, 2))

	_, ok := agent.StrategyState["LOW/USDT"]
	assert.False(t, ok)
}

func TestAllocateSkipsBlacklistedMarket(t *testing.T) {
	agent := newEligibleAgent()
	agent.Blacklist = []string{"BTC/USDT"}
	client := &fakeAllocatorClient{
		markets: []string{"BTC/USDT"},
		tickers: map[string]domain.Ticker{
			"BTC/USDT": {Last: 100, QuoteVolume: 1_000_000},
		},
		hourly: map[string][]domain.Candle{"BTC/USDT": steadyHourlyCandles(quant.GBMWindow)},
		daily:  map[string][]domain.Candle{"BTC/USDT": trendingDailyCandles(MinimumDailyCandles)},
	}

	require.NoError(t, Allocate(context.Background(), client, agent, 2))

	_, ok := agent.StrategyState["BTC/USDT"]
	assert.False(t, ok)
}

func TestAllocateRejectsMarketWithTooManyZeroVolumeHours(t *testing.T) {
	agent := newEligibleAgent()
	hours := steadyHourlyCandles(quant.GBMWindow)
	for i := range hours[:20] {
		hours[i].Volume = 0
	}
	client := &fakeAllocatorClient{
		markets: []string{"BTC/USDT"},
		tickers: map[string]domain.Ticker{
			"BTC/USDT": {Last: 100, QuoteVolume: 1_000_000},
		},
		hourly: map[string][]domain.Candle{"BTC/USDT": hours},
		daily:  map[string][]domain.Candle{"BTC/USDT": trendingDailyCandles(MinimumDailyCandles)},
	}

	require.NoError(t, Allocate(context.Background(), client, agent, 2))

	_, ok := agent.StrategyState["BTC/USDT"]
	assert.False(t, ok)
}
