package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/mirror"
)

// fakeCycleClient serves fixed candle/ticker/balance data so RunAgentCycle
// can be exercised end-to-end without a real exchange.
type fakeCycleClient struct {
	noopClient
	tickers map[string]domain.Ticker
	candles []domain.Candle
}

func (f fakeCycleClient) FetchBalance(ctx context.Context) (map[string]domain.Balance, error) {
	return map[string]domain.Balance{"USDT": {Free: 1000}}, nil
}

func (f fakeCycleClient) FetchTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error) {
	return f.tickers, nil
}

func (f fakeCycleClient) FetchOHLCV(ctx context.Context, market, timeframe string, since time.Time, limit int) ([]domain.Candle, error) {
	return f.candles, nil
}

func (f fakeCycleClient) FetchTrades(ctx context.Context, markets []string, since time.Time, limit int) (map[string][]domain.Trade, error) {
	return map[string][]domain.Trade{}, nil
}

func TestRunAgentCycle_NoCandidateMarketsIsNoop(t *testing.T) {
	agent := domain.NewTradingAgent("a1", "ex1", "default")
	e := domain.NewExchange("ex1", "Test", "USDT")
	m := mirror.New(e, fakeCycleClient{candles: trendingCandles(40)}, mirror.DefaultConfig())

	err := RunAgentCycle(context.Background(), m, agent, NewRegistry(), nil)
	assert.NoError(t, err)
}

func TestRunAgentCycle_ActivatesCanTradeMarket(t *testing.T) {
	agent := domain.NewTradingAgent("a1", "ex1", "default")
	agent.FiatCurrency = "USDT"
	agent.StrategyState["BTC/USDT"] = domain.MarketState{CanTrade: true, Trend: 0.5, PriceLevel: 0.2}

	e := domain.NewExchange("ex1", "Test", "USDT")
	client := fakeCycleClient{
		tickers: map[string]domain.Ticker{"BTC/USDT": {Bid: 100, Ask: 101}},
		candles: trendingCandles(60),
	}
	m := mirror.New(e, client, mirror.DefaultConfig())

	reg := NewRegistry()
	reg.Register(DefaultStrategy{})

	err := RunAgentCycle(context.Background(), m, agent, reg, nil)
	require.NoError(t, err)
	assert.Contains(t, agent.ActiveMarkets, "BTC/USDT")
}
