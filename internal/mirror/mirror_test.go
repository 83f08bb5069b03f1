package mirror

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbend/marketmaker/internal/domain"
)

// fakeClient is a minimal ports.ExchangeClient double whose fields are
// read directly by each test, no recording/mocking framework needed.
type fakeClient struct {
	ohlcv       []domain.Candle
	ohlcvErr    error
	orderBook   map[string]domain.OrderBook
	openOrders  []domain.Order
	cancelCalls []string
	cancelErr   error
}

func (f *fakeClient) LoadMarkets(ctx context.Context) error { return nil }
func (f *fakeClient) GetMarkets(ctx context.Context, fiat string) ([]string, error) {
	return nil, nil
}
func (f *fakeClient) GetMinDealAmount(ctx context.Context, market string) (float64, error) {
	return 0, nil
}
func (f *fakeClient) FetchBalance(ctx context.Context) (map[string]domain.Balance, error) {
	return nil, nil
}
func (f *fakeClient) FetchTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error) {
	return nil, nil
}
func (f *fakeClient) FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]domain.OrderBook, error) {
	return f.orderBook, nil
}
func (f *fakeClient) FetchTrades(ctx context.Context, markets []string, since time.Time, limit int) (map[string][]domain.Trade, error) {
	return nil, nil
}
func (f *fakeClient) FetchOpenOrders(ctx context.Context, market string) ([]domain.Order, error) {
	return f.openOrders, nil
}
func (f *fakeClient) FetchOHLCV(ctx context.Context, market, timeframe string, since time.Time, limit int) ([]domain.Candle, error) {
	return f.ohlcv, f.ohlcvErr
}
func (f *fakeClient) CreateOrder(ctx context.Context, market string, typ domain.OrderType, side domain.Side, amount, price float64) (string, error) {
	return "", nil
}
func (f *fakeClient) CancelOrder(ctx context.Context, order domain.Order) error {
	f.cancelCalls = append(f.cancelCalls, order.ID)
	return f.cancelErr
}

func newSimExchange() *domain.Exchange {
	e := domain.NewExchange("ex1", "test", "USDT")
	e.Simulation = true
	return e
}

func newTestMirror(e *domain.Exchange, client *fakeClient) *Mirror {
	return New(e, client, DefaultConfig()).WithRand(rand.New(rand.NewSource(1)))
}

// S1: createOrder then cancelOrder round-trips balance exactly.
func TestCreateThenCancelOrderRoundTripsBalance(t *testing.T) {
	e := newSimExchange()
	e.Balances["USDT"] = domain.Balance{Free: 200}
	e.Tickers["BTC/USDT"] = domain.Ticker{Bid: 100, Ask: 100}
	m := newTestMirror(e, &fakeClient{})

	order, err := m.CreateOrder(context.Background(), CreateOrderOptions{
		Market: "BTC/USDT",
		Type:   domain.OrderTypeLimit,
		Side:   domain.SideBuy,
		Amount: 1,
		Price:  100,
	})
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 1.0, order.Amount)
	assert.Equal(t, 100.0, order.Price)
	assert.Equal(t, domain.Balance{Free: 100, Used: 100}, e.Balances["USDT"])

	require.NoError(t, m.CancelOrder(context.Background(), order.ID))
	assert.Equal(t, domain.Balance{Free: 200, Used: 0}, e.Balances["USDT"])
	assert.Empty(t, e.OpenOrders)
	assert.Contains(t, e.CancelledOrders, order.ID)
}

// S2: a crossing candle fulfills an open limit buy.
func TestFulfillLimitOrdersFillsOnCrossingCandle(t *testing.T) {
	e := newSimExchange()
	e.Balances["BTC"] = domain.Balance{}
	past := time.Unix(0, 0)
	e.OpenOrders["o1"] = domain.Order{
		ID:        "o1",
		Market:    "BTC/USDT",
		Type:      domain.OrderTypeLimit,
		Side:      domain.SideBuy,
		Price:     100,
		Amount:    1,
		Remaining: 1,
		Status:    domain.OrderStatusOpen,
		CreatedAt: past,
	}
	client := &fakeClient{ohlcv: []domain.Candle{{
		Timestamp: past.Add(time.Minute).UnixMilli(),
		Low:       99,
		High:      101,
		Volume:    10,
	}}}
	m := newTestMirror(e, client)

	m.FulfillLimitOrders(context.Background(), "BTC/USDT")

	assert.Empty(t, e.OpenOrders)
	closed, ok := e.ClosedOrders["o1"]
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusClosed, closed.Status)
	assert.Equal(t, 1.0, closed.Filled)
	assert.Equal(t, 1.0, e.Balances["BTC"].Free)
}

// S3: sticky repricing follows the book one level back, then converges.
func TestUpdateStickyOrdersRepricesThenConverges(t *testing.T) {
	e := newSimExchange()
	e.Balances["BTC"] = domain.Balance{Free: 10}
	e.Tickers["BTC/USDT"] = domain.Ticker{Bid: 50, Ask: 51}
	order := domain.Order{
		ID:        "s1",
		Market:    "BTC/USDT",
		Type:      domain.OrderTypeLimit,
		Side:      domain.SideSell,
		Price:     50,
		Amount:    1,
		Remaining: 1,
		Status:    domain.OrderStatusOpen,
		Sticky:    true,
	}
	e.OpenOrders["s1"] = order
	client := &fakeClient{orderBook: map[string]domain.OrderBook{
		"BTC/USDT": {Asks: []domain.BookLevel{{Price: 50, Amount: 1}, {Price: 51, Amount: 5}}},
	}}
	m := newTestMirror(e, client)

	m.UpdateStickyOrders(context.Background(), "BTC/USDT")

	require.Len(t, e.OpenOrders, 1)
	var repriced domain.Order
	for _, o := range e.OpenOrders {
		repriced = o
	}
	assert.Equal(t, 51.0, repriced.Price)

	// Once another order joins the 51 level, ours is no longer sole holder
	// of best-ask: the target stays at the current price and this is a
	// no-op.
	client.orderBook["BTC/USDT"] = domain.OrderBook{Asks: []domain.BookLevel{{Price: 51, Amount: 5}, {Price: 55, Amount: 2}}}
	beforeID := repriced.ID
	m.UpdateStickyOrders(context.Background(), "BTC/USDT")
	require.Len(t, e.OpenOrders, 1)
	for id, o := range e.OpenOrders {
		assert.Equal(t, beforeID, id)
		assert.Equal(t, 51.0, o.Price)
	}
}

// S4: an order past its auto-cancel age is cancelled on the next update.
func TestAutoCancelOrdersCancelsExpiredOrder(t *testing.T) {
	e := newSimExchange()
	e.Balances["USDT"] = domain.Balance{Free: 0, Used: 100}
	e.Tickers["BTC/USDT"] = domain.Ticker{Bid: 100, Ask: 100}
	placedAt := time.Now().Add(-61 * time.Second)
	e.OpenOrders["a1"] = domain.Order{
		ID:                     "a1",
		Market:                 "BTC/USDT",
		Type:                   domain.OrderTypeLimit,
		Side:                   domain.SideBuy,
		Price:                  100,
		Amount:                 1,
		Remaining:              1,
		Status:                 domain.OrderStatusOpen,
		CreatedAt:              placedAt,
		AutoCancel:             60 * time.Second,
		AutoCancelAtFillPercentage: 1,
		AutoCancelAtPriceLevel: domain.DefaultAutoCancelAtPriceLevel(domain.SideBuy),
	}
	m := newTestMirror(e, &fakeClient{})

	m.AutoCancelOrders(context.Background(), "BTC/USDT")

	assert.Empty(t, e.OpenOrders)
	assert.Contains(t, e.CancelledOrders, "a1")
}

// Invariant 3: purge only drops orders older than the retention window.
func TestPurgeOrderListDropsOnlyOldOrders(t *testing.T) {
	e := newSimExchange()
	now := time.Now()
	oldClosed := now.Add(-8 * 24 * time.Hour)
	recentClosed := now.Add(-1 * time.Hour)
	e.ClosedOrders["old"] = domain.Order{Market: "BTC/USDT", ClosedAt: &oldClosed}
	e.ClosedOrders["recent"] = domain.Order{Market: "BTC/USDT", ClosedAt: &recentClosed}
	m := newTestMirror(e, &fakeClient{}).WithClock(func() time.Time { return now })

	m.PurgeOrderList("BTC/USDT")

	assert.NotContains(t, e.ClosedOrders, "old")
	assert.Contains(t, e.ClosedOrders, "recent")
}

// Invariant 8: update() is idempotent against an unchanged remote.
func TestUpdateIsIdempotentOnUnchangedRemote(t *testing.T) {
	e := newSimExchange()
	e.Balances["USDT"] = domain.Balance{Free: 1000}
	e.Tickers["BTC/USDT"] = domain.Ticker{Bid: 100, Ask: 101}
	client := &fakeClient{}
	m := newTestMirror(e, client)

	ok1 := m.Update(context.Background(), "BTC/USDT")
	snapshot := e.Balances["USDT"]
	ok2 := m.Update(context.Background(), "BTC/USDT")

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, snapshot, e.Balances["USDT"])
}

// Lockdown rejects every mutating entry point.
func TestLockdownRejectsCreateOrder(t *testing.T) {
	e := newSimExchange()
	e.Lockdown = true
	m := newTestMirror(e, &fakeClient{})

	_, err := m.CreateOrder(context.Background(), CreateOrderOptions{Market: "BTC/USDT", Amount: 1, Price: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLockdown)
}

func TestGetTotalBalanceFallsBackToInverseMarket(t *testing.T) {
	e := newSimExchange()
	e.Balances["USDT"] = domain.Balance{Free: 100}
	e.Balances["BTC"] = domain.Balance{Free: 2}
	e.Tickers["USDT/BTC"] = domain.Ticker{Bid: 0.01} // 1 BTC = 100 USDT
	m := newTestMirror(e, &fakeClient{})

	total, ok := m.GetTotalBalance(false, nil, false)
	require.True(t, ok)
	assert.InDelta(t, 300, total, 1e-9) // 100 USDT + 2 BTC * 100
}
