// Package ports declares the narrow interfaces the rest of the engine
// depends on: the remote-exchange adapter and the persistence stores.
// Nothing in this package has an implementation; concrete adapters live
// under internal/adapters.
package ports

import (
	"context"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// ExchangeClient is the narrow adapter to a remote spot exchange (§4.5).
// Every operation fails with one of domain.ErrNetwork, ErrRateLimited,
// ErrBadResponse or ErrMarketUnknown.
type ExchangeClient interface {
	// LoadMarkets refreshes symbol metadata. Callers should call this at
	// most every 24h.
	LoadMarkets(ctx context.Context) error

	// GetMarkets lists "BASE/QUOTE" symbols, optionally filtered to those
	// quoted in fiat.
	GetMarkets(ctx context.Context, fiat string) ([]string, error)

	// GetMinDealAmount returns the market's minimum order size.
	GetMinDealAmount(ctx context.Context, market string) (float64, error)

	// FetchBalance returns free/used balances per currency.
	FetchBalance(ctx context.Context) (map[string]domain.Balance, error)

	// FetchTickers returns a Ticker per requested market. If markets is
	// empty, every known market is returned.
	FetchTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error)

	// FetchOrderBook returns an OrderBook per requested market, to the
	// given depth (0 means the adapter's default).
	FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]domain.OrderBook, error)

	// FetchTrades returns recent public trades per market.
	FetchTrades(ctx context.Context, markets []string, since time.Time, limit int) (map[string][]domain.Trade, error)

	// FetchOpenOrders returns every open order, or only those on market if
	// market is non-empty.
	FetchOpenOrders(ctx context.Context, market string) ([]domain.Order, error)

	// FetchOHLCV returns candles for market/timeframe. The adapter MUST
	// fail soft (return nil, nil) on rate-limit/unknown-market rather than
	// erroring; callers MUST handle a nil result.
	FetchOHLCV(ctx context.Context, market, timeframe string, since time.Time, limit int) ([]domain.Candle, error)

	// CreateOrder submits an order and returns the exchange-assigned id.
	// Amount and price are rounded by the adapter to the market's native
	// precision before submission.
	CreateOrder(ctx context.Context, market string, typ domain.OrderType, side domain.Side, amount float64, price float64) (string, error)

	// CancelOrder cancels a previously placed order. Some venues need more
	// than the id (market, side); the adapter encapsulates that.
	CancelOrder(ctx context.Context, order domain.Order) error
}

// Timeframe literals the full strategy requires from an adapter, per §6.
const (
	Timeframe1m  = "1m"
	Timeframe5m  = "5m"
	Timeframe15m = "15m"
	Timeframe1h  = "1h"
	Timeframe1d  = "1d"
)
