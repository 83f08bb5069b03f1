package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// CreateOrderOptions is the input to CreateOrder. Callers set Price only to
// override the default (side's top-of-book price); leave it 0 to use the
// default. AutoCancelAtFillPercentage of 0 means "use the default (1)".
type CreateOrderOptions struct {
	Market                     string
	Type                       domain.OrderType
	Side                       domain.Side
	Amount                     float64
	Price                      float64
	Sticky                     bool
	AutoCancel                 time.Duration
	AutoCancelAtFillPercentage float64
	AutoCancelAtPriceLevel     float64
	HasAutoCancelAtPriceLevel  bool
}

// CreateOrder implements §4.6 "createOrder(options)". In simulation mode it
// fully simulates the balance-reservation side effects; in live mode it
// delegates to the ExchangeClient and adopts the remote order id. Returns
// (nil, nil) when the live adapter call failed (already logged) — callers
// must handle a nil order.
func (m *Mirror) CreateOrder(ctx context.Context, opts CreateOrderOptions) (*domain.Order, error) {
	e := m.Exchange
	if e.Lockdown {
		return nil, fmt.Errorf("mirror.CreateOrder: %w", domain.ErrLockdown)
	}
	if e.ForceAutoCancel && opts.AutoCancel == 0 {
		return nil, fmt.Errorf("mirror.CreateOrder: forceAutoCancel requires an autoCancel duration: %w", domain.ErrInput)
	}

	ticker := e.Tickers[opts.Market]

	price := opts.Price
	if price == 0 {
		price = ticker.Ask
		if opts.Side == domain.SideBuy {
			price = ticker.Bid
		}
	}
	sticky := opts.Sticky
	if opts.Type == domain.OrderTypeMarket {
		sticky = false
	}
	autoCancelFillPct := opts.AutoCancelAtFillPercentage
	if autoCancelFillPct == 0 {
		autoCancelFillPct = 1
	}
	autoCancelPriceLevel := opts.AutoCancelAtPriceLevel
	if !opts.HasAutoCancelAtPriceLevel {
		autoCancelPriceLevel = domain.DefaultAutoCancelAtPriceLevel(opts.Side)
	}

	if opts.Type == domain.OrderTypeMarket {
		if opts.Side == domain.SideBuy {
			price = ticker.Ask
		} else {
			price = ticker.Bid
		}
	}

	if opts.Amount <= 0 || price <= 0 {
		return nil, fmt.Errorf("mirror.CreateOrder: amount and price must be positive: %w", domain.ErrInput)
	}

	base, quote := domain.SplitMarket(opts.Market)

	order := domain.Order{
		CreatedAt:                  m.clock(),
		Market:                     opts.Market,
		Type:                       opts.Type,
		Side:                       opts.Side,
		Price:                      price,
		Fee:                        e.Fee,
		Status:                     domain.OrderStatusOpen,
		AutoCancel:                 opts.AutoCancel,
		AutoCancelAtFillPercentage: autoCancelFillPct,
		AutoCancelAtPriceLevel:     autoCancelPriceLevel,
		Sticky:                     sticky,
	}

	if e.Simulation {
		m.simulateCreate(&order, opts.Amount, base, quote)
	} else {
		remoteID, err := m.Client.CreateOrder(ctx, opts.Market, opts.Type, opts.Side, opts.Amount, price)
		if err != nil {
			slog.Error("mirror: live createOrder failed", "market", opts.Market, "side", opts.Side, "err", err)
			return nil, nil
		}
		order.ID = remoteID
		order.Amount = opts.Amount
		order.Remaining = opts.Amount
	}

	if order.ID == "" {
		order.ID = domain.NewLocalOrderID(m.rng)
	}

	if order.Type == domain.OrderTypeMarket {
		order.Status = domain.OrderStatusClosed
		order.Filled = order.Amount
		order.Remaining = 0
		closedAt := m.clock()
		order.ClosedAt = &closedAt
		e.ClosedOrders[order.ID] = order
		m.emit(domain.EventMarketOrderCreated, map[string]any{"id": order.ID, "market": order.Market, "side": string(order.Side)})
	} else {
		e.OpenOrders[order.ID] = order
		m.emit(domain.EventLimitOrderCreated, map[string]any{"id": order.ID, "market": order.Market, "side": string(order.Side)})
	}

	return &order, nil
}

// simulateCreate applies the spec's simulation-mode balance bookkeeping
// (§4.6 steps 5-6) in place on order, and mutates order.Amount/Remaining to
// the clamped fillable size.
func (m *Mirror) simulateCreate(order *domain.Order, requestedAmount float64, base, quote string) {
	slippage := m.Config.SlippagePercent

	if order.Side == domain.SideBuy {
		quoteFree := m.balance(quote).ExposedFree()
		amount := math.Min(order.Price*requestedAmount, quoteFree) / order.Price
		order.Amount = amount
		order.Remaining = amount

		if order.Type == domain.OrderTypeLimit {
			m.reserve(quote, amount*order.Price)
		} else {
			m.withdraw(quote, amount*order.Price)
			m.deposit(base, amount*(1-order.Fee)*(1-slippage))
		}
		return
	}

	baseFree := m.balance(base).ExposedFree()
	amount := math.Min(baseFree, requestedAmount)
	order.Amount = amount
	order.Remaining = amount

	if order.Type == domain.OrderTypeLimit {
		m.reserve(base, amount)
	} else {
		m.withdraw(base, amount)
		m.deposit(quote, amount*order.Price*(1-order.Fee)*(1-slippage))
	}
}
