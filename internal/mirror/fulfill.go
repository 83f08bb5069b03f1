package mirror

import (
	"context"
	"log/slog"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/ports"
)

// FulfillLimitOrders is the simulation-only fill engine (§4.6 step 3): for
// every open Limit order on market, it fetches the latest smallest-
// timeframe candle and fills the order if the candle's range crosses the
// order's price. It is a no-op when the exchange isn't in simulation mode.
func (m *Mirror) FulfillLimitOrders(ctx context.Context, market string) {
	e := m.Exchange
	if !e.Simulation {
		return
	}

	candles, err := m.Client.FetchOHLCV(ctx, market, ports.Timeframe1m, e.LastSync[market], 1)
	if err != nil {
		slog.Error("mirror: fulfillLimitOrders fetchOHLCV failed", "market", market, "err", err)
		return
	}
	if len(candles) == 0 {
		return
	}
	candle := domain.Tail(candles)
	if candle.Volume <= 0 {
		return
	}

	for id, order := range e.OpenOrders {
		if order.Market != market || order.Type != domain.OrderTypeLimit {
			continue
		}
		if order.CreatedAt.UnixMilli() >= candle.Timestamp {
			continue
		}

		filled := false
		switch order.Side {
		case domain.SideBuy:
			filled = candle.Low < order.Price
		case domain.SideSell:
			filled = candle.High > order.Price
		}
		if !filled {
			continue
		}

		m.fillOrder(&order, order.Remaining)
		delete(e.OpenOrders, id)
		closedAt := m.clock()
		order.ClosedAt = &closedAt
		e.ClosedOrders[id] = order
		m.emit(domain.EventLimitOrderFulfilled, map[string]any{"id": id, "market": order.Market, "side": string(order.Side)})
	}
}

// fillOrder applies a (possibly partial) fill to order in place: it moves
// the reserved amount out of `used` and credits the other leg, net of fee.
func (m *Mirror) fillOrder(order *domain.Order, amount float64) {
	if amount <= 0 {
		return
	}
	base, quote := domain.SplitMarket(order.Market)

	switch order.Side {
	case domain.SideBuy:
		m.withdrawFromUsed(quote, amount*order.Price)
		m.deposit(base, amount*(1-order.Fee))
	case domain.SideSell:
		m.withdrawFromUsed(base, amount)
		m.deposit(quote, amount*order.Price*(1-order.Fee))
	}

	order.Filled += amount
	order.Remaining -= amount
	if order.Remaining < 0 {
		order.Remaining = 0
	}
	order.Status = domain.OrderStatusClosed
}
