package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverbend/marketmaker/internal/domain"
)

// CancelOrder implements §4.6 "cancelOrder(order)". On a live venue, a
// remote error leaves local state untouched (no mutation on failure).
func (m *Mirror) CancelOrder(ctx context.Context, id string) error {
	e := m.Exchange
	if e.Lockdown {
		return fmt.Errorf("mirror.CancelOrder: %w", domain.ErrLockdown)
	}

	order, ok := e.OpenOrders[id]
	if !ok || order.Status != domain.OrderStatusOpen {
		return fmt.Errorf("mirror.CancelOrder: order %s not open: %w", id, domain.ErrInput)
	}

	if !e.Simulation {
		if err := m.Client.CancelOrder(ctx, order); err != nil {
			slog.Error("mirror: live cancelOrder failed", "id", id, "market", order.Market, "err", err)
			return nil
		}
	}

	reservedCurrency := domain.ReservedCurrency(order.Market, order.Side)
	reservedRemaining := order.Remaining
	if order.Side == domain.SideBuy {
		reservedRemaining = order.Remaining * order.Price
	}
	m.release(reservedCurrency, reservedRemaining)

	delete(e.OpenOrders, id)
	order.Status = domain.OrderStatusClosed
	now := m.clock()
	order.ClosedAt = &now
	e.CancelledOrders[id] = order
	if order.Filled > 0 {
		e.ClosedOrders[id] = order
	}

	if order.Type == domain.OrderTypeMarket {
		m.emit(domain.EventMarketOrderCancelled, map[string]any{"id": id, "market": order.Market})
	} else {
		m.emit(domain.EventLimitOrderCancelled, map[string]any{"id": id, "market": order.Market})
	}
	return nil
}

// CancelAllOrders cancels every open order matching market/side (either
// may be left zero-valued to mean "any"); individual failures are
// reported but don't abort the batch (§4.6). Cancellation runs one order
// at a time: CancelOrder mutates the mirror's shared order/balance/event
// state directly, and the Mirror is owned exclusively by the current
// agent run (§5 "Shared-resource policy"), so there is no safe way to
// fan this out across goroutines without its own synchronization.
func (m *Mirror) CancelAllOrders(ctx context.Context, market string, side domain.Side) []error {
	var ids []string
	for id, o := range m.Exchange.OpenOrders {
		if market != "" && o.Market != market {
			continue
		}
		if side != "" && o.Side != side {
			continue
		}
		ids = append(ids, id)
	}

	var out []error
	for _, id := range ids {
		if err := m.CancelOrder(ctx, id); err != nil {
			out = append(out, err)
		}
	}
	return out
}
