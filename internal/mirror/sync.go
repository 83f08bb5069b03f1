package mirror

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// SyncBalance deep-merges the remote balance snapshot into the local
// mirror (§4.6 "syncBalance"). It merges rather than overwrites: the
// local mirror also carries simulation-only currencies the remote never
// reports.
func (m *Mirror) SyncBalance(ctx context.Context) bool {
	remote, err := m.Client.FetchBalance(ctx)
	if err != nil {
		slog.Error("mirror: syncBalance failed", "err", err)
		return false
	}
	for cur, b := range remote {
		m.Exchange.Balances[cur] = b
	}
	return true
}

// SyncTickers deep-merges fetched tickers into the local mirror.
func (m *Mirror) SyncTickers(ctx context.Context, markets []string) bool {
	remote, err := m.Client.FetchTickers(ctx, markets)
	if err != nil {
		slog.Error("mirror: syncTickers failed", "markets", markets, "err", err)
		return false
	}
	for market, t := range remote {
		m.Exchange.Tickers[market] = t
	}
	return true
}

// SyncOrderBook deep-merges fetched order books into the local mirror.
func (m *Mirror) SyncOrderBook(ctx context.Context, markets []string) bool {
	remote, err := m.Client.FetchOrderBook(ctx, markets, 0)
	if err != nil {
		slog.Error("mirror: syncOrderBook failed", "markets", markets, "err", err)
		return false
	}
	for market, ob := range remote {
		m.Exchange.OrderBooks[market] = ob
	}
	return true
}

// SyncTrades deep-merges fetched public trades into the local mirror.
func (m *Mirror) SyncTrades(ctx context.Context, markets []string, since time.Time, limit int) bool {
	remote, err := m.Client.FetchTrades(ctx, markets, since, limit)
	if err != nil {
		slog.Error("mirror: syncTrades failed", "markets", markets, "err", err)
		return false
	}
	for market, trades := range remote {
		m.Exchange.Trades[market] = trades
	}
	return true
}

// SyncOrders reconciles local open orders against the remote venue (§4.6
// "syncOrders"); it is a no-op returning true in simulation mode, since
// there is no remote to reconcile against.
func (m *Mirror) SyncOrders(ctx context.Context, market string) bool {
	e := m.Exchange
	if e.Simulation {
		return true
	}

	remote, err := m.Client.FetchOpenOrders(ctx, market)
	if err != nil {
		slog.Error("mirror: syncOrders failed", "market", market, "err", err)
		return false
	}
	remoteByID := make(map[string]domain.Order, len(remote))
	for _, r := range remote {
		remoteByID[r.ID] = r
	}

	now := m.clock()
	for id, local := range e.OpenOrders {
		if local.Market != market {
			continue
		}
		r, present := remoteByID[id]
		if !present {
			if _, cancelled := e.CancelledOrders[id]; cancelled {
				continue
			}
			local.Status = domain.OrderStatusClosed
			local.Filled = local.Amount
			local.Remaining = 0
			closedAt := now
			local.ClosedAt = &closedAt
			delete(e.OpenOrders, id)
			e.ClosedOrders[id] = local
			m.emit(domain.EventLimitOrderFulfilled, map[string]any{"id": id, "market": market})
			continue
		}
		local.Status = r.Status
		local.Filled = r.Filled
		local.Remaining = r.Remaining
		local.Fee = r.Fee
		e.OpenOrders[id] = local
	}

	for _, r := range remote {
		if _, present := e.OpenOrders[r.ID]; present {
			continue
		}
		if _, ok := e.ClosedOrders[r.ID]; ok {
			delete(e.ClosedOrders, r.ID)
			e.OpenOrders[r.ID] = r
			continue
		}
		if e.ForceAutoCancel {
			e.OpenOrders[r.ID] = r
			_ = m.CancelOrder(ctx, r.ID)
			continue
		}
		e.OpenOrders[r.ID] = r
	}

	// A struct can't carry an "undefined" bool the way a document store can;
	// an empty Status is this port's equivalent zombie marker.
	for id, o := range e.OpenOrders {
		if o.Market != market {
			continue
		}
		if o.Status == "" {
			delete(e.OpenOrders, id)
		}
	}

	count := 0
	for _, o := range e.OpenOrders {
		if o.Market == market {
			count++
		}
	}
	return count == len(remote)
}
