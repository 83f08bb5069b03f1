package mirror

import "context"

// Update runs the per-market reconciliation cycle in the order §4.6
// fixes: syncOrders, then (simulation only) fulfillLimitOrders,
// autoCancelOrders, updateStickyOrders, purgeOrderList. It returns false
// if syncOrders reports a reconciliation mismatch, in which case the rest
// of the cycle is skipped for this market.
func (m *Mirror) Update(ctx context.Context, market string) bool {
	if m.Exchange.Lockdown {
		return false
	}

	if !m.SyncOrders(ctx, market) {
		return false
	}

	m.FulfillLimitOrders(ctx, market)
	m.AutoCancelOrders(ctx, market)
	m.UpdateStickyOrders(ctx, market)
	m.PurgeOrderList(market)
	return true
}
