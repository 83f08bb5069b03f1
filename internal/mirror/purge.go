package mirror

// PurgeOrderList implements §4.6 step 6: drop closed and cancelled orders
// older than the configured retention window, so the mirror doesn't grow
// without bound over the life of an exchange.
func (m *Mirror) PurgeOrderList(market string) {
	cutoff := m.clock().Add(-m.Config.PurgeAfter)
	e := m.Exchange

	for id, o := range e.ClosedOrders {
		if o.Market != market {
			continue
		}
		if o.ClosedAt != nil && o.ClosedAt.Before(cutoff) {
			delete(e.ClosedOrders, id)
		}
	}
	for id, o := range e.CancelledOrders {
		if o.Market != market {
			continue
		}
		if o.ClosedAt != nil && o.ClosedAt.Before(cutoff) {
			delete(e.CancelledOrders, id)
		}
	}
}
