package mirror

import (
	"context"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// AutoCancelOrders implements §4.6 step 4: cancel every open order on
// market whose age, fill percentage, or price-level crossing has tripped
// its own auto-cancel budget.
func (m *Mirror) AutoCancelOrders(ctx context.Context, market string) {
	now := m.clock()
	ticker := m.Exchange.Tickers[market]

	var toCancel []string
	for id, o := range m.Exchange.OpenOrders {
		if o.Market != market {
			continue
		}
		if m.autoCancelDue(o, ticker, now) {
			toCancel = append(toCancel, id)
		}
	}

	for _, id := range toCancel {
		_ = m.CancelOrder(ctx, id)
	}
}

func (m *Mirror) autoCancelDue(o domain.Order, ticker domain.Ticker, now time.Time) bool {
	if o.AutoCancel > 0 && o.Age(now) > o.AutoCancel {
		return true
	}
	if o.FillPercentage() >= o.AutoCancelAtFillPercentage {
		return true
	}
	switch o.Side {
	case domain.SideBuy:
		if ticker.Ask > o.AutoCancelAtPriceLevel {
			return true
		}
	case domain.SideSell:
		if ticker.Bid < o.AutoCancelAtPriceLevel {
			return true
		}
	}
	return false
}
