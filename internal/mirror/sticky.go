package mirror

import (
	"context"
	"log/slog"

	"github.com/riverbend/marketmaker/internal/domain"
)

// UpdateStickyOrders implements §4.6 step 5: a sticky order that alone
// holds the best level on its side of the book reprices one level back, to
// the second-best level; otherwise it reprices to the current best level.
func (m *Mirror) UpdateStickyOrders(ctx context.Context, market string) {
	if !m.SyncOrderBook(ctx, []string{market}) {
		slog.Error("mirror: updateStickyOrders syncOrderBook failed", "market", market)
		return
	}
	book := m.Exchange.OrderBooks[market]
	now := m.clock()

	// Collect the candidates first: replacements are inserted into
	// OpenOrders below and must not be repriced again in this same pass.
	var candidates []domain.Order
	for _, o := range m.Exchange.OpenOrders {
		if o.Market != market || !o.Sticky || o.Type != domain.OrderTypeLimit {
			continue
		}
		candidates = append(candidates, o)
	}

	for _, o := range candidates {
		id := o.ID
		target, ok := stickyTarget(o, book)
		if !ok || target == o.Price {
			continue
		}

		if err := m.CancelOrder(ctx, id); err != nil {
			slog.Error("mirror: updateStickyOrders cancel failed", "market", market, "id", id, "err", err)
			continue
		}
		// This cancellation is a reprice, not a real exit; it shouldn't
		// linger as a cancelled order in its own right.
		delete(m.Exchange.CancelledOrders, id)

		minDeal := m.Exchange.MinDealAmountOf(market)
		budgetPositive := o.AutoCancel == 0 || o.Age(now) < o.AutoCancel
		if o.Remaining < minDeal || !budgetPositive {
			continue
		}

		_, err := m.CreateOrder(ctx, CreateOrderOptions{
			Market:                     market,
			Type:                       domain.OrderTypeLimit,
			Side:                       o.Side,
			Amount:                     o.Remaining,
			Price:                      target,
			Sticky:                     true,
			AutoCancel:                 o.AutoCancel,
			AutoCancelAtFillPercentage: o.AutoCancelAtFillPercentage,
			AutoCancelAtPriceLevel:     o.AutoCancelAtPriceLevel,
			HasAutoCancelAtPriceLevel:  true,
		})
		if err != nil {
			slog.Error("mirror: updateStickyOrders replacement failed", "market", market, "side", o.Side, "err", err)
		}
	}
}

// stickyTarget computes the price a sticky order should sit at: the best
// level on its side, or the second-best if it is itself the sole holder of
// the best level.
func stickyTarget(o domain.Order, book domain.OrderBook) (float64, bool) {
	switch o.Side {
	case domain.SideBuy:
		best, ok := book.BestBid()
		if !ok {
			return 0, false
		}
		target := best.Price
		if o.Remaining >= best.Amount && o.Price == best.Price {
			if second, ok := book.SecondBestBid(); ok {
				target = second.Price
			}
		}
		return target, true
	case domain.SideSell:
		best, ok := book.BestAsk()
		if !ok {
			return 0, false
		}
		target := best.Price
		if o.Remaining >= best.Amount && o.Price == best.Price {
			if second, ok := book.SecondBestAsk(); ok {
				target = second.Price
			}
		}
		return target, true
	}
	return 0, false
}
