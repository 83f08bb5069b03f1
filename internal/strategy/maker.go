package strategy

import (
	"context"
	"math"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/indicators"
	"github.com/riverbend/marketmaker/internal/mirror"
)

// MakerInput bundles what RunMarketMaker needs beyond the mirror itself.
type MakerInput struct {
	Market        string
	TargetBalance float64
	HourCandles   []domain.Candle
}

// RunMarketMaker implements §4.9: it quotes both sides of the book around
// an inventory-skewed mid, sized and capped per the configured options, and
// replaces the resting quotes only when the allowed-side set disagrees
// with what's currently open.
func RunMarketMaker(ctx context.Context, m *mirror.Mirror, in MakerInput, opts MakerOptions) error {
	e := m.Exchange
	ticker := e.Tickers[in.Market]
	baseCur, quoteCur := domain.SplitMarket(in.Market)
	baseBalance := e.Balance(baseCur)
	quoteBalance := e.Balance(quoteCur)

	buys := e.OpenOrdersForMarketSide(in.Market, domain.SideBuy)
	sells := e.OpenOrdersForMarketSide(in.Market, domain.SideSell)
	if len(buys) > 0 && len(sells) > 0 {
		return nil
	}

	emaSlow := domain.Tail(indicators.EMA(domain.Closes(in.HourCandles), opts.EMAPeriodSlow))
	mid := ticker.Average()
	if mid == 0 || in.TargetBalance == 0 {
		return nil
	}

	balanceOffset := baseBalance.Total() - in.TargetBalance
	offset := balanceOffset / in.TargetBalance

	sigma := opts.Sigma
	if sigma == 0 {
		sigma = 0.05
	}
	s := opts.SpreadFixedTerm + opts.SpreadSigmaMultiplier*sigma
	bid := mid - (mid*s*(1+offset))/2
	ask := mid + (mid*s*(1-offset))/2

	rac := math.Exp(math.Log(2)*math.Abs(offset)) * opts.RiskAversionCorrection * sigma
	if offset > 0 {
		bid *= 1 - rac
	} else {
		ask *= 1 + rac
	}

	if lastSell, ok := e.LastClosedOrder(in.Market, domain.SideSell); ok && withinCoolOff(lastSell, opts.CoolOffPeriod, m.Clock()) {
		bid = math.Min(bid, lastSell.Price*(1-opts.MinNextQuoteDifference))
	}
	if lastBuy, ok := e.LastClosedOrder(in.Market, domain.SideBuy); ok && withinCoolOff(lastBuy, opts.CoolOffPeriod, m.Clock()) {
		ask = math.Max(ask, lastBuy.Price*(1+opts.MinNextQuoteDifference))
	}

	deal := math.Min(in.TargetBalance/float64(opts.InventorySteps), opts.TradeVolumeCap*ticker.BaseVolume)
	priceLevel := 0.0
	if emaSlow != 0 {
		priceLevel = mid/emaSlow - 1
	}
	buyAmount := deal
	if priceLevel > 0 {
		buyAmount = deal * math.Exp(-priceLevel*opts.DynamicAmountDropoff)
	}
	sellAmount := deal
	if priceLevel < 0 {
		sellAmount = deal * math.Exp(priceLevel*opts.DynamicAmountDropoff)
	}

	minBuy := math.Max(opts.MinDealAmount, safeDivide(opts.MinimumNotionalValue, bid))
	minSell := math.Max(opts.MinDealAmount, safeDivide(opts.MinimumNotionalValue, ask))

	buyAmount = math.Min(buyAmount, quoteBalance.ExposedFree()/bid)
	sellAmount = math.Min(sellAmount, baseBalance.ExposedFree())

	canBuy := buyAmount >= minBuy
	canSell := sellAmount >= minSell

	haveBuy := len(buys) > 0
	haveSell := len(sells) > 0
	if haveBuy == canBuy && haveSell == canSell {
		return nil
	}

	m.CancelAllOrders(ctx, in.Market, "")

	if canBuy {
		if _, err := m.CreateOrder(ctx, mirror.CreateOrderOptions{
			Market: in.Market, Type: domain.OrderTypeLimit, Side: domain.SideBuy,
			Amount: buyAmount, Price: bid,
			AutoCancelAtFillPercentage: opts.AutoCancelAtFillPercentage,
			HasAutoCancelAtPriceLevel:  false,
		}); err != nil {
			return err
		}
	}
	if canSell {
		if _, err := m.CreateOrder(ctx, mirror.CreateOrderOptions{
			Market: in.Market, Type: domain.OrderTypeLimit, Side: domain.SideSell,
			Amount: sellAmount, Price: ask,
			AutoCancelAtFillPercentage: opts.AutoCancelAtFillPercentage,
			HasAutoCancelAtPriceLevel:  false,
		}); err != nil {
			return err
		}
	}
	return nil
}

func withinCoolOff(o domain.Order, period time.Duration, now time.Time) bool {
	if o.ClosedAt == nil {
		return false
	}
	return now.Sub(*o.ClosedAt) < period
}
