package strategy

import (
	"context"
	"math"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/indicators"
	"github.com/riverbend/marketmaker/internal/mirror"
)

// EntryPossible evaluates every §4.7 "entryPossible" clause, short-circuiting
// at the first that fails (so cheap checks like trend/priceLevel gate
// before the indicator computations run, matching S5).
func EntryPossible(opts EntryOptions, trend, priceLevel, bid float64, dayCandles, hourCandles []domain.Candle, trades []domain.Trade) bool {
	if trend < opts.MinimumTrend {
		return false
	}
	if priceLevel > opts.MaximumPriceLevel {
		return false
	}
	if len(dayCandles) < 2 {
		return false
	}

	closesExLast := domain.Closes(dayCandles[:len(dayCandles)-1])
	returns := indicators.LogReturns(closesExLast)
	maReturns := indicators.MA(returns, opts.MinimumReturnsPeriod)
	if domain.Tail(maReturns) < opts.MinimumReturns {
		return false
	}

	window := returns
	if len(window) > opts.MinimumReturnsPeriod {
		window = window[len(window)-opts.MinimumReturnsPeriod:]
	}
	minCount := opts.MinimumReturnsPeriod / 3
	above := 0
	for _, r := range window {
		if r >= opts.MinimumReturns {
			above++
		}
	}
	if above < minCount {
		return false
	}

	volumesExLast := domain.Volumes(dayCandles[:len(dayCandles)-1])
	maVolume := indicators.MA(domain.Volumes(dayCandles), opts.MAPeriodVolume)
	if domain.Tail(volumesExLast) < domain.Tail(maVolume) {
		return false
	}

	dayCloses := domain.Closes(dayCandles)
	emaDaily := indicators.EMA(dayCloses, opts.EMAPeriodDailyRetracement)
	atrDaily := indicators.ATR(dayCandles, opts.ATRPeriodDaily)
	if !(bid < domain.Tail(emaDaily)-domain.Tail(atrDaily)*opts.ATRRetracementMultiplier) {
		return false
	}

	hourCloses := domain.Closes(hourCandles)
	emaFast := indicators.EMA(hourCloses, opts.EMAPeriodFast)
	emaMid := indicators.EMA(hourCloses, opts.EMAPeriodMid)
	if !(domain.Tail(emaFast) < domain.Tail(emaMid)) {
		return false
	}

	return tradeVolumeBalance(trades, opts.VolumeBalancePeriod) >= 0
}

// tradeVolumeBalance is (buyVolume-sellVolume)/(buyVolume+sellVolume) over
// the most recent period trades; 0 (a pass) if there are none.
func tradeVolumeBalance(trades []domain.Trade, period int) float64 {
	if len(trades) == 0 {
		return 0
	}
	window := trades
	if len(window) > period {
		window = window[len(window)-period:]
	}
	var buy, sell float64
	for _, t := range window {
		switch t.Side {
		case domain.SideBuy:
			buy += t.Amount
		case domain.SideSell:
			sell += t.Amount
		}
	}
	if buy+sell == 0 {
		return 0
	}
	return (buy - sell) / (buy + sell)
}

// EntryInput bundles what RunEntry needs beyond the mirror itself.
type EntryInput struct {
	Market         string
	Trend          float64
	PriceLevel     float64
	TargetBalance  float64
	MinDealAmount  float64
	MinimumNotional float64
	DayCandles     []domain.Candle
	HourCandles    []domain.Candle
	Trades         []domain.Trade
}

// RunEntry implements §4.7's three-branch dispatch and mutates state.AgentState
// in place (and EntryPrice/EntryTimestamp on a successful placement).
func RunEntry(ctx context.Context, m *mirror.Mirror, state *domain.MarketState, in EntryInput, opts EntryOptions) error {
	e := m.Exchange
	ticker := e.Tickers[in.Market]
	baseCur, quoteCur := domain.SplitMarket(in.Market)
	baseBalance := e.Balance(baseCur)
	quoteBalance := e.Balance(quoteCur)

	buys := e.OpenOrdersForMarketSide(in.Market, domain.SideBuy)
	hasSticky := false
	for _, o := range buys {
		if o.Sticky {
			hasSticky = true
		}
	}

	possible := EntryPossible(opts, in.Trend, in.PriceLevel, ticker.Bid, in.DayCandles, in.HourCandles, in.Trades)

	if hasSticky {
		if !possible {
			m.CancelAllOrders(ctx, in.Market, "")
			state.AgentState = domain.StateIdle
		}
		return nil
	}

	if baseBalance.Total() >= in.MinDealAmount {
		return nil
	}

	if !(in.TargetBalance > 0 && possible) {
		return nil
	}

	amount := math.Max(0, in.TargetBalance-baseBalance.Total())
	if ticker.Bid <= 0 {
		return nil
	}
	quoteBudget := quoteBalance.ExposedFree() / ticker.Bid
	amount = math.Min(amount, quoteBudget)

	minAmount := math.Max(in.MinDealAmount, safeDivide(in.MinimumNotional, ticker.Bid))
	if amount < minAmount {
		return nil
	}

	m.CancelAllOrders(ctx, in.Market, "")
	order, err := m.CreateOrder(ctx, mirror.CreateOrderOptions{
		Market: in.Market,
		Type:   domain.OrderTypeLimit,
		Side:   domain.SideBuy,
		Amount: amount,
		Price:  ticker.Bid,
		Sticky: true,
	})
	if err != nil {
		return err
	}
	if order != nil {
		state.AgentState = domain.StateTryingToEnter
		state.EntryPrice = order.Price
		state.EntryTimestamp = order.CreatedAt
	}
	return nil
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
