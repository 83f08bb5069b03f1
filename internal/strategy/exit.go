package strategy

import (
	"context"
	"math"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/indicators"
	"github.com/riverbend/marketmaker/internal/mirror"
)

// ExitInput bundles what RunExit needs beyond the mirror itself.
type ExitInput struct {
	Market        string
	MinDealAmount float64
	MinimumNotional float64
	DayCandles    []domain.Candle
	HourCandles   []domain.Candle
}

// RunExit implements §4.8. It only acts once base balance exceeds the
// minimum tradeable size; otherwise it's a no-op.
func RunExit(ctx context.Context, m *mirror.Mirror, state *domain.MarketState, in ExitInput, opts ExitOptions) error {
	e := m.Exchange
	ticker := e.Tickers[in.Market]
	baseCur, _ := domain.SplitMarket(in.Market)
	baseBalance := e.Balance(baseCur)

	minAmount := math.Max(in.MinDealAmount, safeDivide(in.MinimumNotional, ticker.Ask))
	if baseBalance.Total() <= minAmount {
		return nil
	}

	if state.EntryPrice == 0 {
		if last, ok := e.LastClosedOrder(in.Market, domain.SideBuy); ok {
			state.EntryPrice = last.Price
			state.EntryTimestamp = last.CreatedAt
		} else {
			state.EntryPrice = ticker.Ask
			state.EntryTimestamp = m.Clock()
		}
	}

	sells := e.OpenOrdersForMarketSide(in.Market, domain.SideSell)
	hasSticky := false
	for _, o := range sells {
		if o.Sticky {
			hasSticky = true
		}
	}

	exitNeeded := exitPossible(opts, state, ticker, in.DayCandles, in.HourCandles, m.Clock())

	if hasSticky {
		if !exitNeeded && state.CanTrade {
			m.CancelAllOrders(ctx, in.Market, "")
			state.AgentState = domain.StateHasPosition
		}
		return nil
	}

	if !exitNeeded {
		return nil
	}

	m.CancelAllOrders(ctx, in.Market, "")
	_, err := m.CreateOrder(ctx, mirror.CreateOrderOptions{
		Market: in.Market,
		Type:   domain.OrderTypeLimit,
		Side:   domain.SideSell,
		Amount: baseBalance.ExposedFree(),
		Price:  ticker.Ask,
		Sticky: true,
	})
	if err != nil {
		return err
	}
	state.AgentState = domain.StateTryingToLeave
	return nil
}

// exitPossible is takeProfitExitPossible OR returnBasedExitPossible,
// OR the opt-in TrailingStopExitPossible when ExitOptions.TrailingStopEnabled
// is set (§4.8, §9 open question 1).
func exitPossible(opts ExitOptions, state *domain.MarketState, ticker domain.Ticker, dayCandles, hourCandles []domain.Candle, now time.Time) bool {
	return takeProfitExitPossible(opts, state, ticker, dayCandles) ||
		returnBasedExitPossible(opts, state, ticker, dayCandles, hourCandles, now) ||
		TrailingStopExitPossible(opts, state, ticker, dayCandles)
}

func takeProfitExitPossible(opts ExitOptions, state *domain.MarketState, ticker domain.Ticker, dayCandles []domain.Candle) bool {
	rsi := indicators.RSI(domain.Closes(dayCandles), 14, indicators.RSIOptions{})
	if domain.Tail(rsi) >= opts.TakeProfitRSIThreshold && ticker.Ask > state.EntryPrice*(1+opts.MinNextQuoteDifference) {
		return true
	}

	atr := indicators.ATR(dayCandles, opts.ATRPeriodDaily)
	if ticker.Ask >= state.EntryPrice+opts.TakeProfitATRMultiplier*domain.Tail(atr) {
		return true
	}
	return false
}

func returnBasedExitPossible(opts ExitOptions, state *domain.MarketState, ticker domain.Ticker, dayCandles, hourCandles []domain.Candle, now time.Time) bool {
	afterMs, err := domain.PeriodToMs(opts.ReturnBasedExitAfter)
	if err != nil {
		afterMs = domain.MustPeriodToMs("24h")
	}
	if now.Before(state.EntryTimestamp.Add(time.Duration(afterMs) * time.Millisecond)) {
		return false
	}

	returns := indicators.LogReturns(domain.Closes(dayCandles))
	maReturns := indicators.MA(returns, opts.MAPeriodReturns)
	if domain.Tail(maReturns) > opts.ReturnThreshold {
		return false
	}

	emaSlow := indicators.EMA(domain.Closes(hourCandles), opts.EMAPeriodSlow)
	return ticker.Average() > domain.Tail(emaSlow)
}

// computeStopPrice backs the optional trailing-stop exit condition
// (§4.8 note, §9 open question 1): exitPossible only consults it once
// ExitOptions.TrailingStopEnabled is set, which defaults false.
func computeStopPrice(entryPrice, atr, volatilityMultiplier float64) float64 {
	return entryPrice - atr*volatilityMultiplier
}

// TrailingStopExitPossible is the opt-in exit condition built on
// computeStopPrice: true once ask has fallen below the trailing stop.
func TrailingStopExitPossible(opts ExitOptions, state *domain.MarketState, ticker domain.Ticker, dayCandles []domain.Candle) bool {
	if !opts.TrailingStopEnabled {
		return false
	}
	atr := indicators.ATR(dayCandles, opts.ATRPeriodDaily)
	stop := computeStopPrice(state.EntryPrice, domain.Tail(atr), opts.VolatilityMultiplier)
	return ticker.Ask < stop
}
