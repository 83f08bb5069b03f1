package restexchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riverbend/marketmaker/internal/domain"
)

// LoadMarkets refreshes symbol metadata (§4.5). Callers should call this
// at most every 24h; CreateOrder uses the cached precision to round.
func (c *Client) LoadMarkets(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var payload []marketPayload
	resp, err := c.http.R().SetContext(ctx).SetResult(&payload).Get("/markets")
	if cerr := classify(err, resp); cerr != nil {
		return fmt.Errorf("restexchange.LoadMarkets: %w", cerr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.markets = make(map[string]marketMeta, len(payload))
	for _, m := range payload {
		c.markets[m.Symbol] = marketMeta{
			pricePrecision:  m.PricePrecision,
			amountPrecision: m.AmountPrecision,
			minDealAmount:   m.MinDealAmount,
		}
	}
	c.lastLoadedAt = time.Now()
	return nil
}

// GetMarkets lists "BASE/QUOTE" symbols, optionally filtered to those
// quoted in fiat.
func (c *Client) GetMarkets(ctx context.Context, fiat string) ([]string, error) {
	c.mu.RLock()
	loaded := len(c.markets) > 0
	c.mu.RUnlock()
	if !loaded {
		if err := c.LoadMarkets(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.markets))
	for symbol := range c.markets {
		if fiat == "" {
			out = append(out, symbol)
			continue
		}
		_, quote := domain.SplitMarket(symbol)
		if quote == fiat {
			out = append(out, symbol)
		}
	}
	return out, nil
}

// GetMinDealAmount returns the market's minimum order size.
func (c *Client) GetMinDealAmount(ctx context.Context, market string) (float64, error) {
	c.mu.RLock()
	meta, ok := c.markets[market]
	c.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("restexchange.GetMinDealAmount: %s: %w", market, domain.ErrMarketUnknown)
	}
	return meta.minDealAmount, nil
}

// FetchBalance returns free/used balances per currency.
func (c *Client) FetchBalance(ctx context.Context) (map[string]domain.Balance, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var payload []balancePayload
	resp, err := c.http.R().SetContext(ctx).SetResult(&payload).Get("/balance")
	if cerr := classify(err, resp); cerr != nil {
		return nil, fmt.Errorf("restexchange.FetchBalance: %w", cerr)
	}

	out := make(map[string]domain.Balance, len(payload))
	for _, b := range payload {
		out[b.Currency] = domain.Balance{Free: b.Free, Used: b.Used}
	}
	return out, nil
}

// FetchTickers returns a Ticker per requested market, fetched with one
// batched GET /tickers request; there is no per-market fallback.
func (c *Client) FetchTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req := c.http.R().SetContext(ctx)
	if len(markets) > 0 {
		req.SetQueryParam("markets", strings.Join(markets, ","))
	}
	var payload []tickerPayload
	resp, err := req.SetResult(&payload).Get("/tickers")
	if cerr := classify(err, resp); cerr != nil {
		return nil, fmt.Errorf("restexchange.FetchTickers: %w", cerr)
	}

	out := make(map[string]domain.Ticker, len(payload))
	for _, t := range payload {
		out[t.Market] = domain.Ticker{
			Timestamp:   t.Timestamp,
			Bid:         t.Bid,
			Ask:         t.Ask,
			Last:        t.Last,
			BaseVolume:  t.BaseVolume,
			QuoteVolume: t.QuoteVolume,
		}
	}
	return out, nil
}

// FetchOrderBook returns an OrderBook per requested market to the given
// depth (0 uses the venue's default).
func (c *Client) FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]domain.OrderBook, error) {
	out := make(map[string]domain.OrderBook, len(markets))
	for _, market := range markets {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		req := c.http.R().SetContext(ctx).SetQueryParam("market", market)
		if depth > 0 {
			req.SetQueryParam("depth", strconv.Itoa(depth))
		}
		var payload bookPayload
		resp, err := req.SetResult(&payload).Get("/orderbook")
		if cerr := classify(err, resp); cerr != nil {
			return nil, fmt.Errorf("restexchange.FetchOrderBook: %s: %w", market, cerr)
		}

		out[market] = domain.OrderBook{
			Bids: toLevels(payload.Bids),
			Asks: toLevels(payload.Asks),
		}
	}
	return out, nil
}

func toLevels(ps []bookLevelPayload) []domain.BookLevel {
	out := make([]domain.BookLevel, len(ps))
	for i, p := range ps {
		out[i] = domain.BookLevel{Price: p.Price, Amount: p.Amount}
	}
	return out
}

// FetchTrades returns recent public trades per market.
func (c *Client) FetchTrades(ctx context.Context, markets []string, since time.Time, limit int) (map[string][]domain.Trade, error) {
	out := make(map[string][]domain.Trade, len(markets))
	for _, market := range markets {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		req := c.http.R().SetContext(ctx).SetQueryParam("market", market)
		if !since.IsZero() {
			req.SetQueryParam("since", strconv.FormatInt(since.UnixMilli(), 10))
		}
		if limit > 0 {
			req.SetQueryParam("limit", strconv.Itoa(limit))
		}
		var payload []tradePayload
		resp, err := req.SetResult(&payload).Get("/trades")
		if cerr := classify(err, resp); cerr != nil {
			return nil, fmt.Errorf("restexchange.FetchTrades: %s: %w", market, cerr)
		}

		trades := make([]domain.Trade, len(payload))
		for i, t := range payload {
			trades[i] = domain.Trade{
				Timestamp: t.Timestamp,
				Price:     t.Price,
				Amount:    t.Amount,
				Side:      domain.Side(t.Side),
			}
		}
		out[market] = trades
	}
	return out, nil
}

// FetchOpenOrders returns every open order, or only those on market if
// market is non-empty.
func (c *Client) FetchOpenOrders(ctx context.Context, market string) ([]domain.Order, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req := c.http.R().SetContext(ctx)
	if market != "" {
		req.SetQueryParam("market", market)
	}
	var payload []orderPayload
	resp, err := req.SetResult(&payload).Get("/orders")
	if cerr := classify(err, resp); cerr != nil {
		return nil, fmt.Errorf("restexchange.FetchOpenOrders: %w", cerr)
	}

	out := make([]domain.Order, len(payload))
	for i, o := range payload {
		out[i] = domain.Order{
			ID:        o.ID,
			CreatedAt: time.UnixMilli(o.Timestamp),
			Market:    o.Market,
			Type:      domain.OrderType(o.Type),
			Side:      domain.Side(o.Side),
			Price:     o.Price,
			Amount:    o.Amount,
			Fee:       o.Fee,
			Status:    domain.OrderStatusOpen,
			Filled:    o.Filled,
			Remaining: o.Remaining,
		}
	}
	return out, nil
}

// FetchOHLCV returns candles for market/timeframe. Fails soft: on
// rate-limit or unknown-market it returns (nil, nil) instead of an error,
// per §4.5's requirement that callers handle a nil result.
func (c *Client) FetchOHLCV(ctx context.Context, market, timeframe string, since time.Time, limit int) ([]domain.Candle, error) {
	if err := c.wait(ctx); err != nil {
		return nil, nil
	}

	req := c.http.R().SetContext(ctx).
		SetQueryParam("market", market).
		SetQueryParam("timeframe", timeframe)
	if !since.IsZero() {
		req.SetQueryParam("since", strconv.FormatInt(since.UnixMilli(), 10))
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	var payload []candlePayload
	resp, err := req.SetResult(&payload).Get("/ohlcv")
	if cerr := classify(err, resp); cerr != nil {
		return nil, nil
	}

	out := make([]domain.Candle, len(payload))
	for i, cd := range payload {
		out[i] = domain.Candle{
			Timestamp: cd.Timestamp,
			Open:      cd.Open,
			High:      cd.High,
			Low:       cd.Low,
			Close:     cd.Close,
			Volume:    cd.Volume,
		}
	}
	return out, nil
}

// CreateOrder submits an order, rounding amount/price to the market's
// native precision first (§6 "prices and amounts are rounded to the
// market's native precision BEFORE submission").
func (c *Client) CreateOrder(ctx context.Context, market string, typ domain.OrderType, side domain.Side, amount, price float64) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	c.mu.RLock()
	meta, known := c.markets[market]
	c.mu.RUnlock()

	roundedAmount := amount
	roundedPrice := price
	if known {
		roundedAmount = roundTo(amount, meta.amountPrecision)
		if price > 0 {
			roundedPrice = roundTo(price, meta.pricePrecision)
		}
	}

	body := createOrderRequest{
		ClientOrderID: uuid.NewString(),
		Market:        market,
		Type:          string(typ),
		Side:          string(side),
		Amount:        roundedAmount,
	}
	if typ == domain.OrderTypeLimit {
		body.Price = roundedPrice
	}

	var result createOrderResponse
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&result).Post("/orders")
	if cerr := classify(err, resp); cerr != nil {
		return "", fmt.Errorf("restexchange.CreateOrder: %w", cerr)
	}
	return result.ID, nil
}

// CancelOrder cancels a previously placed order.
func (c *Client) CancelOrder(ctx context.Context, order domain.Order) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("market", order.Market).
		SetQueryParam("side", string(order.Side)).
		Delete("/orders/" + order.ID)
	if cerr := classify(err, resp); cerr != nil {
		return fmt.Errorf("restexchange.CancelOrder: %s: %w", order.ID, cerr)
	}
	return nil
}

// roundTo rounds v to precision decimal places, half away from zero, using
// decimal arithmetic, avoiding the float64 rounding artifacts a plain
// math.Round would introduce at the venue's tick size.
func roundTo(v float64, precision int32) float64 {
	d := decimal.NewFromFloat(v).Round(precision)
	f, _ := d.Float64()
	return f
}
