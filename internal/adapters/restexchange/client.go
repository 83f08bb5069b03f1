// Package restexchange is the reference implementation of
// internal/ports.ExchangeClient (§4.5): a REST adapter to a generic spot
// exchange, rate-limited, retried on 5xx, and rounding prices/amounts to
// market precision before submission (§6 "wire protocol").
//
// It is deliberately generic — §1 abstracts the concrete exchange SDK
// behind the ExchangeClient port, so this package targets a conventional
// REST shape (GET /markets, /balance, /tickers, /orderbook, /trades, /ohlcv, /orders,
// POST /orders, DELETE /orders/{id}) rather than any one named venue.
// Swapping venues means swapping this package, not the engine.
package restexchange

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/ports"
)

// Config holds everything the adapter needs to reach the remote venue.
type Config struct {
	BaseURL   string
	WSURL     string
	APIKey    string
	APISecret string
	RateLimit time.Duration // minimum gap between requests; 0 disables throttling
	Timeout   time.Duration
}

// marketMeta is the symbol metadata LoadMarkets refreshes: the precision
// (decimal places) prices and amounts must be rounded to before submission.
type marketMeta struct {
	pricePrecision  int32
	amountPrecision int32
	minDealAmount   float64
}

// Client implements ports.ExchangeClient over HTTP.
type Client struct {
	http *resty.Client
	cfg  Config
	lim  *rate.Limiter

	mu           sync.RWMutex
	markets      map[string]marketMeta
	lastLoadedAt time.Time
}

var _ ports.ExchangeClient = (*Client)(nil)

// New builds a Client. Call LoadMarkets before any order submission so
// CreateOrder has precision metadata to round against.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	h := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		h.SetHeader("X-API-Key", cfg.APIKey)
	}

	var lim *rate.Limiter
	if cfg.RateLimit > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.RateLimit), 1)
	}

	return &Client{
		http:    h,
		cfg:     cfg,
		lim:     lim,
		markets: make(map[string]marketMeta),
	}
}

// wait blocks until the rate limiter admits one more request, or ctx is
// done. A nil limiter (RateLimit == 0) never blocks.
func (c *Client) wait(ctx context.Context) error {
	if c.lim == nil {
		return nil
	}
	if err := c.lim.Wait(ctx); err != nil {
		return fmt.Errorf("restexchange: rate limiter: %w", domain.ErrRateLimited)
	}
	return nil
}

// classify turns a transport/HTTP failure into the port's error taxonomy
// (§4.5 "all fail with NetworkError, RateLimited, BadResponse, or
// MarketUnknown").
func classify(err error, resp *resty.Response) error {
	if err != nil {
		return fmt.Errorf("restexchange: %w: %v", domain.ErrNetwork, err)
	}
	switch resp.StatusCode() {
	case http.StatusTooManyRequests:
		return fmt.Errorf("restexchange: %w", domain.ErrRateLimited)
	case http.StatusNotFound:
		return fmt.Errorf("restexchange: %w", domain.ErrMarketUnknown)
	default:
		if resp.StatusCode() >= 400 {
			return fmt.Errorf("restexchange: status %d: %w: %s", resp.StatusCode(), domain.ErrBadResponse, resp.String())
		}
	}
	return nil
}

// --- wire payloads -------------------------------------------------------

type marketPayload struct {
	Symbol          string  `json:"symbol"`
	PricePrecision  int32   `json:"price_precision"`
	AmountPrecision int32   `json:"amount_precision"`
	MinDealAmount   float64 `json:"min_deal_amount"`
}

type balancePayload struct {
	Currency string  `json:"currency"`
	Free     float64 `json:"free"`
	Used     float64 `json:"used"`
}

type tickerPayload struct {
	Market      string  `json:"market"`
	Timestamp   int64   `json:"timestamp"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Last        float64 `json:"last"`
	BaseVolume  float64 `json:"base_volume"`
	QuoteVolume float64 `json:"quote_volume"`
}

type bookLevelPayload struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

type bookPayload struct {
	Market string             `json:"market"`
	Bids   []bookLevelPayload `json:"bids"`
	Asks   []bookLevelPayload `json:"asks"`
}

type tradePayload struct {
	Market    string  `json:"market"`
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	Side      string  `json:"side"`
}

type orderPayload struct {
	ID        string  `json:"id"`
	Market    string  `json:"market"`
	Type      string  `json:"type"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	Filled    float64 `json:"filled"`
	Remaining float64 `json:"remaining"`
	Fee       float64 `json:"fee"`
	Timestamp int64   `json:"timestamp"`
}

type candlePayload struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type createOrderRequest struct {
	ClientOrderID string  `json:"clientOrderId"`
	Market        string  `json:"market"`
	Type          string  `json:"type"`
	Side          string  `json:"side"`
	Amount        float64 `json:"amount"`
	Price         float64 `json:"price,omitempty"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}
