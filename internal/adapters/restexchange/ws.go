package restexchange

// ws.go implements an optional streaming ticker feed, grounded on the same
// reconnect-with-backoff shape the pack's exchange adapters use for their
// market-data sockets. The REST client above is sufficient for every
// ExchangeClient operation on its own; this feed is a separate component
// whose background goroutine keeps an in-memory ticker cache warm, read
// through TickerFeed.Ticker. Client does not consult it: FetchTickers and
// FetchOrderBook always go to the REST endpoints, and order books are not
// streamed.

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/riverbend/marketmaker/internal/domain"
)

const (
	wsReadTimeout      = 90 * time.Second
	wsMaxReconnectWait = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// wsTickerEvent is the wire shape of a streamed ticker update.
type wsTickerEvent struct {
	Market      string  `json:"market"`
	Timestamp   int64   `json:"timestamp"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Last        float64 `json:"last"`
	BaseVolume  float64 `json:"base_volume"`
	QuoteVolume float64 `json:"quote_volume"`
}

type wsSubscribeMessage struct {
	Op      string   `json:"op"`
	Markets []string `json:"markets"`
}

// TickerFeed maintains a WebSocket connection to the venue's public market
// channel and keeps a local ticker cache fresh, auto-reconnecting with
// exponential backoff on drop.
type TickerFeed struct {
	url    string
	logger *slog.Logger

	mu         sync.RWMutex
	conn       *websocket.Conn
	subscribed map[string]bool
	cache      map[string]domain.Ticker
}

// NewTickerFeed builds a feed for wsURL. Call Run in a goroutine to start
// streaming; Subscribe before or after Run is safe.
func NewTickerFeed(wsURL string) *TickerFeed {
	return &TickerFeed{
		url:        wsURL,
		logger:     slog.Default().With("component", "restexchange.ws"),
		subscribed: make(map[string]bool),
		cache:      make(map[string]domain.Ticker),
	}
}

// Subscribe adds markets to the feed, re-sending the subscription
// immediately if connected; reconnection replays every tracked market.
func (f *TickerFeed) Subscribe(markets ...string) {
	f.mu.Lock()
	conn := f.conn
	var fresh []string
	for _, m := range markets {
		if !f.subscribed[m] {
			f.subscribed[m] = true
			fresh = append(fresh, m)
		}
	}
	f.mu.Unlock()

	if conn != nil && len(fresh) > 0 {
		f.send(conn, wsSubscribeMessage{Op: "subscribe", Markets: fresh})
	}
}

// Ticker returns the most recently streamed ticker for market, and
// whether one has arrived yet.
func (f *TickerFeed) Ticker(market string) (domain.Ticker, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.cache[market]
	return t, ok
}

// Run connects and streams until ctx is cancelled, reconnecting with
// exponential backoff (1s-30s) on any read/dial failure.
func (f *TickerFeed) Run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.runOnce(ctx); err != nil {
			f.logger.Warn("restexchange: ws feed disconnected", "err", err, "retry_in", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > wsMaxReconnectWait {
			backoff = wsMaxReconnectWait
		}
	}
}

func (f *TickerFeed) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.mu.Lock()
	f.conn = conn
	markets := make([]string, 0, len(f.subscribed))
	for m := range f.subscribed {
		markets = append(markets, m)
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
	}()

	if len(markets) > 0 {
		f.send(conn, wsSubscribeMessage{Op: "subscribe", Markets: markets})
	}

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var evt wsTickerEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}
		f.mu.Lock()
		f.cache[evt.Market] = domain.Ticker{
			Timestamp:   evt.Timestamp,
			Bid:         evt.Bid,
			Ask:         evt.Ask,
			Last:        evt.Last,
			BaseVolume:  evt.BaseVolume,
			QuoteVolume: evt.QuoteVolume,
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (f *TickerFeed) send(conn *websocket.Conn, msg wsSubscribeMessage) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		f.logger.Warn("restexchange: ws subscribe failed", "err", err)
	}
}
