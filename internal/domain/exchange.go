package domain

import "time"

// Exchange is the persisted entity for one trading account: identity,
// credentials, fee structure, and the live state mirrored from the remote
// venue (§3 "Exchange (persisted)"). The mirror package (internal/mirror)
// owns all mutation of the live-state fields; domain.Exchange itself is
// data plus read-only accessors.
type Exchange struct {
	ID       string
	Name     string
	Creds    string // opaque; interpretation belongs to the adapter
	Fiat     string // quote currency for portfolio accounting
	Fee      float64
	Simulation bool

	Lockdown         bool
	ForceAutoCancel  bool

	// Reserves: per-currency amounts that must never be spent (§4.6
	// reserve/release).
	Reserves map[string]float64

	// MinDealAmounts: per-market minimum order size the venue will accept.
	MinDealAmounts map[string]float64

	MaxSyncAge time.Duration
	LogLevel   string

	// Live state.
	OpenOrders      map[string]Order
	ClosedOrders    map[string]Order
	CancelledOrders map[string]Order

	Balances   map[string]Balance
	Tickers    map[string]Ticker
	OrderBooks map[string]OrderBook
	Trades     map[string][]Trade

	LastSync map[string]time.Time // per-market last successful sync

	Events []Event
}

// NewExchange builds an Exchange with all live-state maps initialized, so
// callers never have to nil-check before a first write.
func NewExchange(id, name, fiat string) *Exchange {
	return &Exchange{
		ID:              id,
		Name:            name,
		Fiat:            fiat,
		Reserves:        make(map[string]float64),
		MinDealAmounts:  make(map[string]float64),
		OpenOrders:      make(map[string]Order),
		ClosedOrders:    make(map[string]Order),
		CancelledOrders: make(map[string]Order),
		Balances:        make(map[string]Balance),
		Tickers:         make(map[string]Ticker),
		OrderBooks:      make(map[string]OrderBook),
		Trades:          make(map[string][]Trade),
		LastSync:        make(map[string]time.Time),
	}
}

// ReserveOf returns the configured reserve for a currency, 0 if unset.
func (e *Exchange) ReserveOf(currency string) float64 {
	return e.Reserves[currency]
}

// MinDealAmountOf returns the configured minimum deal amount for a market,
// 0 if unset.
func (e *Exchange) MinDealAmountOf(market string) float64 {
	return e.MinDealAmounts[market]
}

// Balance returns the currency's balance, the zero value if not yet seen.
func (e *Exchange) Balance(currency string) Balance {
	return e.Balances[currency]
}

// OpenOrdersForMarket returns every open order on a given market.
func (e *Exchange) OpenOrdersForMarket(market string) []Order {
	var out []Order
	for _, o := range e.OpenOrders {
		if o.Market == market {
			out = append(out, o)
		}
	}
	return out
}

// OpenOrdersForMarketSide returns open orders on a market filtered by side.
func (e *Exchange) OpenOrdersForMarketSide(market string, side Side) []Order {
	var out []Order
	for _, o := range e.OpenOrders {
		if o.Market == market && o.Side == side {
			out = append(out, o)
		}
	}
	return out
}

// LastClosedOrder returns the most recently closed order on market/side, and
// whether one exists.
func (e *Exchange) LastClosedOrder(market string, side Side) (Order, bool) {
	var best Order
	found := false
	for _, o := range e.ClosedOrders {
		if o.Market != market || o.Side != side {
			continue
		}
		if o.ClosedAt == nil {
			continue
		}
		if !found || o.ClosedAt.After(*best.ClosedAt) {
			best = o
			found = true
		}
	}
	return best, found
}

// OrderBook is the local mirror of a market's bid/ask depth.
type OrderBook struct {
	Bids []BookLevel // sorted best (highest) first
	Asks []BookLevel // sorted best (lowest) first
}

// BookLevel is one price/amount level in an order book.
type BookLevel struct {
	Price  float64
	Amount float64
}

// BestBid returns the top bid level, or the zero value if the book is empty.
func (ob OrderBook) BestBid() (BookLevel, bool) {
	if len(ob.Bids) == 0 {
		return BookLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the top ask level, or the zero value if the book is empty.
func (ob OrderBook) BestAsk() (BookLevel, bool) {
	if len(ob.Asks) == 0 {
		return BookLevel{}, false
	}
	return ob.Asks[0], true
}

// SecondBestBid returns the bid level below the top, if one exists.
func (ob OrderBook) SecondBestBid() (BookLevel, bool) {
	if len(ob.Bids) < 2 {
		return BookLevel{}, false
	}
	return ob.Bids[1], true
}

// SecondBestAsk returns the ask level above the top, if one exists.
func (ob OrderBook) SecondBestAsk() (BookLevel, bool) {
	if len(ob.Asks) < 2 {
		return BookLevel{}, false
	}
	return ob.Asks[1], true
}

// Trade is a single recent public trade on a market.
type Trade struct {
	Timestamp int64
	Price     float64
	Amount    float64
	Side      Side
}
