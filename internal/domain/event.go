package domain

import "time"

// Event is an append-only record of something the engine did or decided,
// persisted on the exchange (§6 "Persistence layout", §7 "User-visible
// failures").
type Event struct {
	ID         string
	ExchangeID string
	Type       string
	Data       map[string]any
	Timestamp  time.Time
}

// Well-known event types emitted by the mirror and the agent.
const (
	EventLimitOrderCreated    = "limit_order_created"
	EventMarketOrderCreated   = "market_order_created"
	EventLimitOrderCancelled  = "limit_order_cancelled"
	EventMarketOrderCancelled = "market_order_cancelled"
	EventLimitOrderFulfilled  = "limit_order_fulfilled"
	EventMaxDrawdownReached   = "max_drawdown_reached"
)
