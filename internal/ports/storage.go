package ports

import (
	"context"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// ExchangeStore persists Exchange entities (§6 "Persistence layout").
type ExchangeStore interface {
	GetExchange(ctx context.Context, id string) (*domain.Exchange, error)
	SaveExchange(ctx context.Context, e *domain.Exchange) error
	ListExchanges(ctx context.Context) ([]*domain.Exchange, error)
}

// AgentStore persists TradingAgent entities.
type AgentStore interface {
	GetAgent(ctx context.Context, id string) (*domain.TradingAgent, error)
	SaveAgent(ctx context.Context, a *domain.TradingAgent) error
	ListAgents(ctx context.Context) ([]*domain.TradingAgent, error)
}

// JobStore persists Job documents and implements the at-most-once claim
// (§4.11): Claim atomically sets lockedAt only when the job was previously
// unlocked or its lock is older than domain.LockLifetime.
type JobStore interface {
	Upsert(ctx context.Context, j *domain.Job) error
	Get(ctx context.Context, name string) (*domain.Job, error)
	Due(ctx context.Context, now time.Time) ([]*domain.Job, error)
	// Claim returns true if it locked the job, false if another worker
	// already holds a live lock.
	Claim(ctx context.Context, name string, now time.Time) (bool, error)
	Finish(ctx context.Context, name string, finishedAt time.Time, runErr error) error
}

// EventStore appends and queries Event records.
type EventStore interface {
	Append(ctx context.Context, e domain.Event) error
	ListForExchange(ctx context.Context, exchangeID string, limit int) ([]domain.Event, error)
}

// CandleStore persists OHLCV candles keyed by (exchange, market,
// timeframe, timestamp), used as a local cache in front of the exchange
// client's FetchOHLCV.
type CandleStore interface {
	Save(ctx context.Context, exchangeName, market, timeframe string, candles []domain.Candle) error
	Load(ctx context.Context, exchangeName, market, timeframe string, since time.Time, limit int) ([]domain.Candle, error)
}

// Tracker is a small persisted key/value document for miscellaneous
// durable state that doesn't warrant its own entity kind (§6 lists it
// alongside exchange/tradingagent/candle/event/job as a sixth document
// type): e.g. a cached market universe or a circuit-breaker flag.
type Tracker struct {
	Key       string
	Value     map[string]any
	UpdatedAt time.Time
}

// TrackerStore persists Tracker documents.
type TrackerStore interface {
	GetTracker(ctx context.Context, key string) (*Tracker, error)
	SaveTracker(ctx context.Context, t *Tracker) error
}

// Storage bundles every store the engine needs. Concrete adapters (e.g.
// internal/adapters/storage) implement all of it against one backing
// database.
type Storage interface {
	ExchangeStore
	AgentStore
	JobStore
	EventStore
	CandleStore
	TrackerStore
}
