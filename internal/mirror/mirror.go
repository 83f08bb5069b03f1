// Package mirror implements the exchange state mirror (§4.6): the local
// order/balance mirror, its simulation-mode fill logic, reservation
// accounting, sticky-order repricing, auto-cancel rules, and reconciliation
// against a remote exchange that is the source of truth. This is the
// engine's central contract — everything else reads and writes through it.
package mirror

import (
	"math/rand"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/ports"
)

// Config holds the runtime knobs that aren't part of the persisted
// Exchange entity (§4.6 "Configuration").
type Config struct {
	RateLimit       time.Duration
	PurgeAfter      time.Duration // default 7 days
	SlippagePercent float64       // default 0.01 (market-order slippage)
}

// DefaultConfig returns the spec's default knobs.
func DefaultConfig() Config {
	return Config{
		PurgeAfter:      7 * 24 * time.Hour,
		SlippagePercent: 0.01,
	}
}

// Mirror wraps a domain.Exchange with the exchange client used to
// reconcile it and the operations that mutate it. A Mirror is owned
// exclusively by the current agent run (§5 "Shared-resource policy"); it
// is not safe to share one live Mirror across concurrent runs.
type Mirror struct {
	Exchange *domain.Exchange
	Client   ports.ExchangeClient
	Config   Config

	rng *rand.Rand
	now func() time.Time
}

// New builds a Mirror over an already-loaded Exchange entity.
func New(e *domain.Exchange, client ports.ExchangeClient, cfg Config) *Mirror {
	if cfg.PurgeAfter == 0 {
		cfg.PurgeAfter = 7 * 24 * time.Hour
	}
	if cfg.SlippagePercent == 0 {
		cfg.SlippagePercent = 0.01
	}
	return &Mirror{
		Exchange: e,
		Client:   client,
		Config:   cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// WithClock overrides the mirror's time source, for deterministic tests.
func (m *Mirror) WithClock(now func() time.Time) *Mirror {
	m.now = now
	return m
}

// WithRand overrides the mirror's random source, for deterministic tests
// (order id generation).
func (m *Mirror) WithRand(r *rand.Rand) *Mirror {
	m.rng = r
	return m
}

func (m *Mirror) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// Clock exposes the mirror's time source to callers outside the package
// (e.g. the strategy layer backfilling an unknown entry timestamp).
func (m *Mirror) Clock() time.Time {
	return m.clock()
}

// emit appends a structured event to the exchange's event log (§7
// "User-visible failures").
func (m *Mirror) emit(eventType string, data map[string]any) {
	m.Exchange.Events = append(m.Exchange.Events, domain.Event{
		ExchangeID: m.Exchange.ID,
		Type:       eventType,
		Data:       data,
		Timestamp:  m.clock(),
	})
}
