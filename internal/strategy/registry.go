package strategy

import (
	"context"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/mirror"
)

// Strategy is the contract a trading agent dispatches one tick through:
// given the current mirror and per-market inputs, run one cycle, updating
// the market state in place through the state pointer.
type Strategy interface {
	Name() string
	RunMarket(ctx context.Context, m *mirror.Mirror, market string, state *domain.MarketState, opts MarketOptions, inputs MarketInputs) error
}

// Registry keeps the available named strategies, populated once at
// startup (§5 "Shared-resource policy": reads are safe, writes only at
// startup).
type Registry map[string]Strategy

// NewRegistry creates an empty registry.
func NewRegistry() Registry {
	return make(Registry)
}

// Register adds a strategy, keyed by its own name.
func (r Registry) Register(s Strategy) {
	r[s.Name()] = s
}

// Get looks a strategy up by name.
func (r Registry) Get(name string) (Strategy, bool) {
	s, ok := r[name]
	return s, ok
}
