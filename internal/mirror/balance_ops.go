package mirror

import "github.com/riverbend/marketmaker/internal/domain"

// These five primitives are the only things allowed to mutate a balance's
// free/used/locked fields (§4.6 "Balance accounting primitives"). Every
// other balance mutation in this package goes through them, which is what
// keeps free+used (total) conserved across create/cancel/fill sequences
// (spec §8 invariant 1).

func (m *Mirror) deposit(currency string, delta float64) {
	b := m.Exchange.Balances[currency]
	b.Free += delta
	m.Exchange.Balances[currency] = b
}

func (m *Mirror) withdraw(currency string, delta float64) {
	b := m.Exchange.Balances[currency]
	b.Free -= delta
	m.Exchange.Balances[currency] = b
}

func (m *Mirror) withdrawFromUsed(currency string, delta float64) {
	b := m.Exchange.Balances[currency]
	b.Used -= delta
	m.Exchange.Balances[currency] = b
}

// reserve moves delta from free to used, clamped so it never dips free
// below the configured reserve for that currency.
func (m *Mirror) reserve(currency string, delta float64) float64 {
	b := m.Exchange.Balances[currency]
	available := b.Free - m.Exchange.ReserveOf(currency)
	if available < 0 {
		available = 0
	}
	if delta > available {
		delta = available
	}
	if delta < 0 {
		delta = 0
	}
	b.Free -= delta
	b.Used += delta
	m.Exchange.Balances[currency] = b
	return delta
}

// release moves delta from used back to free, clamped to what's used.
func (m *Mirror) release(currency string, delta float64) float64 {
	b := m.Exchange.Balances[currency]
	if delta > b.Used {
		delta = b.Used
	}
	if delta < 0 {
		delta = 0
	}
	b.Free += delta
	b.Used -= delta
	m.Exchange.Balances[currency] = b
	return delta
}

// balance is a small accessor used across the package; kept here next to
// the primitives it composes.
func (m *Mirror) balance(currency string) domain.Balance {
	return m.Exchange.Balances[currency]
}
