package mirror

// SetLockdown flips the circuit breaker (§4.6 "Lockdown"). While engaged,
// every mutating entry point (CreateOrder, CancelOrder, CancelAllOrders)
// fails fast with domain.ErrLockdown; Update returns immediately.
func (m *Mirror) SetLockdown(on bool) {
	m.Exchange.Lockdown = on
}
