package domain

import "errors"

// Error taxonomy (§7). Callers use errors.Is against these sentinels;
// adapters wrap them with fmt.Errorf("...: %w", ErrX) to add context.
var (
	// ErrInput covers missing ids or bad arguments. Fatal for the current
	// job, no retry this tick.
	ErrInput = errors.New("input error")

	// ErrEntityNotFound means an exchange/agent/market wasn't found in
	// persistence. Fatal for the current job.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrNetwork, ErrRateLimited and ErrBadResponse originate from the
	// exchange port. They're recovered locally: syncX returns false,
	// fetchOHLCV returns nil; the caller aborts the tick for that market,
	// not the whole run.
	ErrNetwork     = errors.New("network error")
	ErrRateLimited = errors.New("rate limited")
	ErrBadResponse = errors.New("bad response")

	// ErrMarketUnknown means the adapter has no metadata for the market.
	ErrMarketUnknown = errors.New("market unknown")

	// ErrReconciliationMismatch means the post-reconcile open-order count
	// disagreed with the remote. Abort the tick for that market; state is
	// left unmodified so the next tick retries.
	ErrReconciliationMismatch = errors.New("reconciliation mismatch")

	// ErrInsufficientData means an indicator needed more candles than were
	// available. Bubbles up and aborts the market tick.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrLockdown is the circuit-breaker error: every mutating mirror
	// operation fails fast with this until lockdown is cleared.
	ErrLockdown = errors.New("exchange is in lockdown")

	// ErrReservationViolation means an order would spend below a
	// configured reserve. The strategy layer should clamp proactively;
	// if this is returned, the order was never sent.
	ErrReservationViolation = errors.New("reservation violation")
)
