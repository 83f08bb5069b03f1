package domain

import "time"

// Job is a persisted, named unit of recurring work (§4.11). The
// orchestrator claims it by setting LockedAt, runs its processor, then
// clears LockedAt and advances NextRunAt by RepeatInterval.
type Job struct {
	Name            string
	Data            map[string]any
	NextRunAt       time.Time
	RepeatInterval  time.Duration
	LockedAt        *time.Time
	LastRunAt       *time.Time
	LastFinishedAt  *time.Time
	LastError       string
	Priority        int
}

// LockLifetime is how long a lock is honored before it's considered stale
// and reclaimable (§4.11 default: 10h, e.g. a worker crashed mid-run).
const LockLifetime = 10 * time.Hour

// Claimable reports whether the job can be claimed at `now`: never locked,
// or locked longer ago than LockLifetime.
func (j Job) Claimable(now time.Time) bool {
	if j.LockedAt == nil {
		return true
	}
	return now.Sub(*j.LockedAt) > LockLifetime
}

// Due reports whether the job's next run time has arrived.
func (j Job) Due(now time.Time) bool {
	return !j.NextRunAt.After(now)
}
