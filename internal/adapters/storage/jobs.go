package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// Upsert inserts or replaces a Job document, keyed by name.
func (s *SQLiteStorage) Upsert(ctx context.Context, j *domain.Job) error {
	data, err := marshal(j.Data)
	if err != nil {
		return fmt.Errorf("storage.Upsert: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (name, data, next_run_at, repeat_interval, locked_at, last_run_at, last_finished_at, last_error, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data             = excluded.data,
			next_run_at      = excluded.next_run_at,
			repeat_interval  = excluded.repeat_interval,
			locked_at        = excluded.locked_at,
			last_run_at      = excluded.last_run_at,
			last_finished_at = excluded.last_finished_at,
			last_error       = excluded.last_error,
			priority         = excluded.priority
	`, j.Name, data, j.NextRunAt.UTC(), j.RepeatInterval.Milliseconds(),
		nullTime(j.LockedAt), nullTime(j.LastRunAt), nullTime(j.LastFinishedAt), j.LastError, j.Priority)
	if err != nil {
		return fmt.Errorf("storage.Upsert: exec: %w", err)
	}
	return nil
}

// Get loads a Job by name.
func (s *SQLiteStorage) Get(ctx context.Context, name string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, data, next_run_at, repeat_interval, locked_at, last_run_at, last_finished_at, last_error, priority
		FROM jobs WHERE name = ?`, name)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage.Get: %s: %w", name, domain.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Get: %w", err)
	}
	return j, nil
}

// Due returns every job whose next_run_at has arrived, ordered by
// priority (descending) so higher-priority work is claimed first.
func (s *SQLiteStorage) Due(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, data, next_run_at, repeat_interval, locked_at, last_run_at, last_finished_at, last_error, priority
		FROM jobs WHERE next_run_at <= ? ORDER BY priority DESC`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.Due: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.Due: %w", err)
		}
		if !j.Claimable(now) {
			continue
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Claim atomically locks job `name` if it is unlocked or its lock is
// stale (§4.11's at-most-one-per-name guarantee): the UPDATE's WHERE
// clause only matches a claimable row, so a concurrent claimant's UPDATE
// affects zero rows.
func (s *SQLiteStorage) Claim(ctx context.Context, name string, now time.Time) (bool, error) {
	cutoff := now.Add(-domain.LockLifetime).UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET locked_at = ?
		WHERE name = ? AND (locked_at IS NULL OR locked_at < ?)
	`, now.UTC(), name, cutoff)
	if err != nil {
		return false, fmt.Errorf("storage.Claim: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.Claim: rows affected: %w", err)
	}
	return n > 0, nil
}

// Finish records a run's completion: clears the lock, stamps
// last_finished_at/last_run_at, advances next_run_at by repeat_interval,
// and records runErr (cleared on success).
func (s *SQLiteStorage) Finish(ctx context.Context, name string, finishedAt time.Time, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET
			locked_at        = NULL,
			last_run_at      = ?,
			last_finished_at = ?,
			last_error       = ?,
			next_run_at      = datetime(next_run_at, '+' || (repeat_interval / 1000.0) || ' seconds')
		WHERE name = ?
	`, finishedAt.UTC(), finishedAt.UTC(), errMsg, name)
	if err != nil {
		return fmt.Errorf("storage.Finish: exec: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows' shared Scan method.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*domain.Job, error) {
	var (
		name, dataStr, lastError       string
		nextRunAt                      time.Time
		repeatIntervalMs               int64
		priority                       int
		lockedAt, lastRunAt, lastFinAt sql.NullTime
	)
	if err := sc.Scan(&name, &dataStr, &nextRunAt, &repeatIntervalMs, &lockedAt, &lastRunAt, &lastFinAt, &lastError, &priority); err != nil {
		return nil, err
	}

	var data map[string]any
	if dataStr != "" {
		if err := unmarshal(dataStr, &data); err != nil {
			return nil, err
		}
	}

	j := &domain.Job{
		Name:           name,
		Data:           data,
		NextRunAt:      nextRunAt,
		RepeatInterval: time.Duration(repeatIntervalMs) * time.Millisecond,
		LastError:      lastError,
		Priority:       priority,
	}
	if lockedAt.Valid {
		j.LockedAt = &lockedAt.Time
	}
	if lastRunAt.Valid {
		j.LastRunAt = &lastRunAt.Time
	}
	if lastFinAt.Valid {
		j.LastFinishedAt = &lastFinAt.Time
	}
	return j, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
