package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverbend/marketmaker/internal/ports"
)

// GetTracker loads a Tracker document by key.
func (s *SQLiteStorage) GetTracker(ctx context.Context, key string) (*ports.Tracker, error) {
	var data string
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT data, updated_at FROM trackers WHERE key = ?`, key).Scan(&data, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.GetTracker: query: %w", err)
	}

	var value map[string]any
	if err := unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("storage.GetTracker: %w", err)
	}
	return &ports.Tracker{Key: key, Value: value, UpdatedAt: updatedAt}, nil
}

// SaveTracker upserts a Tracker document, keyed by its key.
func (s *SQLiteStorage) SaveTracker(ctx context.Context, t *ports.Tracker) error {
	data, err := marshal(t.Value)
	if err != nil {
		return fmt.Errorf("storage.SaveTracker: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trackers (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, t.Key, data, now)
	if err != nil {
		return fmt.Errorf("storage.SaveTracker: exec: %w", err)
	}
	return nil
}
