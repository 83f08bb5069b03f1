package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// Append persists a single event (§6 "event is append-only").
func (s *SQLiteStorage) Append(ctx context.Context, e domain.Event) error {
	data, err := marshal(e.Data)
	if err != nil {
		return fmt.Errorf("storage.Append: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (exchange_id, type, data, timestamp) VALUES (?, ?, ?, ?)
	`, e.ExchangeID, e.Type, data, e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("storage.Append: exec: %w", err)
	}
	return nil
}

// ListForExchange returns an exchange's most recent events, newest first,
// up to limit (0 means unlimited).
func (s *SQLiteStorage) ListForExchange(ctx context.Context, exchangeID string, limit int) ([]domain.Event, error) {
	query := `SELECT id, exchange_id, type, data, timestamp FROM events WHERE exchange_id = ? ORDER BY timestamp DESC`
	args := []any{exchangeID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListForExchange: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			id, exID, typ, dataStr string
			ts                     time.Time
		)
		if err := rows.Scan(&id, &exID, &typ, &dataStr, &ts); err != nil {
			return nil, fmt.Errorf("storage.ListForExchange: scan: %w", err)
		}
		var data map[string]any
		if dataStr != "" {
			if err := unmarshal(dataStr, &data); err != nil {
				return nil, fmt.Errorf("storage.ListForExchange: %w", err)
			}
		}
		out = append(out, domain.Event{ID: id, ExchangeID: exID, Type: typ, Data: data, Timestamp: ts})
	}
	return out, rows.Err()
}
