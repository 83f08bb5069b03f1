package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/riverbend/marketmaker/internal/domain"
)

// Save upserts candles keyed by (exchangeName, market, timeframe,
// timestamp), the local OHLCV cache in front of the exchange client's
// FetchOHLCV (§6 "candle keyed by (exchangeName, market, timeframe,
// timestamp)").
func (s *SQLiteStorage) Save(ctx context.Context, exchangeName, market, timeframe string, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Save: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (exchange_name, market, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exchange_name, market, timeframe, timestamp) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("storage.Save: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, exchangeName, market, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("storage.Save: exec: %w", err)
		}
	}
	return tx.Commit()
}

// Load returns candles for (exchangeName, market, timeframe) at or after
// since, oldest first, capped at limit (0 means unlimited).
func (s *SQLiteStorage) Load(ctx context.Context, exchangeName, market, timeframe string, since time.Time, limit int) ([]domain.Candle, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume FROM candles
		WHERE exchange_name = ? AND market = ? AND timeframe = ? AND timestamp >= ?
		ORDER BY timestamp ASC`
	args := []any{exchangeName, market, timeframe, since.UnixMilli()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.Load: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("storage.Load: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
