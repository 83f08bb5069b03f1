// Package storage implements ports.Storage over SQLite (pure Go driver,
// no CGo), grounded on the teacher's internal/adapters/storage: one schema
// string applied at open, one store method per entity operation, JSON-blob
// columns for the nested structures domain entities carry (§6
// "Persistence layout").
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    data       TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trading_agents (
    id          TEXT PRIMARY KEY,
    exchange_id TEXT NOT NULL,
    data        TEXT NOT NULL,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
    name             TEXT PRIMARY KEY,
    data             TEXT NOT NULL,
    next_run_at      DATETIME NOT NULL,
    repeat_interval  INTEGER NOT NULL DEFAULT 0,
    locked_at        DATETIME,
    last_run_at      DATETIME,
    last_finished_at DATETIME,
    last_error       TEXT NOT NULL DEFAULT '',
    priority         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    exchange_id TEXT NOT NULL,
    type        TEXT NOT NULL,
    data        TEXT NOT NULL,
    timestamp   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS candles (
    exchange_name TEXT NOT NULL,
    market        TEXT NOT NULL,
    timeframe     TEXT NOT NULL,
    timestamp     INTEGER NOT NULL,
    open          REAL NOT NULL,
    high          REAL NOT NULL,
    low           REAL NOT NULL,
    close         REAL NOT NULL,
    volume        REAL NOT NULL,
    PRIMARY KEY (exchange_name, market, timeframe, timestamp)
);

CREATE TABLE IF NOT EXISTS trackers (
    key        TEXT PRIMARY KEY,
    data       TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_next_run   ON jobs(next_run_at);
CREATE INDEX IF NOT EXISTS idx_events_exchange ON events(exchange_id, timestamp DESC);
`

// SQLiteStorage implements ports.Storage against a single SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

var _ ports.Storage = (*SQLiteStorage)(nil)

// Open opens (or creates) the database at path and applies the schema.
// path may be ":memory:" for tests.
func Open(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("storage: marshal: %w", err)
	}
	return string(b), nil
}

func unmarshal(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("storage: unmarshal: %w", err)
	}
	return nil
}

// --- Exchange -------------------------------------------------------------

// GetExchange loads an Exchange by id.
func (s *SQLiteStorage) GetExchange(ctx context.Context, id string) (*domain.Exchange, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM exchanges WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage.GetExchange: %s: %w", id, domain.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.GetExchange: query: %w", err)
	}

	var e domain.Exchange
	if err := unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("storage.GetExchange: %w", err)
	}
	return &e, nil
}

// SaveExchange upserts an Exchange, keyed by its id.
func (s *SQLiteStorage) SaveExchange(ctx context.Context, e *domain.Exchange) error {
	data, err := marshal(e)
	if err != nil {
		return fmt.Errorf("storage.SaveExchange: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exchanges (id, name, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data, updated_at = excluded.updated_at
	`, e.ID, e.Name, data, now, now)
	if err != nil {
		return fmt.Errorf("storage.SaveExchange: exec: %w", err)
	}
	return nil
}

// ListExchanges returns every persisted Exchange.
func (s *SQLiteStorage) ListExchanges(ctx context.Context) ([]*domain.Exchange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM exchanges`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListExchanges: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Exchange
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage.ListExchanges: scan: %w", err)
		}
		var e domain.Exchange
		if err := unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("storage.ListExchanges: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// --- TradingAgent -----------------------------------------------------------

// GetAgent loads a TradingAgent by id.
func (s *SQLiteStorage) GetAgent(ctx context.Context, id string) (*domain.TradingAgent, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM trading_agents WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage.GetAgent: %s: %w", id, domain.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.GetAgent: query: %w", err)
	}

	var a domain.TradingAgent
	if err := unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("storage.GetAgent: %w", err)
	}
	return &a, nil
}

// SaveAgent upserts a TradingAgent, keyed by its id.
func (s *SQLiteStorage) SaveAgent(ctx context.Context, a *domain.TradingAgent) error {
	data, err := marshal(a)
	if err != nil {
		return fmt.Errorf("storage.SaveAgent: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trading_agents (id, exchange_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET exchange_id = excluded.exchange_id, data = excluded.data, updated_at = excluded.updated_at
	`, a.ID, a.ExchangeID, data, now, now)
	if err != nil {
		return fmt.Errorf("storage.SaveAgent: exec: %w", err)
	}
	return nil
}

// ListAgents returns every persisted TradingAgent.
func (s *SQLiteStorage) ListAgents(ctx context.Context) ([]*domain.TradingAgent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM trading_agents`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListAgents: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.TradingAgent
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage.ListAgents: scan: %w", err)
		}
		var a domain.TradingAgent
		if err := unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("storage.ListAgents: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
