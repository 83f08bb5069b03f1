package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbend/marketmaker/internal/adapters/storage"
	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/ports"
)

func openTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExchangeRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	e := domain.NewExchange("ex1", "Kraken", "USDT")
	e.Fee = 0.001
	e.Balances["BTC"] = domain.Balance{Free: 1.5, Used: 0.2}
	require.NoError(t, db.SaveExchange(ctx, e))

	got, err := db.GetExchange(ctx, "ex1")
	require.NoError(t, err)
	assert.Equal(t, "Kraken", got.Name)
	assert.Equal(t, 0.001, got.Fee)
	assert.Equal(t, 1.5, got.Balances["BTC"].Free)

	all, err := db.ListExchanges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetExchange_NotFound(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.GetExchange(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestAgentRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	a := domain.NewTradingAgent("agent1", "ex1", "default")
	a.MaxDrawdown = 0.3
	require.NoError(t, db.SaveAgent(ctx, a))

	got, err := db.GetAgent(ctx, "agent1")
	require.NoError(t, err)
	assert.Equal(t, "ex1", got.ExchangeID)
	assert.Equal(t, 0.3, got.MaxDrawdown)
}

func TestJobClaimIsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	now := time.Now().UTC()
	job := &domain.Job{
		Name:           "run_agent1",
		Data:           map[string]any{"agent_id": "agent1"},
		NextRunAt:      now,
		RepeatInterval: time.Minute,
	}
	require.NoError(t, db.Upsert(ctx, job))

	claimed, err := db.Claim(ctx, "run_agent1", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimedAgain, err := db.Claim(ctx, "run_agent1", now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, claimedAgain, "a freshly-locked job must not be claimable again")

	require.NoError(t, db.Finish(ctx, "run_agent1", now.Add(2*time.Second), nil))

	reclaimed, err := db.Claim(ctx, "run_agent1", now.Add(3*time.Second))
	require.NoError(t, err)
	assert.True(t, reclaimed, "Finish must clear the lock so the next tick can claim it")
}

func TestJobClaimReclaimsStaleLock(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	now := time.Now().UTC()
	job := &domain.Job{Name: "stuck", NextRunAt: now, RepeatInterval: time.Minute}
	require.NoError(t, db.Upsert(ctx, job))

	claimed, err := db.Claim(ctx, "stuck", now)
	require.NoError(t, err)
	require.True(t, claimed)

	// Simulate a crashed worker: the lock never clears. After LockLifetime,
	// a new claimant must be able to reclaim it.
	past := now.Add(domain.LockLifetime + time.Minute)
	reclaimed, err := db.Claim(ctx, "stuck", past)
	require.NoError(t, err)
	assert.True(t, reclaimed)
}

func TestEventAppendAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := db.Append(ctx, domain.Event{
		ExchangeID: "ex1",
		Type:       domain.EventMaxDrawdownReached,
		Data:       map[string]any{"peak": 1000.0, "currentTotal": 700.0},
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)

	events, err := db.ListForExchange(ctx, "ex1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventMaxDrawdownReached, events[0].Type)
}

func TestCandleSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	candles := []domain.Candle{
		{Timestamp: 1000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Timestamp: 2000, Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20},
	}
	require.NoError(t, db.Save(ctx, "ex1", "BTC/USDT", "1h", candles))

	// Upsert: re-saving the same timestamp overwrites rather than duplicates.
	require.NoError(t, db.Save(ctx, "ex1", "BTC/USDT", "1h", candles[:1]))

	loaded, err := db.Load(ctx, "ex1", "BTC/USDT", "1h", time.UnixMilli(0), 0)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, 1.5, loaded[0].Close)
}

func TestTrackerRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	missing, err := db.GetTracker(ctx, "universe")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.SaveTracker(ctx, &ports.Tracker{
		Key:   "universe",
		Value: map[string]any{"markets": []any{"BTC/USDT", "ETH/USDT"}},
	}))

	got, err := db.GetTracker(ctx, "universe")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Contains(t, got.Value, "markets")
}

func TestFinish_RecordsErrorOnFailure(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	now := time.Now().UTC()
	require.NoError(t, db.Upsert(ctx, &domain.Job{Name: "j", NextRunAt: now, RepeatInterval: time.Minute}))
	require.NoError(t, db.Finish(ctx, "j", now, errors.New("boom")))

	got, err := db.Get(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, "boom", got.LastError)
}
