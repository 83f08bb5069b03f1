package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverbend/marketmaker/internal/domain"
)

type fakeJobStore struct {
	mu     sync.Mutex
	jobs   map[string]*domain.Job
	finish []string
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.Job)}
}

func (s *fakeJobStore) Upsert(ctx context.Context, j *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.Name] = j
	return nil
}

func (s *fakeJobStore) Get(ctx context.Context, name string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}
	return j, nil
}

func (s *fakeJobStore) Due(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, j := range s.jobs {
		if j.Due(now) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeJobStore) Claim(ctx context.Context, name string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return false, domain.ErrEntityNotFound
	}
	if !j.Claimable(now) {
		return false, nil
	}
	locked := now
	j.LockedAt = &locked
	return true, nil
}

func (s *fakeJobStore) Finish(ctx context.Context, name string, finishedAt time.Time, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return domain.ErrEntityNotFound
	}
	j.LockedAt = nil
	j.LastFinishedAt = &finishedAt
	j.NextRunAt = finishedAt.Add(j.RepeatInterval)
	if runErr != nil {
		j.LastError = runErr.Error()
	} else {
		j.LastError = ""
	}
	s.finish = append(s.finish, name)
	return nil
}

func TestCreateRepeatingJobIsIdempotent(t *testing.T) {
	store := newFakeJobStore()
	data := map[string]any{"market": "BTC/USDT"}

	require.NoError(t, CreateRepeatingJob(context.Background(), store, "scan-btc", time.Minute, data))
	require.Len(t, store.jobs, 1)

	require.NoError(t, CreateRepeatingJob(context.Background(), store, "scan-btc", time.Minute, data))
	assert.Len(t, store.jobs, 1)
}

func TestOrchestratorClaimsAndRunsDueJobOnce(t *testing.T) {
	store := newFakeJobStore()
	store.jobs["tick"] = &domain.Job{Name: "tick", NextRunAt: time.Now().Add(-time.Second), RepeatInterval: time.Minute}

	var calls int
	var mu sync.Mutex
	o := New(store, "")
	o.RegisterProcessor("tick", func(ctx context.Context, data map[string]any) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	o.pollOnce(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Nil(t, store.jobs["tick"].LockedAt)
	assert.True(t, store.jobs["tick"].NextRunAt.After(time.Now()))
}

func TestOrchestratorSkipsJobWithLiveLock(t *testing.T) {
	store := newFakeJobStore()
	lockedAt := time.Now()
	store.jobs["tick"] = &domain.Job{
		Name:           "tick",
		NextRunAt:      time.Now().Add(-time.Second),
		RepeatInterval: time.Minute,
		LockedAt:       &lockedAt,
	}

	var calls int
	o := New(store, "")
	o.RegisterProcessor("tick", func(ctx context.Context, data map[string]any) error {
		calls++
		return nil
	})

	o.pollOnce(context.Background())

	assert.Equal(t, 0, calls)
}

func TestOrchestratorRecordsProcessorFailure(t *testing.T) {
	store := newFakeJobStore()
	store.jobs["tick"] = &domain.Job{Name: "tick", NextRunAt: time.Now().Add(-time.Second), RepeatInterval: time.Minute}

	o := New(store, "")
	o.RegisterProcessor("tick", func(ctx context.Context, data map[string]any) error {
		return errors.New("boom")
	})

	o.pollOnce(context.Background())

	assert.Equal(t, "boom", store.jobs["tick"].LastError)
	assert.Nil(t, store.jobs["tick"].LockedAt)
}
