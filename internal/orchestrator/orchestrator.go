// Package orchestrator implements the job orchestrator (§4.11): a poll
// loop that claims due, persisted jobs at most once per name and hands
// them to a registered processor function.
package orchestrator

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/ports"
)

// Processor runs a job's work given its persisted data.
type Processor func(ctx context.Context, data map[string]any) error

// Orchestrator polls ports.JobStore for due jobs and dispatches each to
// its named processor. One cron entry drives the poll tick; there is no
// per-job cron schedule, since jobs carry their own NextRunAt/RepeatInterval.
type Orchestrator struct {
	store      ports.JobStore
	processors map[string]Processor
	cron       *cron.Cron
	pollEvery  string // cron spec, default "@every 2s"
}

// New builds an Orchestrator over store. pollEvery is a cron spec like
// "@every 2s"; an empty string uses the spec's default 2s poll interval.
func New(store ports.JobStore, pollEvery string) *Orchestrator {
	if pollEvery == "" {
		pollEvery = "@every 2s"
	}
	return &Orchestrator{
		store:      store,
		processors: make(map[string]Processor),
		cron:       cron.New(),
		pollEvery:  pollEvery,
	}
}

// RegisterProcessor makes name a runnable job kind. Registration only
// happens at startup (§5 "Shared-resource policy").
func (o *Orchestrator) RegisterProcessor(name string, p Processor) {
	o.processors[name] = p
}

// Start schedules the poll tick and begins running it in the background.
func (o *Orchestrator) Start(ctx context.Context) error {
	_, err := o.cron.AddFunc(o.pollEvery, func() { o.pollOnce(ctx) })
	if err != nil {
		return err
	}
	o.cron.Start()
	return nil
}

// Stop halts future poll ticks and awaits any poll already in flight
// (§5 "Cancellation & timeouts": in-flight work completes to a safe point).
func (o *Orchestrator) Stop() {
	<-o.cron.Stop().Done()
}

func (o *Orchestrator) pollOnce(ctx context.Context) {
	now := time.Now()
	due, err := o.store.Due(ctx, now)
	if err != nil {
		slog.Error("orchestrator: fetching due jobs failed", "err", err)
		return
	}

	for _, job := range due {
		o.runJob(ctx, job)
	}
}

func (o *Orchestrator) runJob(ctx context.Context, job *domain.Job) {
	claimed, err := o.store.Claim(ctx, job.Name, time.Now())
	if err != nil {
		slog.Error("orchestrator: claiming job failed", "job", job.Name, "err", err)
		return
	}
	if !claimed {
		return
	}

	proc, ok := o.processors[job.Name]
	if !ok {
		slog.Error("orchestrator: no processor registered for job", "job", job.Name)
		_ = o.store.Finish(ctx, job.Name, time.Now(), domain.ErrEntityNotFound)
		return
	}

	runErr := proc(ctx, job.Data)
	if runErr != nil {
		slog.Warn("orchestrator: job run failed", "job", job.Name, "err", runErr)
	}
	if err := o.store.Finish(ctx, job.Name, time.Now(), runErr); err != nil {
		slog.Error("orchestrator: finishing job failed", "job", job.Name, "err", err)
	}
}

// CreateRepeatingJob implements §4.11's idempotent job creation: it does
// nothing if a job with the same name and deep-equal data already exists.
func CreateRepeatingJob(ctx context.Context, store ports.JobStore, name string, interval time.Duration, data map[string]any) error {
	existing, err := store.Get(ctx, name)
	if err == nil && existing != nil && reflect.DeepEqual(existing.Data, data) {
		return nil
	}

	job := &domain.Job{
		Name:           name,
		Data:           data,
		NextRunAt:      time.Now(),
		RepeatInterval: interval,
	}
	return store.Upsert(ctx, job)
}
