// Package scheduler runs the monthly rollover on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"budgeto/internal/core"
	"budgeto/internal/log"
	"budgeto/internal/state"
)

// DefaultSchedule fires at local midnight on the first of every month.
const DefaultSchedule = "0 0 1 * *"

// Initializer is the part of state.Store the scheduler needs. Initialize
// applies any due rollover and persists it.
type Initializer interface {
	Initialize(ctx context.Context) (*core.AppState, state.Transitions, error)
}

type Rollover struct {
	store   Initializer
	cron    *cron.Cron
	logger  *log.Logger
	timeout time.Duration

	mu      sync.Mutex
	ctx     context.Context
	lastErr error
	runs    int
}

type Options struct {
	Schedule string
	Location *time.Location
	// Timeout bounds a single run; zero means 30s.
	Timeout time.Duration
	Logger  *log.Logger
}

func NewRollover(store Initializer, opts Options) (*Rollover, error) {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	r := &Rollover{
		store:   store,
		cron:    cron.New(cron.WithLocation(opts.Location)),
		logger:  opts.Logger.WithComponent(log.ComponentScheduler),
		timeout: opts.Timeout,
		ctx:     context.Background(),
	}
	if _, err := r.cron.AddFunc(opts.Schedule, r.tick); err != nil {
		return nil, fmt.Errorf("add rollover job %q: %w", opts.Schedule, err)
	}
	return r, nil
}

// RunOnce loads the state, which rolls it over if a new month started.
func (r *Rollover) RunOnce(ctx context.Context) (state.Transitions, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	st, tr, err := r.store.Initialize(ctx)

	r.mu.Lock()
	r.runs++
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.logger.ErrorContext(ctx, "rollover check failed",
			log.FieldOperation, log.OpRollover,
			log.FieldError, err)
		return tr, err
	}
	r.logger.InfoContext(ctx, "rollover check done",
		log.FieldOperation, log.OpRollover,
		"rolled_over", tr.RolledOver,
		"created", tr.Created,
		log.FieldCount, len(st.VariableEntries),
		log.FieldDuration, time.Since(start).Milliseconds())
	return tr, nil
}

func (r *Rollover) tick() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_, _ = r.RunOnce(ctx)
}

// Start runs one check immediately and then follows the schedule until ctx
// ends or Stop is called. A failed first check is returned but does not
// stop the schedule.
func (r *Rollover) Start(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	_, err := r.RunOnce(ctx)
	r.cron.Start()
	r.logger.InfoContext(ctx, "rollover scheduler started", "next_run", r.Next().Format(time.RFC3339))
	return err
}

// Stop halts the schedule and waits for a running check to finish.
func (r *Rollover) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("rollover scheduler stopped", log.FieldOperation, log.OpShutdown)
}

// Next is when the next scheduled check fires.
func (r *Rollover) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stats reports how many checks ran and the last error, if any.
func (r *Rollover) Stats() (runs int, lastErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs, r.lastErr
}

// ErrNotScheduled is returned by NextAfter for an invalid schedule.
var ErrNotScheduled = errors.New("schedule never fires")

// NextAfter reports when schedule next fires after t in loc.
func NextAfter(schedule string, loc *time.Location, t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(t.In(loc))
	if next.IsZero() {
		return time.Time{}, ErrNotScheduled
	}
	return next, nil
}
