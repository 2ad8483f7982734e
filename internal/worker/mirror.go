// Package worker keeps an export sink in step with the budget state.
package worker

import (
	"context"
	"fmt"
	"time"

	"budgeto/internal/amqp"
	"budgeto/internal/cache"
	"budgeto/internal/core"
	"budgeto/internal/export"
	"budgeto/internal/log"
	"budgeto/internal/state"
)

// Loader is the part of state.Store the worker reads through.
type Loader interface {
	LoadInitialized(ctx context.Context) (*core.AppState, error)
}

// MirrorWorker rewrites the sink with a fresh export whenever the state
// changes. Broker messages are deduplicated by ID.
type MirrorWorker struct {
	store  Loader
	sink   export.Sink
	seen   *cache.Seen
	now    func() time.Time
	logger *log.Logger
}

func NewMirrorWorker(store Loader, sink export.Sink, now func() time.Time, logger *log.Logger) *MirrorWorker {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		store:  store,
		sink:   sink,
		seen:   cache.NewSeen(1024, time.Hour, now),
		now:    now,
		logger: logger.WithComponent(log.ComponentExport),
	}
}

// Sync exports the current state to the sink.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	st, err := w.store.LoadInitialized(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	e := export.Build(st, w.now())
	if err := w.sink.Write(ctx, e); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	w.logger.InfoContext(ctx, "state mirrored", log.FieldOperation, log.OpExport, log.FieldCount, len(e.Expenses))
	return nil
}

// HandleChange is an amqp.Handler. A failed sync forgets the message so the
// redelivery is not skipped as a duplicate.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if !w.seen.Add(msg.ID) {
		w.logger.DebugContext(ctx, "duplicate change skipped", "message_id", msg.ID)
		return nil
	}
	if err := w.HandleLocal(ctx, msg.Change); err != nil {
		w.seen.Forget(msg.ID)
		return err
	}
	return nil
}

// HandleLocal reacts to a change raised in this process.
func (w *MirrorWorker) HandleLocal(ctx context.Context, change state.StateChange) error {
	if !affectsEntries(change.Kind) {
		return nil
	}
	w.logger.InfoContext(ctx, "state change received", "kind", string(change.Kind))
	return w.Sync(ctx)
}

// Run mirrors every change from ch until ctx ends or ch closes. Sync errors
// are logged; the next change retries.
func (w *MirrorWorker) Run(ctx context.Context, ch <-chan state.StateChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			if err := w.HandleLocal(ctx, change); err != nil {
				w.logger.ErrorContext(ctx, "mirror failed", log.FieldError, err, "kind", string(change.Kind))
			}
		}
	}
}

// CleanSeen drops expired message IDs.
func (w *MirrorWorker) CleanSeen() int {
	return w.seen.CleanExpired()
}

func affectsEntries(kind state.ChangeKind) bool {
	return kind != state.ChangePreferences
}
