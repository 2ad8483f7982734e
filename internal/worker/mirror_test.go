package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeto/internal/amqp"
	"budgeto/internal/core"
	"budgeto/internal/export"
	"budgeto/internal/log"
	"budgeto/internal/state"
)

type stubStore struct {
	st  *core.AppState
	err error
}

func (s *stubStore) LoadInitialized(context.Context) (*core.AppState, error) {
	return s.st, s.err
}

type recordingSink struct {
	mu     sync.Mutex
	writes []export.Export
	err    error
}

func (s *recordingSink) Write(_ context.Context, e export.Export) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, e)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

var fixedNow = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }

func sampleState() *core.AppState {
	return &core.AppState{
		FixedEntries: []core.FixedEntry{{ID: "f1", Entry: core.Entry{Type: core.Expense, CategoryID: "bolig", Money: core.DKKMoney(850000)}}},
	}
}

func TestSync(t *testing.T) {
	sink := &recordingSink{}
	w := NewMirrorWorker(&stubStore{st: sampleState()}, sink, fixedNow, log.Discard())

	require.NoError(t, w.Sync(context.Background()))
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "2025-03-14T09:00:00.000Z", sink.writes[0].ExportedAt)
	assert.Len(t, sink.writes[0].Expenses, 1)
}

func TestSyncErrors(t *testing.T) {
	w := NewMirrorWorker(&stubStore{err: state.ErrLockTimeout}, &recordingSink{}, fixedNow, log.Discard())
	assert.ErrorIs(t, w.Sync(context.Background()), state.ErrLockTimeout)

	boom := errors.New("quota")
	w = NewMirrorWorker(&stubStore{st: sampleState()}, &recordingSink{err: boom}, fixedNow, log.Discard())
	assert.ErrorIs(t, w.Sync(context.Background()), boom)
}

func TestHandleChangeDeduplicates(t *testing.T) {
	sink := &recordingSink{}
	w := NewMirrorWorker(&stubStore{st: sampleState()}, sink, fixedNow, log.Discard())
	msg := amqp.NewChangeMessage(state.StateChange{Kind: state.ChangeUpdated}, "budgeto")

	require.NoError(t, w.HandleChange(context.Background(), msg))
	require.NoError(t, w.HandleChange(context.Background(), msg))
	assert.Equal(t, 1, sink.count())
}

func TestHandleChangeRetriesAfterFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("sheets down")}
	w := NewMirrorWorker(&stubStore{st: sampleState()}, sink, fixedNow, log.Discard())
	msg := amqp.NewChangeMessage(state.StateChange{Kind: state.ChangeRolledOver}, "budgeto")

	require.Error(t, w.HandleChange(context.Background(), msg))

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	require.NoError(t, w.HandleChange(context.Background(), msg))
	assert.Equal(t, 1, sink.count())
}

func TestPreferenceChangesAreIgnored(t *testing.T) {
	sink := &recordingSink{}
	w := NewMirrorWorker(&stubStore{st: sampleState()}, sink, fixedNow, log.Discard())
	require.NoError(t, w.HandleLocal(context.Background(), state.StateChange{Kind: state.ChangePreferences}))
	assert.Zero(t, sink.count())
}

func TestRunFollowsBroadcaster(t *testing.T) {
	sink := &recordingSink{}
	w := NewMirrorWorker(&stubStore{st: sampleState()}, sink, fixedNow, log.Discard())
	b := state.NewBroadcaster()
	ch, stop := b.Subscribe(4)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background(), ch)
		close(done)
	}()

	require.NoError(t, b.Notify(context.Background(), state.StateChange{Kind: state.ChangeCreated}))
	require.NoError(t, b.Notify(context.Background(), state.StateChange{Kind: state.ChangeReset}))
	stop()
	<-done
	assert.Equal(t, 2, sink.count())
}
