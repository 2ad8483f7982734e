package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeto/internal/calendar"
	"budgeto/internal/core"
	"budgeto/internal/log"
	"budgeto/internal/seed"
	"budgeto/internal/state"
	"budgeto/internal/storage"
	"budgeto/internal/storage/memory"
)

type fakeStore struct {
	calls atomic.Int32
	err   error
}

func (f *fakeStore) Initialize(context.Context) (*core.AppState, state.Transitions, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, state.Transitions{}, f.err
	}
	return &core.AppState{}, state.Transitions{RolledOver: true}, nil
}

func TestNewRolloverRejectsBadSchedule(t *testing.T) {
	_, err := NewRollover(&fakeStore{}, Options{Schedule: "every tuesday", Logger: log.Discard()})
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	fs := &fakeStore{}
	r, err := NewRollover(fs, Options{Logger: log.Discard()})
	require.NoError(t, err)

	tr, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, tr.RolledOver)

	fs.err = errors.New("disk gone")
	_, err = r.RunOnce(context.Background())
	assert.Error(t, err)

	runs, lastErr := r.Stats()
	assert.Equal(t, 2, runs)
	assert.EqualError(t, lastErr, "disk gone")
}

func TestStartRunsImmediately(t *testing.T) {
	fs := &fakeStore{}
	cph, err := time.LoadLocation(calendar.DefaultTimezone)
	require.NoError(t, err)
	r, err := NewRollover(fs, Options{Location: cph, Logger: log.Discard()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	assert.Equal(t, int32(1), fs.calls.Load())
	next := r.Next().In(cph)
	assert.Equal(t, 1, next.Day())
	assert.Equal(t, 0, next.Hour())
}

func TestNextAfter(t *testing.T) {
	cph, err := time.LoadLocation(calendar.DefaultTimezone)
	require.NoError(t, err)

	next, err := NextAfter(DefaultSchedule, cph, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, cph)), next.String())
	assert.Equal(t, "2025-03-31T22:00:00.000Z", calendar.FormatISO(next))

	_, err = NextAfter("nope", cph, time.Now())
	assert.Error(t, err)
}

func TestRolloverClearsVariableEntries(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	keys := storage.NewKeys("")
	cal, err := calendar.Load(calendar.DefaultTimezone, func() time.Time {
		return time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, keys.AppState, `{
		"version": 2,
		"fixedEntries": [],
		"variableEntries": [{"id": "v1", "timestamp": 1741942800000, "type": "expense", "categoryId": "mad", "money": {"amount": 4500, "currency": "DKK"}, "legacyAmountMinor": 4500}],
		"categories": [],
		"lastResetTimestamp": "2025-02-28T23:00:00.000Z",
		"defaultCurrency": "DKK"
	}`))

	store := state.New(kv, state.Options{Keys: keys, Calendar: cal, Logger: log.Discard(), Seeder: seed.NewGenerator(1)})
	r, err := NewRollover(store, Options{Location: cal.Location(), Logger: log.Discard()})
	require.NoError(t, err)

	tr, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, tr.RolledOver)

	st, err := store.LoadInitialized(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.VariableEntries)
	assert.Equal(t, "2025-03-31T22:00:00.000Z", calendar.FormatISO(st.LastReset))
}
