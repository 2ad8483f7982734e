package state

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeto/internal/log"
	"budgeto/internal/storage"
)

// plainKV hides the Swapper methods of the memory store so the
// read-then-write fallback is exercised.
type plainKV struct {
	mu sync.Mutex
	m  map[storage.Key]string
}

func (p *plainKV) Get(_ context.Context, key storage.Key) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *plainKV) Set(_ context.Context, key storage.Key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = value
	return nil
}

func (p *plainKV) Delete(_ context.Context, key storage.Key) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, key)
	return nil
}

func (p *plainKV) Close() error { return nil }

func TestLockTime(t *testing.T) {
	cases := []struct {
		token   string
		want    int64
		wantErr bool
	}{
		{"1741942800000:0b6f4c1e-7c47-4c55-9a63-2f0f4f7a2a10", 1741942800000, false},
		{"1741942800000", 1741942800000, false},
		{"", 0, true},
		{"yesterday:abc", 0, true},
	}
	for _, tc := range cases {
		got, err := lockTime(tc.token)
		if tc.wantErr {
			if !errors.Is(err, errBadLockToken) {
				t.Errorf("lockTime(%q): expected errBadLockToken, got %v", tc.token, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("lockTime(%q) = %d, %v", tc.token, got, err)
		}
	}
}

func TestLockStale(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	l := newAdvisoryLock(&plainKV{m: map[storage.Key]string{}}, "k", LockPolicy{}, func() time.Time { return now }, log.Discard())

	ms := func(d time.Duration) string { return strconv.FormatInt(now.Add(-d).UnixMilli(), 10) + ":x" }
	assert.False(t, l.stale(ms(0)))
	assert.False(t, l.stale(ms(4999*time.Millisecond)))
	assert.True(t, l.stale(ms(5*time.Second)))
	assert.True(t, l.stale("garbage"))
}

func TestLockPolicyDefaults(t *testing.T) {
	p := LockPolicy{MaxAttempts: 4}.withDefaults()
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, p.RetryBackoff)
	assert.Equal(t, 5*time.Second, p.StaleAfter)
	assert.Equal(t, 200*time.Millisecond, p.budget())
}

func TestLockWithoutSwapper(t *testing.T) {
	kv := &plainKV{m: map[storage.Key]string{}}
	ctx := context.Background()
	l := newAdvisoryLock(kv, "budgeto.lock", LockPolicy{RetryBackoff: time.Millisecond, MaxAttempts: 3}, time.Now, log.Discard())

	release, err := l.acquire(ctx)
	require.NoError(t, err)
	token, held, _ := kv.Get(ctx, "budgeto.lock")
	require.True(t, held)
	_, err = lockTime(token)
	require.NoError(t, err)

	release()
	_, held, _ = kv.Get(ctx, "budgeto.lock")
	assert.False(t, held)
}

func TestLockReleaseLeavesForeignToken(t *testing.T) {
	kv := &plainKV{m: map[storage.Key]string{}}
	ctx := context.Background()
	l := newAdvisoryLock(kv, "budgeto.lock", LockPolicy{}, time.Now, log.Discard())

	release, err := l.acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "budgeto.lock", "other"))
	release()

	v, held, _ := kv.Get(ctx, "budgeto.lock")
	assert.True(t, held)
	assert.Equal(t, "other", v)
}

func TestLockHonoursCancelledContext(t *testing.T) {
	kv := &plainKV{m: map[storage.Key]string{}}
	l := newAdvisoryLock(kv, "budgeto.lock", LockPolicy{}, time.Now, log.Discard())

	release, err := l.acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
