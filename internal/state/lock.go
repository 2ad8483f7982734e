package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"budgeto/internal/log"
	"budgeto/internal/storage"
)

// LockPolicy bounds how long a writer waits for the advisory lock and when a
// lock left behind by a dead holder may be taken over.
type LockPolicy struct {
	StaleAfter   time.Duration
	RetryBackoff time.Duration
	MaxAttempts  int
}

func DefaultLockPolicy() LockPolicy {
	return LockPolicy{
		StaleAfter:   5 * time.Second,
		RetryBackoff: 50 * time.Millisecond,
		MaxAttempts:  10,
	}
}

func (p LockPolicy) withDefaults() LockPolicy {
	d := DefaultLockPolicy()
	if p.StaleAfter <= 0 {
		p.StaleAfter = d.StaleAfter
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = d.RetryBackoff
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	return p
}

// budget is the longest a caller waits before ErrLockTimeout.
func (p LockPolicy) budget() time.Duration {
	return time.Duration(p.MaxAttempts) * p.RetryBackoff
}

// advisoryLock serializes writers in two layers. A semaphore orders
// goroutines in this process. A timestamped key in the store orders
// processes sharing the same storage.
type advisoryLock struct {
	kv     storage.KeyValueStore
	key    storage.Key
	policy LockPolicy
	now    func() time.Time
	sem    *semaphore.Weighted
	logger *log.Logger
}

func newAdvisoryLock(kv storage.KeyValueStore, key storage.Key, policy LockPolicy, now func() time.Time, logger *log.Logger) *advisoryLock {
	return &advisoryLock{
		kv:     kv,
		key:    key,
		policy: policy.withDefaults(),
		now:    now,
		sem:    semaphore.NewWeighted(1),
		logger: logger.WithComponent(log.ComponentLock),
	}
}

// acquire returns a release func. The release must be called exactly once.
func (l *advisoryLock) acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.policy.budget())
	defer cancel()
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.logger.WarnContext(ctx, "lock timeout waiting for in-process holder")
		return nil, ErrLockTimeout
	}

	token, err := l.acquireKey(ctx)
	if err != nil {
		l.sem.Release(1)
		return nil, err
	}

	return func() {
		// release must not be skipped because the caller's ctx ended
		if err := l.releaseKey(context.WithoutCancel(ctx), token); err != nil {
			l.logger.ErrorContext(ctx, "failed to release lock", log.FieldError, err)
		}
		l.sem.Release(1)
	}, nil
}

func (l *advisoryLock) acquireKey(ctx context.Context) (string, error) {
	swapper, atomic := l.kv.(storage.Swapper)

	for attempt := 1; attempt <= l.policy.MaxAttempts; attempt++ {
		cur, held, err := l.kv.Get(ctx, l.key)
		if err != nil {
			return "", fmt.Errorf("read lock: %w", err)
		}

		if !held || l.stale(cur) {
			token := l.newToken()
			if atomic {
				ok, err := swapper.CompareAndSwap(ctx, l.key, cur, held, token)
				if err != nil {
					return "", fmt.Errorf("%w: lock: %w", ErrStorageWrite, err)
				}
				if ok {
					l.logAcquired(ctx, held, cur, attempt)
					return token, nil
				}
			} else {
				if err := l.kv.Set(ctx, l.key, token); err != nil {
					return "", fmt.Errorf("%w: lock: %w", ErrStorageWrite, err)
				}
				l.logAcquired(ctx, held, cur, attempt)
				return token, nil
			}
		}

		if attempt == l.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.policy.RetryBackoff):
		}
	}

	l.logger.WarnContext(ctx, "lock timeout", log.FieldAttempt, l.policy.MaxAttempts, log.FieldKey, l.key.String())
	return "", ErrLockTimeout
}

func (l *advisoryLock) logAcquired(ctx context.Context, reclaimed bool, old string, attempt int) {
	if reclaimed {
		l.logger.WarnContext(ctx, "reclaimed stale lock", "previous", old, log.FieldAttempt, attempt)
		return
	}
	l.logger.DebugContext(ctx, "lock acquired", log.FieldAttempt, attempt)
}

func (l *advisoryLock) releaseKey(ctx context.Context, token string) error {
	if swapper, ok := l.kv.(storage.Swapper); ok {
		released, err := swapper.CompareAndDelete(ctx, l.key, token)
		if err != nil {
			return err
		}
		if !released {
			l.logger.WarnContext(ctx, "lock was taken over before release")
		}
		return nil
	}
	cur, held, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return err
	}
	if !held || cur != token {
		l.logger.WarnContext(ctx, "lock was taken over before release")
		return nil
	}
	return l.kv.Delete(ctx, l.key)
}

// Tokens are "<epoch ms>:<uuid>". A bare epoch-ms value is also understood.
func (l *advisoryLock) newToken() string {
	return strconv.FormatInt(l.now().UnixMilli(), 10) + ":" + uuid.NewString()
}

func (l *advisoryLock) stale(token string) bool {
	ms, err := lockTime(token)
	if err != nil {
		// unreadable marker: nobody can prove they own it
		return true
	}
	return l.now().Sub(time.UnixMilli(ms)) >= l.policy.StaleAfter
}

var errBadLockToken = errors.New("bad lock token")

func lockTime(token string) (int64, error) {
	stamp, _, _ := strings.Cut(token, ":")
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadLockToken, token)
	}
	return ms, nil
}
