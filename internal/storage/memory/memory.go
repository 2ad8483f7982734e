// Package memory is an in-process key-value backend. It can cap the total
// bytes stored to behave like a browser's localStorage quota.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budgeto/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	items map[storage.Key]string
	quota int // bytes, 0 = unlimited
}

var (
	_ storage.KeyValueStore = (*Store)(nil)
	_ storage.Swapper       = (*Store)(nil)
)

func New() *Store {
	return &Store{items: map[storage.Key]string{}}
}

// NewWithQuota rejects writes that would push keys plus values past quota
// bytes.
func NewWithQuota(quota int) *Store {
	s := New()
	s.quota = quota
	return s
}

func (s *Store) Get(_ context.Context, key storage.Key) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key storage.Key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, value)
}

func (s *Store) Delete(_ context.Context, key storage.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *Store) CompareAndSwap(_ context.Context, key storage.Key, old string, oldPresent bool, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[key]
	if ok != oldPresent || (ok && cur != old) {
		return false, nil
	}
	if err := s.setLocked(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) CompareAndDelete(_ context.Context, key storage.Key, old string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[key]; !ok || cur != old {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []storage.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.Key, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) Close() error { return nil }

func (s *Store) setLocked(key storage.Key, value string) error {
	if s.quota > 0 {
		used := 0
		for k, v := range s.items {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > s.quota {
			return fmt.Errorf("set %s: %w", key, storage.ErrQuotaExceeded)
		}
	}
	s.items[key] = value
	return nil
}
