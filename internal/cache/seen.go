// Package cache remembers recently seen keys so redelivered messages are
// handled once.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Seen is a bounded set of keys that expire after a TTL. When full, the
// least recently added key is evicted.
type Seen struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[string]*list.Element
	order   *list.List
}

type seenItem struct {
	key       string
	expiresAt time.Time
}

// NewSeen creates a set holding at most maxSize keys for ttl each. A nil now
// uses time.Now.
func NewSeen(maxSize int, ttl time.Duration, now func() time.Time) *Seen {
	if maxSize < 1 {
		maxSize = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Seen{
		maxSize: maxSize,
		ttl:     ttl,
		now:     now,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Add records key and reports whether it was new. An expired key counts as
// new.
func (s *Seen) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if elem, ok := s.items[key]; ok {
		if now.Before(elem.Value.(*seenItem).expiresAt) {
			return false
		}
		s.remove(elem)
	}

	s.items[key] = s.order.PushFront(&seenItem{key: key, expiresAt: now.Add(s.ttl)})
	if s.order.Len() > s.maxSize {
		s.remove(s.order.Back())
	}
	return true
}

// Forget drops key so the next Add reports it as new again.
func (s *Seen) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.items[key]; ok {
		s.remove(elem)
	}
}

// CleanExpired removes expired keys and returns how many went.
func (s *Seen) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for elem := s.order.Back(); elem != nil; {
		prev := elem.Prev()
		if !now.Before(elem.Value.(*seenItem).expiresAt) {
			s.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (s *Seen) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Seen) remove(elem *list.Element) {
	delete(s.items, elem.Value.(*seenItem).key)
	s.order.Remove(elem)
}
