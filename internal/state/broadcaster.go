package state

import (
	"context"
	"sync"
	"time"
)

const (
	ChangeCreated         ChangeKind = "created"
	ChangeMigrated        ChangeKind = "migrated"
	ChangeRolledOver      ChangeKind = "rolled_over"
	ChangeUpdated         ChangeKind = "updated"
	ChangeCurrencyChanged ChangeKind = "currency_changed"
	ChangePreferences     ChangeKind = "preferences"
	ChangeReset           ChangeKind = "reset"
)

type (
	ChangeKind string

	// StateChange describes one committed write.
	StateChange struct {
		Kind            ChangeKind `json:"kind"`
		At              time.Time  `json:"at"`
		Version         int        `json:"version,omitempty"`
		FixedCount      int        `json:"fixedCount"`
		VariableCount   int        `json:"variableCount"`
		DefaultCurrency string     `json:"defaultCurrency,omitempty"`
	}

	// Notifier is told about every committed change. Errors are logged by
	// the store and never undo the write.
	Notifier interface {
		Notify(ctx context.Context, change StateChange) error
	}

	NotifierFunc func(ctx context.Context, change StateChange) error
)

func (f NotifierFunc) Notify(ctx context.Context, change StateChange) error {
	return f(ctx, change)
}

// Broadcaster fans changes out to in-process subscribers. A slow subscriber
// misses changes rather than blocking the writer.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan StateChange
	next int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]chan StateChange{}}
}

// Subscribe returns a channel of changes and a func that closes it.
func (b *Broadcaster) Subscribe(buffer int) (<-chan StateChange, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan StateChange, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broadcaster) Notify(_ context.Context, change StateChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

// Fanout notifies each notifier in order and returns the first error.
func Fanout(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, change StateChange) error {
		var first error
		for _, n := range notifiers {
			if n == nil {
				continue
			}
			if err := n.Notify(ctx, change); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
