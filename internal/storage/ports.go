// Package storage holds the key-value port the state store persists through,
// the typed key set, and the SQLite backend.
package storage

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by backends that cap stored bytes.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Ports for persistence backends.
type (
	// KeyValueStore is a flat string map, the shape of browser localStorage.
	KeyValueStore interface {
		// Get returns ok=false when key is absent.
		Get(ctx context.Context, key Key) (value string, ok bool, err error)
		Set(ctx context.Context, key Key, value string) error
		// Delete is a no-op for absent keys.
		Delete(ctx context.Context, key Key) error
		Close() error
	}

	// Swapper is implemented by backends that can replace a value only when
	// it still holds an expected one. The advisory lock uses it when present.
	Swapper interface {
		// CompareAndSwap sets key to value if its current value is old, or
		// if it is absent and oldPresent is false.
		CompareAndSwap(ctx context.Context, key Key, old string, oldPresent bool, value string) (bool, error)
		CompareAndDelete(ctx context.Context, key Key, old string) (bool, error)
	}
)
