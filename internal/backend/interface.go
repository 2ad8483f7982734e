package backend

import (
	"context"

	"budgeto/internal/state"
	"budgeto/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the key-value store, the notifier the state store
// should report to, and a cleanup that closes both.
type BackendResult struct {
	Store    storage.KeyValueStore
	Notifier state.Notifier
	// Changes receives every change in this process, whether or not AMQP is
	// enabled.
	Changes *state.Broadcaster
	// Publisher is nil when AMQP is disabled or unreachable.
	Publisher Publisher
	Cleanup   CleanupFunc
}

// Publisher is the broker side of the notifier. The worker also consumes
// through it.
type Publisher interface {
	state.Notifier
	Close() error
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; zero means unlimited
	MemoryQuotaBytes int

	// AMQP, optional for every backend
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string
	Source         string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
