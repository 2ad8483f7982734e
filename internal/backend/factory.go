package backend

import (
	"context"
	"errors"
	"fmt"

	"budgeto/internal/amqp"
	"budgeto/internal/log"
	"budgeto/internal/state"
	"budgeto/internal/storage"
	"budgeto/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// dial is swapped in tests so no broker is needed.
	dial func(url string, opts amqp.Options) (Publisher, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial: func(url string, opts amqp.Options) (Publisher, error) {
			return amqp.NewClient(url, opts)
		},
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		kv  storage.KeyValueStore
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		kv, err = storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.InfoContext(ctx, "initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		kv = memory.NewWithQuota(config.MemoryQuotaBytes)
		f.logger.InfoContext(ctx, "initialized memory backend", "quota_bytes", config.MemoryQuotaBytes)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	changes := state.NewBroadcaster()
	result := &BackendResult{Store: kv, Notifier: changes, Changes: changes}

	if config.AMQPURL != "" {
		pub, err := f.dial(config.AMQPURL, amqp.Options{
			Exchange:   config.AMQPExchange,
			RoutingKey: config.AMQPRoutingKey,
			Queue:      config.AMQPQueue,
			Source:     config.Source,
			Logger:     f.logger,
		})
		if err != nil {
			f.logger.WarnContext(ctx, "failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		} else {
			result.Publisher = pub
			result.Notifier = state.Fanout(changes, pub)
			f.logger.InfoContext(ctx, "initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.Publisher != nil {
			if err := result.Publisher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
			}
		}
		if err := kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		return errors.Join(errs...)
	}
	return result, nil
}
