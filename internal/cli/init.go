// Package cli holds the start-up steps shared by cmd/budgeto and
// cmd/budgeto-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgeto/internal/backend"
	"budgeto/internal/calendar"
	"budgeto/internal/config"
	"budgeto/internal/log"
	"budgeto/internal/seed"
	"budgeto/internal/state"
	"budgeto/internal/storage"
)

// SetupLogger builds the process logger from config and makes it the slog
// default. Logs go to w so stdout stays free for command output.
func SetupLogger(cfg *config.Config, w io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	if w != nil {
		lc.Output = w
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = lvl
	}
	lc.Format = strings.ToLower(cfg.LogFormat)
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig reads the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App bundles what both binaries run on.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Backend *backend.BackendResult
	Store   *state.Store
}

// Close releases the backend.
func (a *App) Close() error {
	if a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// OpenStore creates the configured backend and a state store on top of it.
// now is injected so tests can pin the clock; nil means time.Now.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger, source string, now func() time.Time) (*App, error) {
	cal, err := calendar.Load(cfg.Timezone, now)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg, source)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	store := state.New(res.Store, state.Options{
		Keys:     storage.NewKeys(cfg.KeyPrefix),
		Calendar: cal,
		Logger:   logger,
		DevMode:  cfg.DevMode,
		Seeder:   seed.NewRandomGenerator(),
		Notifier: res.Notifier,
		LockPolicy: state.LockPolicy{
			StaleAfter:   cfg.LockStaleAfter,
			RetryBackoff: cfg.LockRetryBackoff,
			MaxAttempts:  cfg.LockMaxAttempts,
		},
	})
	return &App{Config: cfg, Logger: logger, Backend: res, Store: store}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("shutdown complete", log.FieldOperation, log.OpShutdown)
		case <-time.After(timeout):
			logger.Warn("shutdown timeout reached", log.FieldOperation, log.OpShutdown)
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	fmt.Fprintln(os.Stderr, msg+":", err)
	os.Exit(1)
}
