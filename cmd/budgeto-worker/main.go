package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgeto/internal/amqp"
	"budgeto/internal/cli"
	"budgeto/internal/log"
	"budgeto/internal/scheduler"
	gsheet "budgeto/internal/sheets/google"
	"budgeto/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	seenCleanEvery  = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := log.New(log.DefaultConfig())
		cli.Fatal(logger, "configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)
	logger.Info("starting budgeto-worker", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	app, err := cli.OpenStore(context.Background(), cfg, logger, "budgeto-worker", nil)
	if err != nil {
		cli.Fatal(logger, "failed to open state store", err)
	}

	rollover, err := scheduler.NewRollover(app.Store, scheduler.Options{
		Schedule: cfg.RolloverSchedule,
		Location: app.Store.Calendar().Location(),
		Logger:   logger,
	})
	if err != nil {
		cli.Fatal(logger, "failed to create rollover scheduler", err)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		rollover.Stop()
		if err := app.Close(); err != nil {
			logger.Error("backend cleanup failed", log.FieldError, err)
		}
	})

	if err := rollover.Start(ctx); err != nil {
		logger.Error("startup rollover failed", log.FieldError, err)
	}
	logger.Info("rollover scheduled", "schedule", cfg.RolloverSchedule, "next", rollover.Next())

	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	} else {
		startMirror(ctx, app, logger)
	}

	cli.WaitForShutdown(ctx, done)
}

// startMirror keeps the spreadsheet in step with local changes and, when a
// queue is configured, with changes published by other processes.
func startMirror(ctx context.Context, app *cli.App, logger *log.Logger) {
	cfg := app.Config
	sink, err := gsheet.NewExporter(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleExportSheetName, logger)
	if err != nil {
		logger.Error("failed to initialize Google Sheets exporter", log.FieldError, err)
		return
	}
	mirror := worker.NewMirrorWorker(app.Store, sink, nil, logger)

	if err := mirror.Sync(ctx); err != nil {
		logger.Error("startup mirror failed", log.FieldError, err)
	}

	changes, unsubscribe := app.Backend.Changes.Subscribe(16)
	go func() {
		defer unsubscribe()
		mirror.Run(ctx, changes)
	}()

	if client, ok := app.Backend.Publisher.(*amqp.Client); ok && cfg.AMQPQueue != "" {
		go func() {
			err := client.Consume(ctx, mirror.HandleChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("message consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("consuming state changes", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("skipping AMQP consumption - no queue configured")
	}

	go func() {
		ticker := time.NewTicker(seenCleanEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mirror.CleanSeen(); n > 0 {
					logger.Debug("expired message ids dropped", log.FieldCount, n)
				}
			}
		}
	}()
}
