package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"networth/internal/amqp"
	"networth/internal/backend"
	"networth/internal/config"
	applog "networth/internal/log"
	"networth/internal/services"
)

// snapshot-worker records the daily net-worth snapshot on a fixed interval so
// the history keeps growing even on days the tracker is never opened.
func main() {
	_ = godotenv.Load()

	logger := applog.FromEnv(applog.ComponentWorker)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger)
	store, err := factory.CreateStore(ctx, backend.Config{
		Type:         backend.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		DatabaseURL:  cfg.DatabaseURL,
	})
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event stream", "error", err)
		} else {
			publisher = client
		}
	}

	ledger := services.NewLedgerService(store, publisher)
	defer ledger.Close()

	logger.Info("Snapshot worker configured",
		"interval", cfg.SnapshotInterval,
		"backend", cfg.DataBackend)

	// Record once at startup so a freshly booted worker still covers today.
	if err := ledger.RecordTodaySnapshot(ctx); err != nil {
		logger.Error("Initial snapshot failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := ledger.RecordTodaySnapshot(gctx); err != nil {
					logger.Error("Snapshot failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Snapshot worker stopped gracefully")
}
