package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"networth/internal/backend"
	"networth/internal/config"
	"networth/internal/export"
	applog "networth/internal/log"
	"networth/internal/services"
)

// networth-export dumps the ledger, the snapshot history and the daily
// balance timeline as CSV files for spreadsheet analysis or backup.
func main() {
	outDir := flag.String("out", ".", "directory for the CSV files")
	flag.Parse()

	_ = godotenv.Load()

	logger := applog.FromEnv(applog.ComponentExport)
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	ledger := services.NewLedgerService(store, nil)
	defer ledger.Close()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		logger.Error("Failed to create output directory", "error", err, "dir", *outDir)
		os.Exit(1)
	}

	txs, err := ledger.ListTransactions(ctx)
	if err != nil {
		logger.Error("Failed to list transactions", "error", err)
		os.Exit(1)
	}
	snaps, err := ledger.ListSnapshots(ctx)
	if err != nil {
		logger.Error("Failed to list snapshots", "error", err)
		os.Exit(1)
	}
	timeline, err := ledger.BuildTimeline(ctx)
	if err != nil {
		logger.Error("Failed to build timeline", "error", err)
		os.Exit(1)
	}

	files := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"transactions.csv", func(f *os.File) error { return export.WriteTransactionsCSV(f, txs) }},
		{"snapshots.csv", func(f *os.File) error { return export.WriteSnapshotsCSV(f, snaps) }},
		{"timeline.csv", func(f *os.File) error { return export.WriteTimelineCSV(f, timeline) }},
	}

	for _, out := range files {
		path := filepath.Join(*outDir, out.name)
		f, err := os.Create(path)
		if err != nil {
			logger.Error("Failed to create file", "error", err, "path", path)
			os.Exit(1)
		}
		if err := out.write(f); err != nil {
			f.Close()
			logger.Error("Failed to write CSV", "error", err, "path", path)
			os.Exit(1)
		}
		if err := f.Close(); err != nil {
			logger.Error("Failed to close file", "error", err, "path", path)
			os.Exit(1)
		}
		logger.Info("Exported", "path", path)
	}

	logger.Info("Export complete",
		"transactions", len(txs),
		"snapshots", len(snaps),
		"timeline_points", len(timeline))
}
