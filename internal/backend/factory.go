package backend

import (
	"context"
	"fmt"
	"log/slog"

	"networth/internal/storage"
)

// Factory creates ledger stores based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateStore opens the configured storage engine and prepares its schema.
func (f *Factory) CreateStore(ctx context.Context, config Config) (Store, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return repo, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
