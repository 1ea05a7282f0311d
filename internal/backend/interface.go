package backend

import (
	"context"

	"github.com/shopspring/decimal"

	"networth/internal/core"
)

// Store is the data-access contract the core exposes to every collaborator.
// Both storage engines implement it with identical semantics.
type Store interface {
	// AppendTransaction inserts a ledger row and applies its balance delta
	// atomically, returning the stored row with its id.
	AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)

	// DeleteTransaction removes a row and reverses its balance effect
	// atomically. A missing id returns (nil, nil).
	DeleteTransaction(ctx context.Context, id int64) (*core.Transaction, error)

	// ListTransactions returns the ledger sorted by date ascending, insertion
	// order within a day.
	ListTransactions(ctx context.Context) ([]core.Transaction, error)

	Balance(ctx context.Context) (decimal.Decimal, error)
	SetBalance(ctx context.Context, amount decimal.Decimal) error

	Setting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error

	// InsertSnapshotIfAbsent records at most one snapshot per calendar date;
	// repeats are no-ops.
	InsertSnapshotIfAbsent(ctx context.Context, date core.Date, netWorth decimal.Decimal) error
	ListSnapshots(ctx context.Context) ([]core.Snapshot, error)

	Close() error
}

// BackendType represents the storage engine backing the ledger.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string
}
