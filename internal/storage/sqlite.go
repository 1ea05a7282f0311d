package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"networth/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteRepository is the default ledger store. Amounts are persisted as
// decimal strings so they round-trip exactly.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// runMigrations brings the schema up to date on a separate connection so
// migration locking does not interfere with the repository's pool.
func runMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendTransaction inserts a ledger row and applies its balance delta inside
// one database transaction: the ledger and the balance change together or not
// at all.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`INSERT INTO transactions (date, kind, category, amount, note) VALUES (?, ?, ?, ?, ?)`,
		t.Date.String(), string(t.Kind), t.Category, t.Amount.String(), t.Note)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}

	balance, err := balanceTx(ctx, dbTx)
	if err != nil {
		return core.Transaction{}, err
	}
	newBalance := core.ApplyDelta(balance, t.Kind, t.Amount)
	if err := setBalanceTx(ctx, dbTx, newBalance); err != nil {
		return core.Transaction{}, err
	}

	if err := dbTx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}

	t.ID = id
	slog.InfoContext(ctx, "Transaction appended",
		"id", t.ID,
		"date", t.Date.String(),
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"new_balance", newBalance.String())

	return t, nil
}

// DeleteTransaction removes a ledger row and reverses its balance effect in
// one database transaction. A missing id is a benign no-op returning
// (nil, nil); the caller never has to reverse anything itself.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var (
		dateStr, kind, category, amount, note string
	)
	err = dbTx.QueryRowContext(ctx,
		`SELECT date, kind, category, amount, note FROM transactions WHERE id = ?`, id).
		Scan(&dateStr, &kind, &category, &amount, &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", id, err)
	}

	t, err := rowToTransaction(id, dateStr, kind, category, amount, note)
	if err != nil {
		return nil, err
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete transaction %d: %w", id, err)
	}

	balance, err := balanceTx(ctx, dbTx)
	if err != nil {
		return nil, err
	}
	newBalance := core.ReverseDelta(balance, t.Kind, t.Amount)
	if err := setBalanceTx(ctx, dbTx, newBalance); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"id", id,
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"new_balance", newBalance.String())

	return &t, nil
}

// ListTransactions returns the full ledger sorted by date ascending, ties
// broken by insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, kind, category, amount, note FROM transactions ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			id                                    int64
			dateStr, kind, category, amount, note string
		)
		if err := rows.Scan(&id, &dateStr, &kind, &category, &amount, &note); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t, err := rowToTransaction(id, dateStr, kind, category, amount, note)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) Balance(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT amount FROM balance WHERE id = 1`).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return parseStoredDecimal(raw, "balance")
}

// SetBalance overwrites the stored balance. This is the manual override path:
// it deliberately bypasses delta reconciliation.
func (r *SQLiteRepository) SetBalance(ctx context.Context, amount decimal.Decimal) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE balance SET amount = ? WHERE id = 1`, amount.String()); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// InsertSnapshotIfAbsent records a snapshot for the given date unless one
// already exists. The UNIQUE constraint on date makes concurrent or repeated
// attempts a harmless no-op, never an update.
func (r *SQLiteRepository) InsertSnapshotIfAbsent(ctx context.Context, date core.Date, netWorth decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (date, networth) VALUES (?, ?) ON CONFLICT(date) DO NOTHING`,
		date.String(), netWorth.String())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, networth FROM snapshots ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []core.Snapshot
	for rows.Next() {
		var (
			id                int64
			dateStr, rawWorth string
		)
		if err := rows.Scan(&id, &dateStr, &rawWorth); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("snapshot %d has malformed date %q", id, dateStr)
		}
		worth, err := parseStoredDecimal(rawWorth, "networth")
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, core.Snapshot{ID: id, Date: date, NetWorth: worth})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

func balanceTx(ctx context.Context, tx *sql.Tx) (decimal.Decimal, error) {
	var raw string
	if err := tx.QueryRowContext(ctx, `SELECT amount FROM balance WHERE id = 1`).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return parseStoredDecimal(raw, "balance")
}

func setBalanceTx(ctx context.Context, tx *sql.Tx, amount decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx, `UPDATE balance SET amount = ? WHERE id = 1`, amount.String()); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func rowToTransaction(id int64, dateStr, kind, category, amount, note string) (core.Transaction, error) {
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d has malformed date %q", id, dateStr)
	}
	amt, err := parseStoredDecimal(amount, "amount")
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, err)
	}
	return core.Transaction{
		ID:       id,
		Date:     date,
		Kind:     core.Kind(kind),
		Category: category,
		Amount:   amt,
		Note:     note,
	}, nil
}

func parseStoredDecimal(raw, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed stored %s %q: %w", field, raw, err)
	}
	return d, nil
}
