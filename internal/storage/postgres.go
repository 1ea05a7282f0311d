package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"networth/internal/core"
)

// PostgresRepository is the hosted-database variant of the ledger store,
// selected via DATABASE_URL. Schema and semantics match the SQLite backend.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := &PostgresRepository{pool: pool}
	if err := repo.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return repo, nil
}

func (r *PostgresRepository) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			date TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
			category TEXT NOT NULL,
			amount TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id BIGSERIAL PRIMARY KEY,
			date TEXT NOT NULL UNIQUE,
			networth TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS balance (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			amount TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`INSERT INTO balance (id, amount) VALUES (1, '0') ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO settings (key, value) VALUES ('starting_balance', '0') ON CONFLICT (key) DO NOTHING`,
		`INSERT INTO settings (key, value) VALUES ('starting_date', '2026-01-01') ON CONFLICT (key) DO NOTHING`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	err = dbTx.QueryRow(ctx,
		`INSERT INTO transactions (date, kind, category, amount, note) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		t.Date.String(), string(t.Kind), t.Category, t.Amount.String(), t.Note).Scan(&t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	var raw string
	if err := dbTx.QueryRow(ctx, `SELECT amount FROM balance WHERE id = 1`).Scan(&raw); err != nil {
		return core.Transaction{}, fmt.Errorf("get balance: %w", err)
	}
	balance, err := parseStoredDecimal(raw, "balance")
	if err != nil {
		return core.Transaction{}, err
	}
	newBalance := core.ApplyDelta(balance, t.Kind, t.Amount)
	if _, err := dbTx.Exec(ctx, `UPDATE balance SET amount = $1 WHERE id = 1`, newBalance.String()); err != nil {
		return core.Transaction{}, fmt.Errorf("set balance: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return core.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction appended",
		"id", t.ID,
		"date", t.Date.String(),
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"new_balance", newBalance.String())

	return t, nil
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	var dateStr, kind, category, amount, note string
	err = dbTx.QueryRow(ctx,
		`SELECT date, kind, category, amount, note FROM transactions WHERE id = $1`, id).
		Scan(&dateStr, &kind, &category, &amount, &note)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", id, err)
	}

	t, err := rowToTransaction(id, dateStr, kind, category, amount, note)
	if err != nil {
		return nil, err
	}

	if _, err := dbTx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete transaction %d: %w", id, err)
	}

	var raw string
	if err := dbTx.QueryRow(ctx, `SELECT amount FROM balance WHERE id = 1`).Scan(&raw); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	balance, err := parseStoredDecimal(raw, "balance")
	if err != nil {
		return nil, err
	}
	newBalance := core.ReverseDelta(balance, t.Kind, t.Amount)
	if _, err := dbTx.Exec(ctx, `UPDATE balance SET amount = $1 WHERE id = 1`, newBalance.String()); err != nil {
		return nil, fmt.Errorf("set balance: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"id", id,
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"new_balance", newBalance.String())

	return &t, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx,
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

func (r *PostgresRepository) Balance(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	if err := r.pool.QueryRow(ctx, `SELECT amount FROM balance WHERE id = 1`).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return parseStoredDecimal(raw, "balance")
}

func (r *PostgresRepository) SetBalance(ctx context.Context, amount decimal.Decimal) error {
	if _, err := r.pool.Exec(ctx, `UPDATE balance SET amount = $1 WHERE id = 1`, amount.String()); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *PostgresRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (r *PostgresRepository) InsertSnapshotIfAbsent(ctx context.Context, date core.Date, netWorth decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO snapshots (date, networth) VALUES ($1, $2) ON CONFLICT (date) DO NOTHING`,
		date.String(), netWorth.String())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, date, networth FROM snapshots ORDER BY date ASC`)
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
