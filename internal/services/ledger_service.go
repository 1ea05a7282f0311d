package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/amqp"
	"networth/internal/backend"
	"networth/internal/cache"
	"networth/internal/core"
)

const txCacheKey = "transactions"

// EventPublisher publishes ledger events to the optional message stream.
// *amqp.Client satisfies it; a nil publisher disables the stream.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger mutations across the store, the daily
// snapshot recorder and the event stream.
type LedgerService struct {
	store     backend.Store
	publisher EventPublisher

	// txCache holds the full ledger between mutations; every derived report
	// reads it.
	txCache *cache.LRU[[]core.Transaction]

	// today is injectable so snapshot idempotence is testable.
	today func() core.Date
}

func NewLedgerService(store backend.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		txCache:   cache.NewLRU[[]core.Transaction](1, 30*time.Second),
		today:     core.Today,
	}
}

// transactions reads the ledger through the cache. Mutations invalidate it.
func (s *LedgerService) transactions(ctx context.Context) ([]core.Transaction, error) {
	if txs, ok := s.txCache.Get(txCacheKey); ok {
		return txs, nil
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	s.txCache.Set(txCacheKey, txs)
	return txs, nil
}

// AppendTransaction validates and stores a new ledger entry. The store applies
// the balance delta atomically with the insert; afterwards today's snapshot is
// recorded and a created event is published, both best effort.
func (s *LedgerService) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	stored, err := s.store.AppendTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	s.txCache.Delete(txCacheKey)
	s.recordTodayBestEffort(ctx)
	s.publishTransactionEvent(ctx, amqp.EventTransactionCreated, stored)

	return stored, nil
}

// DeleteTransaction removes a ledger entry, reversing its balance effect.
// Deleting an unknown id is a no-op returning (nil, nil).
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	deleted, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete transaction: %w", err)
	}
	if deleted == nil {
		slog.InfoContext(ctx, "Delete of unknown transaction ignored", "id", id)
		return nil, nil
	}

	s.txCache.Delete(txCacheKey)
	s.recordTodayBestEffort(ctx)
	s.publishTransactionEvent(ctx, amqp.EventTransactionDeleted, *deleted)

	return deleted, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.transactions(ctx)
}

func (s *LedgerService) Balance(ctx context.Context) (decimal.Decimal, error) {
	return s.store.Balance(ctx)
}

// SetBalance is the manual override path. It bypasses delta reconciliation by
// design and is never auto-corrected back to the ledger-derived value.
func (s *LedgerService) SetBalance(ctx context.Context, amount decimal.Decimal) error {
	if err := s.store.SetBalance(ctx, amount); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}

	s.recordTodayBestEffort(ctx)

	event := amqp.NewLedgerEvent(amqp.EventBalanceOverridden)
	event.Balance = amount.String()
	s.publishBestEffort(ctx, event)

	return nil
}

func (s *LedgerService) Setting(ctx context.Context, key string) (string, bool, error) {
	return s.store.Setting(ctx, key)
}

func (s *LedgerService) SetSetting(ctx context.Context, key, value string) error {
	return s.store.SetSetting(ctx, key, value)
}

// StartingBalance returns the configured timeline starting balance, falling
// back to the default when the setting is absent.
func (s *LedgerService) StartingBalance(ctx context.Context) (decimal.Decimal, error) {
	raw, ok, err := s.store.Setting(ctx, core.SettingStartingBalance)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok || raw == "" {
		raw = core.DefaultStartingBalance
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed %s setting %q: %w", core.SettingStartingBalance, raw, err)
	}
	return d, nil
}

// StartingDate returns the configured timeline starting date, falling back to
// the default epoch when the setting is absent.
func (s *LedgerService) StartingDate(ctx context.Context) (core.Date, error) {
	raw, ok, err := s.store.Setting(ctx, core.SettingStartingDate)
	if err != nil {
		return core.Date{}, err
	}
	if !ok || raw == "" {
		raw = core.DefaultStartingDate
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("malformed %s setting %q: %w", core.SettingStartingDate, raw, err)
	}
	return d, nil
}

// RecordTodaySnapshot records today's net worth once. Calling it again the
// same day leaves the first observation untouched even if the balance has
// moved since: a snapshot is the first reading of the day, not a closing
// balance.
func (s *LedgerService) RecordTodaySnapshot(ctx context.Context) error {
	balance, err := s.store.Balance(ctx)
	if err != nil {
		return fmt.Errorf("read balance for snapshot: %w", err)
	}

	today := s.today()
	if err := s.store.InsertSnapshotIfAbsent(ctx, today, balance); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	event := amqp.NewLedgerEvent(amqp.EventSnapshotRecorded)
	event.Date = today.String()
	event.Balance = balance.String()
	s.publishBestEffort(ctx, event)

	return nil
}

func (s *LedgerService) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	return s.store.ListSnapshots(ctx)
}

// BuildTimeline loads the starting point and the ledger, then derives the
// dense daily balance series.
func (s *LedgerService) BuildTimeline(ctx context.Context) ([]core.TimelinePoint, error) {
	startingBalance, err := s.StartingBalance(ctx)
	if err != nil {
		return nil, err
	}
	startingDate, err := s.StartingDate(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.BuildTimeline(startingBalance, startingDate, txs), nil
}

func (s *LedgerService) MonthlySummary(ctx context.Context) ([]core.MonthlyTotal, error) {
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.MonthlySummary(txs), nil
}

// Reconcile projects the ledger onto the window [start, end).
func (s *LedgerService) Reconcile(ctx context.Context, start, end core.Date, cumulative bool) ([]core.PeriodRow, error) {
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.Reconcile(txs, start, end, cumulative), nil
}

// ReconcileWithBalance additionally joins the daily balance timeline onto the
// window, forward-filling days the timeline does not cover.
func (s *LedgerService) ReconcileWithBalance(ctx context.Context, start, end core.Date, cumulative bool) ([]core.BalanceRow, error) {
	startingBalance, err := s.StartingBalance(ctx)
	if err != nil {
		return nil, err
	}
	startingDate, err := s.StartingDate(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}

	rows := core.Reconcile(txs, start, end, cumulative)
	timeline := core.BuildTimeline(startingBalance, startingDate, txs)
	return core.FillBalance(rows, timeline), nil
}

// Dashboard summarises live net worth plus all-time and selected-period
// totals.
type Dashboard struct {
	NetWorth      decimal.Decimal
	TotalIncome   decimal.Decimal
	TotalExpense  decimal.Decimal
	PeriodIncome  decimal.Decimal
	PeriodExpense decimal.Decimal
}

// Dashboard computes the live net worth as starting balance plus the signed
// ledger sum, independent of the stored balance scalar.
func (s *LedgerService) Dashboard(ctx context.Context, start, end core.Date) (Dashboard, error) {
	startingBalance, err := s.StartingBalance(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	txs, err := s.transactions(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	totals := core.SumByKind(txs)
	var inWindow []core.Transaction
	for _, t := range txs {
		if !t.Date.Before(start.Time) && t.Date.Before(end.Time) {
			inWindow = append(inWindow, t)
		}
	}
	period := core.SumByKind(inWindow)

	return Dashboard{
		NetWorth:      startingBalance.Add(totals.Income).Sub(totals.Expense),
		TotalIncome:   totals.Income,
		TotalExpense:  totals.Expense,
		PeriodIncome:  period.Income,
		PeriodExpense: period.Expense,
	}, nil
}

// ExpensesByCategory sums the expenses of one calendar month per category.
func (s *LedgerService) ExpensesByCategory(ctx context.Context, year, month int) ([]core.CategoryTotal, error) {
	txs, err := s.transactions(ctx)
	if err != nil {
		return nil, err
	}
	start, end := core.MonthWindow(year, month)
	var inWindow []core.Transaction
	for _, t := range txs {
		if !t.Date.Before(start.Time) && t.Date.Before(end.Time) {
			inWindow = append(inWindow, t)
		}
	}
	return core.ExpensesByCategory(inWindow), nil
}

// Close closes the store and the event publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if closer, ok := s.publisher.(interface{ Close() error }); ok && closer != nil {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}

// recordTodayBestEffort records the daily snapshot after a mutation. The
// mutation is already committed, so a snapshot failure is logged rather than
// surfaced.
func (s *LedgerService) recordTodayBestEffort(ctx context.Context) {
	if err := s.RecordTodaySnapshot(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to record daily snapshot", "error", err)
	}
}

func (s *LedgerService) publishTransactionEvent(ctx context.Context, eventType string, t core.Transaction) {
	event := amqp.NewLedgerEvent(eventType)
	event.TransactionID = t.ID
	event.Date = t.Date.String()
	event.Kind = string(t.Kind)
	event.Amount = t.Amount.String()
	s.publishBestEffort(ctx, event)
}

func (s *LedgerService) publishBestEffort(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", event.Type, "error", err)
	}
}
