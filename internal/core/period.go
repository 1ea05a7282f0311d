package core

import "github.com/shopspring/decimal"

// PeriodRow is one day of a reconciled reporting window.
type PeriodRow struct {
	Date    Date
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// BalanceRow is a PeriodRow joined with the daily balance timeline.
type BalanceRow struct {
	PeriodRow
	Balance decimal.Decimal
}

// MonthWindow returns the half-open [start, end) window for a calendar month.
// December rolls the end into January of the following year.
func MonthWindow(year, month int) (Date, Date) {
	start := NewDate(year, month, 1)
	if month == 12 {
		return start, NewDate(year+1, 1, 1)
	}
	return start, NewDate(year, month+1, 1)
}

// YearWindow returns the half-open [start, end) window for a calendar year.
func YearWindow(year int) (Date, Date) {
	return NewDate(year, 1, 1), NewDate(year+1, 1, 1)
}

// Reconcile projects the ledger onto the half-open window [start, end),
// producing one row per day with per-kind sums. Days without activity carry
// explicit zeros so a window with no transactions still yields a full
// zero-valued sequence. When cumulative is set, each day holds the running
// sum from start through that day.
func Reconcile(txs []Transaction, start, end Date, cumulative bool) []PeriodRow {
	income := make(map[string]decimal.Decimal)
	expense := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Date.Before(start.Time) || !t.Date.Before(end.Time) {
			continue
		}
		key := t.Date.String()
		switch t.Kind {
		case Income:
			income[key] = income[key].Add(t.Amount)
		case Expense:
			expense[key] = expense[key].Add(t.Amount)
		}
	}

	days := start.DaysUntil(end)
	if days < 0 {
		days = 0
	}
	rows := make([]PeriodRow, 0, days)
	var runIncome, runExpense decimal.Decimal
	for day := start; day.Before(end.Time); day = day.AddDays(1) {
		key := day.String()
		if cumulative {
			runIncome = runIncome.Add(income[key])
			runExpense = runExpense.Add(expense[key])
			rows = append(rows, PeriodRow{Date: day, Income: runIncome, Expense: runExpense})
		} else {
			rows = append(rows, PeriodRow{Date: day, Income: income[key], Expense: expense[key]})
		}
	}
	return rows
}

// FillBalance left-joins the timeline onto the reconciled rows by date,
// forward-filling days without a timeline point from the prior day. Days
// before the first timeline point default to zero.
func FillBalance(rows []PeriodRow, timeline []TimelinePoint) []BalanceRow {
	byDay := make(map[string]decimal.Decimal, len(timeline))
	for _, p := range timeline {
		byDay[p.Date.String()] = p.Balance
	}

	out := make([]BalanceRow, 0, len(rows))
	var last decimal.Decimal
	for _, r := range rows {
		if b, ok := byDay[r.Date.String()]; ok {
			last = b
		}
		out = append(out, BalanceRow{PeriodRow: r, Balance: last})
	}
	return out
}
