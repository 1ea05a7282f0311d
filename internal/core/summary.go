package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MonthlyTotal is the summed amount for one (month, kind) group.
type MonthlyTotal struct {
	Month string // YYYY-MM
	Kind  Kind
	Total decimal.Decimal
}

// CategoryTotal is the summed amount for one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Totals holds the all-time income and expense sums over a ledger.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// MonthlySummary groups the ledger by calendar month and kind, summing
// amounts. The result is sorted by month ascending, kind ascending. An empty
// ledger yields an empty result.
func MonthlySummary(txs []Transaction) []MonthlyTotal {
	type key struct {
		month string
		kind  Kind
	}
	sums := make(map[key]decimal.Decimal)
	for _, t := range txs {
		k := key{month: t.Date.MonthKey(), kind: t.Kind}
		sums[k] = sums[k].Add(t.Amount)
	}

	out := make([]MonthlyTotal, 0, len(sums))
	for k, total := range sums {
		out = append(out, MonthlyTotal{Month: k.month, Kind: k.kind, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// SumByKind returns the all-time income and expense totals.
func SumByKind(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Kind {
		case Income:
			t.Income = t.Income.Add(tx.Amount)
		case Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	return t
}

// ExpensesByCategory sums expense amounts per category over the given
// transactions, sorted by descending total then category name.
func ExpensesByCategory(txs []Transaction) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Kind != Expense {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}

	out := make([]CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out
}
