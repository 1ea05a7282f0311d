package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:     NewDate(2024, 1, 1),
		Kind:     Income,
		Category: "salary",
		Amount:   decimal.NewFromInt(100),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{}, Kind: Income, Category: "c", Amount: decimal.NewFromInt(1)},
		{Date: NewDate(2024, 1, 1), Kind: "transfer", Category: "c", Amount: decimal.NewFromInt(1)},
		{Date: NewDate(2024, 1, 1), Kind: Expense, Category: "  ", Amount: decimal.NewFromInt(1)},
		{Date: NewDate(2024, 1, 1), Kind: Expense, Category: "c", Amount: decimal.NewFromInt(-5)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	// Zero amounts carry no sign and are allowed.
	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should validate, got %v", err)
	}
}

func TestKindInverse(t *testing.T) {
	if Income.Inverse() != Expense || Expense.Inverse() != Income {
		t.Fatalf("inverse kinds are wrong")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("round trip got %s", d.String())
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 12, 31)
	if d.AddDays(1).String() != "2025-01-01" {
		t.Fatalf("AddDays across year got %s", d.AddDays(1).String())
	}
	if d.MonthKey() != "2024-12" {
		t.Fatalf("MonthKey got %s", d.MonthKey())
	}
	if got := NewDate(2024, 1, 1).DaysUntil(NewDate(2024, 1, 4)); got != 3 {
		t.Fatalf("DaysUntil got %d", got)
	}
}
