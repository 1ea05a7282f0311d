package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Well-known settings keys and their defaults.
const (
	SettingStartingBalance = "starting_balance"
	SettingStartingDate    = "starting_date"

	DefaultStartingBalance = "0"
	DefaultStartingDate    = "2026-01-01"
)

type (
	// Kind is the transaction direction. The sign of a movement lives here,
	// never in the amount.
	Kind string

	Date struct {
		time.Time
	}

	// Transaction is one ledger entry. Immutable once created except for
	// deletion.
	Transaction struct {
		ID       int64
		Date     Date
		Kind     Kind
		Category string
		Amount   decimal.Decimal
		Note     string
	}

	// Snapshot is a once-per-day point-in-time record of net worth.
	Snapshot struct {
		ID       int64
		Date     Date
		NetWorth decimal.Decimal
	}

	// TimelinePoint is one day of the derived daily balance series.
	TimelinePoint struct {
		Date    Date
		Balance decimal.Decimal
	}
)

var (
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
)

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Inverse returns the opposite kind. Deleting a transaction reverses its
// balance effect by applying the delta of the inverse kind.
func (k Kind) Inverse() Kind {
	if k == Income {
		return Expense
	}
	return Income
}

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date at UTC midnight.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM key used for monthly grouping.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time) / (24 * time.Hour))
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
