package core

import "github.com/shopspring/decimal"

// ApplyDelta returns the balance after applying a transaction: income adds,
// expense subtracts. Callers must validate the kind first; anything that is
// not income is treated as an expense here.
func ApplyDelta(balance decimal.Decimal, kind Kind, amount decimal.Decimal) decimal.Decimal {
	if kind == Income {
		return balance.Add(amount)
	}
	return balance.Sub(amount)
}

// ReverseDelta undoes a previously applied transaction. It is ApplyDelta with
// the inverse kind, not a second arithmetic path: deleting an income subtracts
// it back out, deleting an expense adds it back.
func ReverseDelta(balance decimal.Decimal, kind Kind, amount decimal.Decimal) decimal.Decimal {
	return ApplyDelta(balance, kind.Inverse(), amount)
}
