package core

import "github.com/shopspring/decimal"

// BuildTimeline reconstructs the dense daily balance series from the starting
// point plus the transaction ledger. One point per calendar day from
// startingDate through the latest transaction date, carrying the balance
// forward over days without activity.
//
// An empty ledger yields nil: there is nothing to chart. If every transaction
// predates startingDate the end is clamped to startingDate so a single point
// is still emitted; transactions outside the window never touch the running
// balance.
func BuildTimeline(startingBalance decimal.Decimal, startingDate Date, txs []Transaction) []TimelinePoint {
	if len(txs) == 0 {
		return nil
	}

	end := txs[0].Date
	byDay := make(map[string][]Transaction, len(txs))
	for _, t := range txs {
		if t.Date.After(end.Time) {
			end = t.Date
		}
		key := t.Date.String()
		byDay[key] = append(byDay[key], t)
	}
	if end.Before(startingDate.Time) {
		end = startingDate
	}

	balance := startingBalance
	points := make([]TimelinePoint, 0, startingDate.DaysUntil(end)+1)
	for day := startingDate; !day.After(end.Time); day = day.AddDays(1) {
		for _, t := range byDay[day.String()] {
			balance = ApplyDelta(balance, t.Kind, t.Amount)
		}
		points = append(points, TimelinePoint{Date: day, Balance: balance})
	}
	return points
}
