// Package export serializes ledger data to CSV. It is a pure projection of
// the store's output; no aggregation happens here.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"networth/internal/core"
)

func WriteTransactionsCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "date", "kind", "category", "amount", "note"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range txs {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.Date.String(),
			string(t.Kind),
			t.Category,
			t.Amount.String(),
			t.Note,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write transaction %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteSnapshotsCSV(w io.Writer, snaps []core.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "date", "networth"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range snaps {
		record := []string{
			strconv.FormatInt(s.ID, 10),
			s.Date.String(),
			s.NetWorth.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write snapshot %d: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteTimelineCSV(w io.Writer, points []core.TimelinePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "balance"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range points {
		if err := cw.Write([]string{p.Date.String(), p.Balance.String()}); err != nil {
			return fmt.Errorf("write point %s: %w", p.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
