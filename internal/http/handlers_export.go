package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"networth/internal/export"
)

func setCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to export transactions", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to export transactions")
		return
	}

	setCSVHeaders(w, "transactions.csv")
	if err := export.WriteTransactionsCSV(w, txs); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write transactions CSV", "error", err)
	}
}

func (s *Server) handleExportSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	snaps, err := s.ledger.ListSnapshots(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to export snapshots", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to export snapshots")
		return
	}

	setCSVHeaders(w, "snapshots.csv")
	if err := export.WriteSnapshotsCSV(w, snaps); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write snapshots CSV", "error", err)
	}
}

func (s *Server) handleExportTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	points, err := s.ledger.BuildTimeline(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to export timeline", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to export timeline")
		return
	}

	setCSVHeaders(w, "timeline.csv")
	if err := export.WriteTimelineCSV(w, points); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write timeline CSV", "error", err)
	}
}
