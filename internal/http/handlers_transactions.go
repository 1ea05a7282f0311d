package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"networth/internal/core"
)

type transactionRequest struct {
	Date     string `json:"date"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

type transactionResponse struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       t.ID,
		Date:     t.Date.String(),
		Kind:     string(t.Kind),
		Category: t.Category,
		Amount:   t.Amount.String(),
		Note:     t.Note,
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodDelete:
		s.deleteTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST, DELETE")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	date, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	t := core.Transaction{
		Date:     date,
		Kind:     core.Kind(strings.TrimSpace(req.Kind)),
		Category: strings.TrimSpace(req.Category),
		Amount:   amount,
		Note:     strings.TrimSpace(req.Note),
	}

	stored, err := s.ledger.AppendTransaction(r.Context(), t)
	if err != nil {
		if isValidationError(err) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to append transaction",
			"error", err,
			"date", req.Date,
			"kind", req.Kind,
			"amount", req.Amount)
		writeError(w, r, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	slog.InfoContext(r.Context(), "Transaction created",
		"id", stored.ID,
		"kind", stored.Kind,
		"amount", stored.Amount.String())

	writeJSON(w, r, http.StatusCreated, toTransactionResponse(stored))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSpace(r.URL.Query().Get("id"))
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid transaction id")
		return
	}

	deleted, err := s.ledger.DeleteTransaction(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "error", err, "id", id)
		writeError(w, r, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	if deleted == nil {
		// Deleting an unknown id is benign; nothing was reversed.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, r, http.StatusOK, toTransactionResponse(*deleted))
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidKind) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrEmptyCategory)
}
