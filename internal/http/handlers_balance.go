package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

type balanceResponse struct {
	Amount string `json:"amount"`
}

type balanceRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		balance, err := s.ledger.Balance(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to read balance", "error", err)
			writeError(w, r, http.StatusInternalServerError, "failed to read balance")
			return
		}
		writeJSON(w, r, http.StatusOK, balanceResponse{Amount: balance.String()})

	case http.MethodPut:
		var req balanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "malformed request body")
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid amount")
			return
		}

		// Manual override: accepted as-is, no reconciliation against the ledger.
		if err := s.ledger.SetBalance(r.Context(), amount); err != nil {
			slog.ErrorContext(r.Context(), "Failed to override balance", "error", err)
			writeError(w, r, http.StatusInternalServerError, "failed to set balance")
			return
		}

		slog.InfoContext(r.Context(), "Balance manually overridden", "amount", amount.String())
		writeJSON(w, r, http.StatusOK, balanceResponse{Amount: amount.String()})

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

type settingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		key := strings.TrimSpace(r.URL.Query().Get("key"))
		if key == "" {
			writeError(w, r, http.StatusBadRequest, "missing key")
			return
		}
		value, ok, err := s.ledger.Setting(r.Context(), key)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to read setting", "error", err, "key", key)
			writeError(w, r, http.StatusInternalServerError, "failed to read setting")
			return
		}
		if !ok {
			writeError(w, r, http.StatusNotFound, "setting not found")
			return
		}
		writeJSON(w, r, http.StatusOK, settingResponse{Key: key, Value: value})

	case http.MethodPut:
		var req settingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "malformed request body")
			return
		}
		key := strings.TrimSpace(req.Key)
		if key == "" {
			writeError(w, r, http.StatusUnprocessableEntity, "missing key")
			return
		}
		if err := s.ledger.SetSetting(r.Context(), key, req.Value); err != nil {
			slog.ErrorContext(r.Context(), "Failed to save setting", "error", err, "key", key)
			writeError(w, r, http.StatusInternalServerError, "failed to save setting")
			return
		}
		writeJSON(w, r, http.StatusOK, settingResponse{Key: key, Value: req.Value})

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}
