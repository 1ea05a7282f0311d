package http

import (
	"log/slog"
	"net/http"
	"strings"

	"networth/internal/core"
)

type timelinePointResponse struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	points, err := s.ledger.BuildTimeline(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build timeline", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to build timeline")
		return
	}

	out := make([]timelinePointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, timelinePointResponse{Date: p.Date.String(), Balance: p.Balance.String()})
	}
	writeJSON(w, r, http.StatusOK, out)
}

type dashboardResponse struct {
	NetWorth      string `json:"networth"`
	TotalIncome   string `json:"total_income"`
	TotalExpense  string `json:"total_expense"`
	PeriodIncome  string `json:"period_income"`
	PeriodExpense string `json:"period_expense"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year, month := parseYearMonth(r)
	start, end := core.MonthWindow(year, month)

	dash, err := s.ledger.Dashboard(r.Context(), start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build dashboard", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	writeJSON(w, r, http.StatusOK, dashboardResponse{
		NetWorth:      dash.NetWorth.String(),
		TotalIncome:   dash.TotalIncome.String(),
		TotalExpense:  dash.TotalExpense.String(),
		PeriodIncome:  dash.PeriodIncome.String(),
		PeriodExpense: dash.PeriodExpense.String(),
	})
}

type monthlyTotalResponse struct {
	Month string `json:"month"`
	Kind  string `json:"kind"`
	Total string `json:"total"`
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	summary, err := s.ledger.MonthlySummary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build monthly summary", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to build monthly summary")
		return
	}

	out := make([]monthlyTotalResponse, 0, len(summary))
	for _, m := range summary {
		out = append(out, monthlyTotalResponse{Month: m.Month, Kind: string(m.Kind), Total: m.Total.String()})
	}
	writeJSON(w, r, http.StatusOK, out)
}

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year, month := parseYearMonth(r)
	totals, err := s.ledger.ExpensesByCategory(r.Context(), year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build category summary", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to build category summary")
		return
	}

	out := make([]categoryTotalResponse, 0, len(totals))
	for _, c := range totals {
		out = append(out, categoryTotalResponse{Category: c.Category, Total: c.Total.String()})
	}
	writeJSON(w, r, http.StatusOK, out)
}

type periodRowResponse struct {
	Date    string `json:"date"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance,omitempty"`
}

// handleReconcile serves the income/expense series for a month window, or a
// year window when scope=year. Optional flags: cumulative, with_balance.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year, month := parseYearMonth(r)
	var start, end core.Date
	if strings.EqualFold(r.URL.Query().Get("scope"), "year") {
		start, end = core.YearWindow(year)
	} else {
		start, end = core.MonthWindow(year, month)
	}
	cumulative := queryFlag(r, "cumulative")

	if queryFlag(r, "with_balance") {
		rows, err := s.ledger.ReconcileWithBalance(r.Context(), start, end, cumulative)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to reconcile period", "error", err)
			writeError(w, r, http.StatusInternalServerError, "failed to reconcile period")
			return
		}
		out := make([]periodRowResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, periodRowResponse{
				Date:    row.Date.String(),
				Income:  row.Income.String(),
				Expense: row.Expense.String(),
				Balance: row.Balance.String(),
			})
		}
		writeJSON(w, r, http.StatusOK, out)
		return
	}

	rows, err := s.ledger.Reconcile(r.Context(), start, end, cumulative)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to reconcile period", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to reconcile period")
		return
	}
	out := make([]periodRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, periodRowResponse{
			Date:    row.Date.String(),
			Income:  row.Income.String(),
			Expense: row.Expense.String(),
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}
