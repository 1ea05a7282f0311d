package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/services"
)

// Ledger is the core surface the API serves. *services.LedgerService
// implements it.
type Ledger interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) (*core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)

	Balance(ctx context.Context) (decimal.Decimal, error)
	SetBalance(ctx context.Context, amount decimal.Decimal) error

	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	RecordTodaySnapshot(ctx context.Context) error
	ListSnapshots(ctx context.Context) ([]core.Snapshot, error)

	BuildTimeline(ctx context.Context) ([]core.TimelinePoint, error)
	MonthlySummary(ctx context.Context) ([]core.MonthlyTotal, error)
	Reconcile(ctx context.Context, start, end core.Date, cumulative bool) ([]core.PeriodRow, error)
	ReconcileWithBalance(ctx context.Context, start, end core.Date, cumulative bool) ([]core.BalanceRow, error)
	Dashboard(ctx context.Context, start, end core.Date) (services.Dashboard, error)
	ExpensesByCategory(ctx context.Context, year, month int) ([]core.CategoryTotal, error)
}

type Server struct {
	http.Server
	ledger      Ledger
	rateLimiter *rateLimiter
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{clients: make(map[string]*clientInfo)}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Prune stale clients so the map cannot grow without bound.
	if len(rl.clients) > 1024 {
		cutoff := now.Add(-10 * time.Minute)
		for ip, client := range rl.clients {
			if client.lastRequest.Before(cutoff) {
				delete(rl.clients, ip)
			}
		}
	}

	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 mutating requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, ledger Ledger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:      ledger,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/balance", s.withMiddleware(s.handleBalance))
	mux.HandleFunc("/settings", s.withMiddleware(s.handleSettings))
	mux.HandleFunc("/snapshots", s.withMiddleware(s.handleSnapshots))
	mux.HandleFunc("/timeline", s.withMiddleware(s.handleTimeline))
	mux.HandleFunc("/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("/summary/monthly", s.withMiddleware(s.handleMonthlySummary))
	mux.HandleFunc("/summary/categories", s.withMiddleware(s.handleCategorySummary))
	mux.HandleFunc("/reconcile", s.withMiddleware(s.handleReconcile))
	mux.HandleFunc("/export/transactions.csv", s.withMiddleware(s.handleExportTransactions))
	mux.HandleFunc("/export/snapshots.csv", s.withMiddleware(s.handleExportSnapshots))
	mux.HandleFunc("/export/timeline.csv", s.withMiddleware(s.handleExportTimeline))

	return s
}

// withMiddleware adds security headers, request logging, rate limiting on
// mutations and the daily snapshot touch to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		// Every core-facing interaction records today's snapshot; repeats the
		// same day are no-ops.
		if err := s.ledger.RecordTodaySnapshot(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to record daily snapshot", "error", err)
		}

		next(w, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type requestIDKey struct{}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
