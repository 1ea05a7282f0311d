package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/services"
)

// fakeLedger is an in-memory Ledger with the same delta semantics as the real
// service, enough to exercise the handlers.
type fakeLedger struct {
	txs       []core.Transaction
	nextID    int64
	balance   decimal.Decimal
	settings  map[string]string
	snapshots []core.Snapshot
	touched   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		nextID:   1,
		balance:  decimal.RequireFromString("100"),
		settings: map[string]string{},
	}
}

func (f *fakeLedger) AppendTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = f.nextID
	f.nextID++
	f.txs = append(f.txs, t)
	f.balance = core.ApplyDelta(f.balance, t.Kind, t.Amount)
	return t, nil
}

func (f *fakeLedger) DeleteTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	for i, t := range f.txs {
		if t.ID == id {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			f.balance = core.ReverseDelta(f.balance, t.Kind, t.Amount)
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	out := make([]core.Transaction, len(f.txs))
	copy(out, f.txs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeLedger) Balance(ctx context.Context) (decimal.Decimal, error) { return f.balance, nil }

func (f *fakeLedger) SetBalance(ctx context.Context, amount decimal.Decimal) error {
	f.balance = amount
	return nil
}

func (f *fakeLedger) Setting(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.settings[key]
	return v, ok, nil
}

func (f *fakeLedger) SetSetting(ctx context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func (f *fakeLedger) RecordTodaySnapshot(ctx context.Context) error {
	f.touched++
	return nil
}

func (f *fakeLedger) ListSnapshots(ctx context.Context) ([]core.Snapshot, error) {
	return f.snapshots, nil
}

func (f *fakeLedger) BuildTimeline(ctx context.Context) ([]core.TimelinePoint, error) {
	return core.BuildTimeline(decimal.RequireFromString("100"), mustDate("2024-01-01"), f.txs), nil
}

func (f *fakeLedger) MonthlySummary(ctx context.Context) ([]core.MonthlyTotal, error) {
	return core.MonthlySummary(f.txs), nil
}

func (f *fakeLedger) Reconcile(ctx context.Context, start, end core.Date, cumulative bool) ([]core.PeriodRow, error) {
	return core.Reconcile(f.txs, start, end, cumulative), nil
}

func (f *fakeLedger) ReconcileWithBalance(ctx context.Context, start, end core.Date, cumulative bool) ([]core.BalanceRow, error) {
	rows := core.Reconcile(f.txs, start, end, cumulative)
	timeline := core.BuildTimeline(decimal.RequireFromString("100"), mustDate("2024-01-01"), f.txs)
	return core.FillBalance(rows, timeline), nil
}

func (f *fakeLedger) Dashboard(ctx context.Context, start, end core.Date) (services.Dashboard, error) {
	totals := core.SumByKind(f.txs)
	return services.Dashboard{
		NetWorth:      decimal.RequireFromString("100").Add(totals.Income).Sub(totals.Expense),
		TotalIncome:   totals.Income,
		TotalExpense:  totals.Expense,
		PeriodIncome:  totals.Income,
		PeriodExpense: totals.Expense,
	}, nil
}

func (f *fakeLedger) ExpensesByCategory(ctx context.Context, year, month int) ([]core.CategoryTotal, error) {
	return core.ExpensesByCategory(f.txs), nil
}

func mustDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := NewServer(":0", newFakeLedger())
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateTransaction(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	rr := do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-02","kind":"income","category":"salary","amount":"50","note":"jan pay"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var resp transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != 1 || resp.Kind != "income" || resp.Amount != "50" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := ledger.balance.String(); got != "150" {
		t.Fatalf("balance after income = %s, want 150", got)
	}
}

func TestCreateTransactionRejections(t *testing.T) {
	srv := NewServer(":0", newFakeLedger())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"bad date", `{"date":"02/01/2024","kind":"income","category":"x","amount":"1"}`, http.StatusUnprocessableEntity},
		{"bad amount", `{"date":"2024-01-02","kind":"income","category":"x","amount":"abc"}`, http.StatusUnprocessableEntity},
		{"unknown kind", `{"date":"2024-01-02","kind":"transfer","category":"x","amount":"1"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"date":"2024-01-02","kind":"expense","category":"x","amount":"-5"}`, http.StatusUnprocessableEntity},
		{"empty category", `{"date":"2024-01-02","kind":"expense","category":" ","amount":"5"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/transactions", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d; body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-02","kind":"expense","category":"food","amount":"20"}`)
	if got := ledger.balance.String(); got != "80" {
		t.Fatalf("balance after expense = %s, want 80", got)
	}

	rr := do(t, srv, http.MethodDelete, "/transactions?id=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := ledger.balance.String(); got != "100" {
		t.Fatalf("balance after delete = %s, want 100", got)
	}

	// Unknown id is benign.
	rr = do(t, srv, http.MethodDelete, "/transactions?id=999", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("unknown delete status=%d, want 204", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/transactions?id=abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d, want 400", rr.Code)
	}
}

func TestListTransactionsOrder(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-03","kind":"income","category":"b","amount":"1"}`)
	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-02","kind":"income","category":"a","amount":"1"}`)

	rr := do(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp []transactionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].Date != "2024-01-02" || resp[1].Date != "2024-01-03" {
		t.Fatalf("unexpected order: %+v", resp)
	}
}

func TestBalanceOverride(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	rr := do(t, srv, http.MethodGet, "/balance", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"100"`) {
		t.Fatalf("get balance: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPut, "/balance", `{"amount":"123.45"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put balance status=%d", rr.Code)
	}
	if got := ledger.balance.String(); got != "123.45" {
		t.Fatalf("balance after override = %s", got)
	}

	rr = do(t, srv, http.MethodPut, "/balance", `{"amount":"nope"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid amount status=%d, want 422", rr.Code)
	}
}

func TestSettings(t *testing.T) {
	srv := NewServer(":0", newFakeLedger())

	rr := do(t, srv, http.MethodGet, "/settings?key=starting_balance", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing setting status=%d, want 404", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/settings", `{"key":"starting_balance","value":"250"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put setting status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/settings?key=starting_balance", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"250"`) {
		t.Fatalf("get setting: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/settings", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing key status=%d, want 400", rr.Code)
	}
}

func TestSnapshotTouchOnEveryRequest(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	do(t, srv, http.MethodGet, "/transactions", "")
	do(t, srv, http.MethodGet, "/balance", "")
	if ledger.touched != 2 {
		t.Fatalf("snapshot touches = %d, want 2", ledger.touched)
	}

	rr := do(t, srv, http.MethodPost, "/snapshots", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("explicit snapshot status=%d, want 204", rr.Code)
	}
	// Middleware touch plus the explicit handler call.
	if ledger.touched != 4 {
		t.Fatalf("snapshot touches = %d, want 4", ledger.touched)
	}
}

func TestTimelineEndpoint(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-02","kind":"income","category":"salary","amount":"50"}`)
	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-03","kind":"expense","category":"food","amount":"20"}`)

	rr := do(t, srv, http.MethodGet, "/timeline", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp []timelinePointResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 3 {
		t.Fatalf("timeline length = %d, want 3", len(resp))
	}
	want := []string{"100", "150", "130"}
	for i, p := range resp {
		if p.Balance != want[i] {
			t.Fatalf("day %d balance = %s, want %s", i, p.Balance, want[i])
		}
	}
}

func TestReconcileEndpoint(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-02","kind":"income","category":"salary","amount":"50"}`)

	rr := do(t, srv, http.MethodGet, "/reconcile?year=2024&month=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp []periodRowResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 31 {
		t.Fatalf("january rows = %d, want 31", len(resp))
	}
	if resp[1].Date != "2024-01-02" || resp[1].Income != "50" {
		t.Fatalf("unexpected row: %+v", resp[1])
	}
	if resp[0].Balance != "" {
		t.Fatalf("balance should be omitted without with_balance, got %q", resp[0].Balance)
	}

	rr = do(t, srv, http.MethodGet, "/reconcile?year=2024&month=1&with_balance=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("with_balance status=%d", rr.Code)
	}
	resp = nil
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp[1].Balance != "150" {
		t.Fatalf("balance on 2024-01-02 = %s, want 150", resp[1].Balance)
	}
}

func TestReconcileYearScope(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	rr := do(t, srv, http.MethodGet, "/reconcile?year=2023&scope=year", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp []periodRowResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 365 {
		t.Fatalf("2023 rows = %d, want 365", len(resp))
	}
}

func TestDashboardEndpoint(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-02","kind":"income","category":"salary","amount":"50"}`)
	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-03","kind":"expense","category":"food","amount":"20"}`)

	rr := do(t, srv, http.MethodGet, "/dashboard?year=2024&month=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp dashboardResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.NetWorth != "130" || resp.TotalIncome != "50" || resp.TotalExpense != "20" {
		t.Fatalf("unexpected dashboard: %+v", resp)
	}
}

func TestExportTransactionsCSV(t *testing.T) {
	ledger := newFakeLedger()
	srv := NewServer(":0", ledger)

	do(t, srv, http.MethodPost, "/transactions",
		`{"date":"2024-01-02","kind":"income","category":"salary","amount":"50","note":"jan"}`)

	rr := do(t, srv, http.MethodGet, "/export/transactions.csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions.csv") {
		t.Fatalf("content disposition = %q", cd)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "id,date,kind,category,amount,note\n") {
		t.Fatalf("missing header: %q", body)
	}
	if !strings.Contains(body, "1,2024-01-02,income,salary,50,jan") {
		t.Fatalf("missing row: %q", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer(":0", newFakeLedger())

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/transactions"},
		{http.MethodPost, "/balance"},
		{http.MethodDelete, "/settings"},
		{http.MethodPost, "/timeline"},
		{http.MethodPost, "/reconcile"},
		{http.MethodPost, "/export/transactions.csv"},
	}
	for _, tt := range tests {
		rr := do(t, srv, tt.method, tt.path, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s status=%d, want 405", tt.method, tt.path, rr.Code)
		}
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := NewServer(":0", newFakeLedger())

	var last int
	for i := 0; i < 70; i++ {
		rr := do(t, srv, http.MethodPost, "/transactions",
			`{"date":"2024-01-02","kind":"income","category":"x","amount":"1"}`)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status after 70 mutations = %d, want 429", last)
	}

	// Reads are never rate limited.
	rr := do(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("read after limit status=%d, want 200", rr.Code)
	}
}
