package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/budget"
	"github.com/fatali-fataliyev/finance_tracker/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler http.Handler
	bt      *budget.BudgetTracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	bt := budget.NewBudgetTracker(storage.NewInMemoryStorage(),
		budget.WithClock(func() time.Time { return fixedNow }),
	)
	mux := http.NewServeMux()
	NewApi(&bt).Register(mux)
	return &testServer{t: t, handler: TraceMiddleware(mux), bt: &bt}
}

// do sends a request and decodes the JSON response into out when out is not nil.
func (ts *testServer) do(method, path, token string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&reader).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func (ts *testServer) register(username string) string {
	ts.t.Helper()
	var resp UserCreatedResponse
	rec := ts.do("POST", "/api/register", "", SaveUserRequest{UserName: username, Password: "secure123"}, &resp)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(ts.t, resp.Token)
	return resp.Token
}

func (ts *testServer) createTxn(token string, req CreateTransactionRequest) TransactionItem {
	ts.t.Helper()
	var item TransactionItem
	rec := ts.do("POST", "/api/transaction", token, req, &item)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return item
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp appErrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Code
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.register("alice")

	rec := ts.do("POST", "/api/register", "", SaveUserRequest{UserName: "alice", Password: "secure123"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, appErrors.ErrConflict, errorCode(t, rec))

	rec = ts.do("POST", "/api/register", "", SaveUserRequest{UserName: "bad name!", Password: "secure123"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("POST", "/api/login", "", UserLoginRequest{UserName: "alice", Password: "wrong-pass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrAuth, errorCode(t, rec))

	var login LoginResponse
	rec = ts.do("POST", "/api/login", "", UserLoginRequest{UserName: "alice", Password: "secure123"}, &login)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, login.Token)

	var account AccountResponse
	rec = ts.do("GET", "/api/account", "Bearer "+login.Token, nil, &account)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", account.Username)
	assert.False(t, account.IsAdmin)
	assert.Equal(t, "0.00", account.NetPosition)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"unknown token", "not-a-real-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do("GET", "/api/transaction", tt.token, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, appErrors.ErrAuth, errorCode(t, rec))
		})
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")

	rec := ts.do("GET", "/api/logout", token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("GET", "/api/account", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRemoveAccount(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")

	rec := ts.do("POST", "/api/remove-account", token, DeleteAccountRequest{Password: "wrong-pass"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("POST", "/api/remove-account", token, DeleteAccountRequest{Password: "secure123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("GET", "/api/account", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCategories(t *testing.T) {
	ts := newTestServer(t)
	var resp CategoriesResponse
	rec := ts.do("GET", "/api/categories", "", nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp.Income, "Salary")
	assert.Contains(t, resp.Expense, "Subscription - Internet/Digital")
	assert.NotContains(t, resp.Income, "Food - Groceries")
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")
	other := ts.register("bob")

	created := ts.createTxn(token, CreateTransactionRequest{
		Date: "2024-03-10", Kind: "expense", Category: "Food - Groceries", Amount: "12,50", Description: "weekly shop",
	})
	assert.Equal(t, "12.50", created.Amount)
	assert.Equal(t, "weekly shop", created.Name)
	path := "/api/transaction/" + itoa(created.ID)

	undated := ts.createTxn(token, CreateTransactionRequest{Kind: "income", Category: "Salary", Amount: "1000"})
	assert.Equal(t, "2024-03-15", undated.Date)

	var list ListTransactionResponse
	rec := ts.do("GET", "/api/transaction?kind=expense", token, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, created.ID, list.Transactions[0].ID)

	rec = ts.do("GET", "/api/transaction?period=2024-03", token, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, undated.ID, list.Transactions[0].ID)

	var updated TransactionItem
	rec = ts.do("PUT", path, token, UpdateTransactionRequest{Field: "amount", Value: "20.00"}, &updated)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "20.00", updated.Amount)

	var fetched TransactionItem
	rec = ts.do("GET", path, token, nil, &fetched)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20.00", fetched.Amount)

	rec = ts.do("GET", path, other, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do("DELETE", path, token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("GET", path, token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, appErrors.ErrNotFound, errorCode(t, rec))
}

func TestTransactionErrors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")
	item := ts.createTxn(token, CreateTransactionRequest{Date: "2024-03-01", Kind: "income", Category: "Salary", Amount: "100"})

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed date", "POST", "/api/transaction", CreateTransactionRequest{Date: "2024-02-30", Kind: "expense", Category: "Health", Amount: "5"}, 422, appErrors.ErrMalformedDate},
		{"unknown kind", "POST", "/api/transaction", CreateTransactionRequest{Kind: "gift", Category: "Health", Amount: "5"}, 400, appErrors.ErrInvalidInput},
		{"category of other kind", "POST", "/api/transaction", CreateTransactionRequest{Kind: "income", Category: "Health", Amount: "5"}, 400, appErrors.ErrInvalidInput},
		{"bad amount", "POST", "/api/transaction", CreateTransactionRequest{Kind: "expense", Category: "Health", Amount: "abc"}, 400, appErrors.ErrInvalidInput},
		{"bad period filter", "GET", "/api/transaction?period=2024-13", nil, 400, appErrors.ErrInvalidInput},
		{"unknown category filter", "GET", "/api/transaction?category=Pets", nil, 400, appErrors.ErrInvalidInput},
		{"non numeric id", "GET", "/api/transaction/abc", nil, 400, appErrors.ErrInvalidInput},
		{"unknown update field", "PUT", "/api/transaction/" + itoa(item.ID), UpdateTransactionRequest{Field: "owner", Value: "bob"}, 400, appErrors.ErrInvalidInput},
		{"kind change breaks category", "PUT", "/api/transaction/" + itoa(item.ID), UpdateTransactionRequest{Field: "kind", Value: "expense"}, 400, appErrors.ErrInvalidInput},
		{"delete missing", "DELETE", "/api/transaction/9999", nil, 404, appErrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, token, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestLimitsAndBudget(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-03-01", Kind: "income", Category: "Salary", Amount: "1000"})
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-03-10", Kind: "expense", Category: "Food - Groceries", Amount: "450"})
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-02-10", Kind: "expense", Category: "Food - Groceries", Amount: "900"})

	var limit LimitItem
	rec := ts.do("PUT", "/api/limit", token, SetLimitRequest{Category: "Food - Groceries", Amount: "500"}, &limit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "500.00", limit.Amount)

	rec = ts.do("PUT", "/api/limit", token, SetLimitRequest{Category: "Salary", Amount: "500"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var limits ListLimitsResponse
	rec = ts.do("GET", "/api/limit", token, nil, &limits)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, limits.Limits, 1)

	var report BudgetResponse
	rec = ts.do("GET", "/api/budget", token, nil, &report)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03", report.Period)
	require.Len(t, report.Evaluations, 1)
	assert.Equal(t, "warning", report.Evaluations[0].Status)
	assert.Equal(t, "50.00", report.Evaluations[0].Remaining)
	require.NotNil(t, report.Advice)
	assert.Equal(t, "warning", report.Advice.Status)

	rec = ts.do("GET", "/api/budget?period=2024-02", token, nil, &report)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "exceeded", report.Evaluations[0].Status)
	assert.Equal(t, float64(100), report.Evaluations[0].DisplayPercent)

	rec = ts.do("GET", "/api/budget?period=March", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("DELETE", "/api/limit?category="+url.QueryEscape("Food - Groceries"), token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("DELETE", "/api/limit?category="+url.QueryEscape("Food - Groceries"), token, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do("DELETE", "/api/limit", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	report = BudgetResponse{}
	rec = ts.do("GET", "/api/budget", token, nil, &report)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, report.Evaluations)
	assert.Nil(t, report.Advice)
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-03-01", Kind: "income", Category: "Salary", Amount: "1000"})
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-03-10", Kind: "expense", Category: "Food - Groceries", Amount: "300"})
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-01-05", Kind: "expense", Category: "Health", Amount: "100"})

	var dash DashboardResponse
	rec := ts.do("GET", "/api/dashboard", token, nil, &dash)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03", dash.Period)
	assert.Equal(t, "1000.00", dash.Month.Income)
	assert.Equal(t, "300.00", dash.Month.Expense)
	assert.Equal(t, "700.00", dash.Month.Net)
	assert.True(t, dash.Month.IsProfit)
	assert.Equal(t, "600.00", dash.AllTime.Net)
	require.Len(t, dash.Distribution, 1)
	assert.Equal(t, "Food - Groceries", dash.Distribution[0].Category)
	assert.NotEmpty(t, dash.Daily)
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-01-20", Kind: "expense", Category: "Subscription - Internet/Digital", Amount: "9.99", Description: "Streaming"})
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-02-01", Kind: "expense", Category: "Housing - Rent", Amount: "700", Recurring: true})
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-03-02", Kind: "expense", Category: "Health", Amount: "40"})

	var resp SubscriptionsResponse
	rec := ts.do("GET", "/api/subscriptions", token, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Subscriptions, 2)

	byCategory := map[string]SubscriptionItem{}
	for _, s := range resp.Subscriptions {
		byCategory[s.Category] = s
	}
	streaming := byCategory["Subscription - Internet/Digital"]
	assert.Equal(t, "Streaming", streaming.Name)
	assert.Equal(t, "2024-03-20", streaming.NextDue)
	assert.Equal(t, 5, streaming.DaysLeft)
	assert.Equal(t, "imminent", streaming.Status)

	rent := byCategory["Housing - Rent"]
	assert.Equal(t, "2024-04-01", rent.NextDue)
	assert.Equal(t, 17, rent.DaysLeft)
	assert.Equal(t, "approaching", rent.Status)

	assert.Equal(t, "709.99", resp.MonthlyTotal)
	assert.Empty(t, resp.Omitted)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("alice")
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-03-01", Kind: "income", Category: "Salary", Amount: "1000"})
	ts.createTxn(token, CreateTransactionRequest{Date: "2024-01-05", Kind: "expense", Category: "Health", Amount: "100"})

	var periods ReportPeriodsResponse
	rec := ts.do("GET", "/api/reports", token, nil, &periods)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2024-03", "2024-01"}, periods.Periods)

	var report MonthlyReportResponse
	rec = ts.do("GET", "/api/reports/2024-01", token, nil, &report)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01", report.Period)
	require.Len(t, report.Transactions, 1)
	assert.Equal(t, "-100.00", report.Totals.Net)
	assert.False(t, report.Totals.IsProfit)

	rec = ts.do("GET", "/api/reports/2024-1", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.bt.EnsureAdmin(context.Background(), "root", "rootpass1"))

	var login LoginResponse
	rec := ts.do("POST", "/api/login", "", UserLoginRequest{UserName: "root", Password: "rootpass1"}, &login)
	require.Equal(t, http.StatusOK, rec.Code)
	admin := login.Token

	alice := ts.register("alice")
	ts.createTxn(alice, CreateTransactionRequest{Date: "2024-03-01", Kind: "income", Category: "Salary", Amount: "1000"})

	rec = ts.do("GET", "/api/admin/users", alice, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, appErrors.ErrAccessDenied, errorCode(t, rec))

	var users ListUsersResponse
	rec = ts.do("GET", "/api/admin/users", admin, nil, &users)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, users.Users, 2)

	var userLedger UserLedgerResponse
	rec = ts.do("GET", "/api/admin/users/alice/transactions", admin, nil, &userLedger)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", userLedger.User.Username)
	assert.Len(t, userLedger.Transactions, 1)
	assert.Equal(t, "1000.00", userLedger.Totals.Income)

	rec = ts.do("POST", "/api/admin/users/alice/password", admin, ResetPasswordRequest{Password: "brandnew1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do("POST", "/api/login", "", UserLoginRequest{UserName: "alice", Password: "brandnew1"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("DELETE", "/api/admin/users/root", admin, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("DELETE", "/api/admin/users/ghost", admin, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do("DELETE", "/api/admin/users/alice", admin, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do("GET", "/api/account", alice, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTraceHeader(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("GET", "/api/categories", "", nil, nil)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	req := httptest.NewRequest("GET", "/api/categories", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-ID"))
}

func TestHttpStatusFromError(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{appErrors.ErrNotFound, 404},
		{appErrors.ErrInvalidInput, 400},
		{appErrors.ErrAuth, 401},
		{appErrors.ErrAccessDenied, 403},
		{appErrors.ErrConflict, 409},
		{appErrors.ErrMalformedDate, 422},
		{appErrors.ErrUnavailable, 503},
		{appErrors.ErrInternal, 500},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := appErrors.ErrorResponse{Code: tt.code, Message: "x"}
			assert.Equal(t, tt.status, httpStatusFromError(err))
		})
	}
}
