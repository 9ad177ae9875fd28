package api

import (
	"net/http"
	"time"

	"github.com/0xcafe-io/iz"
	"github.com/fatali-fataliyev/finance_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/finance_tracker/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func (api *Api) Register(server *http.ServeMux) {
	// USER ENDPOINTS.
	server.HandleFunc("POST /api/register", iz.Bind(api.SaveUserHandler))         // Create User
	server.HandleFunc("POST /api/login", iz.Bind(api.LoginUserHandler))           // Login User
	server.HandleFunc("GET /api/logout", iz.Bind(api.LogoutUserHandler))          // Logout User
	server.HandleFunc("GET /api/account", iz.Bind(api.GetAccountInfo))            // Account Info
	server.HandleFunc("POST /api/remove-account", iz.Bind(api.DeleteUserHandler)) // Remove User
	server.HandleFunc("GET /api/categories", iz.Bind(api.GetCategoriesHandler))   // Allowed categories per kind

	// TRANSACTION ENDPOINTS.
	server.HandleFunc("POST /api/transaction", iz.Bind(api.SaveTransactionHandler))          // Create Transaction
	server.HandleFunc("GET /api/transaction", iz.Bind(api.GetFilteredTransactionsHandler))   // Get Transactions with filters
	server.HandleFunc("GET /api/transaction/{id}", iz.Bind(api.GetTransactionByIdHandler))   // Get Transaction by ID
	server.HandleFunc("PUT /api/transaction/{id}", iz.Bind(api.UpdateTransactionHandler))    // Update one field of a Transaction
	server.HandleFunc("DELETE /api/transaction/{id}", iz.Bind(api.DeleteTransactionHandler)) // Delete Transaction

	// LIMIT ENDPOINTS.
	server.HandleFunc("PUT /api/limit", iz.Bind(api.SetLimitHandler))       // Create or replace a category limit
	server.HandleFunc("GET /api/limit", iz.Bind(api.GetLimitsHandler))      // List category limits
	server.HandleFunc("DELETE /api/limit", iz.Bind(api.DeleteLimitHandler)) // Delete category limit

	// VIEW ENDPOINTS.
	server.HandleFunc("GET /api/dashboard", iz.Bind(api.GetDashboardHandler))            // Totals, daily flow, distribution
	server.HandleFunc("GET /api/subscriptions", iz.Bind(api.GetSubscriptionsHandler))    // Upcoming recurring payments
	server.HandleFunc("GET /api/budget", iz.Bind(api.GetBudgetHandler))                  // Limits against spending
	server.HandleFunc("GET /api/reports", iz.Bind(api.GetReportPeriodsHandler))          // Periods with data
	server.HandleFunc("GET /api/reports/{period}", iz.Bind(api.GetMonthlyReportHandler)) // One month's report

	// ADMIN ENDPOINTS.
	server.HandleFunc("GET /api/admin/users", iz.Bind(api.AdminListUsersHandler))                          // List users
	server.HandleFunc("POST /api/admin/users/{username}/password", iz.Bind(api.AdminResetPasswordHandler)) // Reset password
	server.HandleFunc("DELETE /api/admin/users/{username}", iz.Bind(api.AdminDeleteUserHandler))           // Delete user
	server.HandleFunc("GET /api/admin/users/{username}/transactions", iz.Bind(api.AdminUserLedgerHandler)) // User's transactions
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// TraceMiddleware tags every request with a trace id and logs its outcome.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		w.Header().Set("X-Trace-ID", traceID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(contextutil.WithTraceID(r.Context(), traceID)))

		logging.WithTrace(traceID).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}
