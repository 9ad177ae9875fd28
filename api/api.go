package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/0xcafe-io/iz"
	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/budget"
	"github.com/fatali-fataliyev/finance_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
	"github.com/fatali-fataliyev/finance_tracker/logging"
)

type Api struct {
	Service *budget.BudgetTracker
}

func NewApi(service *budget.BudgetTracker) *Api {
	return &Api{
		Service: service,
	}
}

// errorResponse writes err as a coded JSON body. Server-side failures are
// logged with the request's trace id.
func errorResponse(ctx context.Context, action string, err error) iz.Responder {
	status := httpStatusFromError(err)
	if status >= 500 {
		traceID := contextutil.TraceIDFromContext(ctx)
		logging.Logger.Errorf("[TraceID=%s] | %s failed | Error: %v", traceID, action, err)
	}
	return iz.Respond().Status(status).JSON(appErrors.ErrorResponse{
		Code:    appErrors.CodeOf(err),
		Message: appErrors.MessageOf(err),
	})
}

func badRequest(message string) iz.Responder {
	return iz.Respond().Status(400).JSON(appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: message,
	})
}

func decodeBody(r *iz.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func bearerToken(r *iz.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

// authorize resolves the caller from the Authorization header and returns a
// context carrying them.
func (api *Api) authorize(r *iz.Request) (context.Context, auth.Principal, error) {
	ctx := r.Context()
	principal, err := api.Service.CheckSession(ctx, bearerToken(r))
	if err != nil {
		return ctx, auth.Principal{}, err
	}
	return contextutil.WithPrincipal(ctx, principal), principal, nil
}

func pathID(r *iz.Request) (int64, error) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid transaction id: '%s'", idStr),
		}
	}
	return id, nil
}

// --- USER ENDPOINTS --- //

func (api *Api) SaveUserHandler(r *iz.Request) iz.Responder {
	var newUserReq SaveUserRequest
	if err := decodeBody(r, &newUserReq); err != nil {
		return badRequest(err.Error())
	}

	newUser := auth.NewUser{
		UserName:      newUserReq.UserName,
		PasswordPlain: newUserReq.Password,
	}

	token, err := api.Service.SaveUser(r.Context(), newUser)
	if err != nil {
		return errorResponse(r.Context(), "registration", err)
	}

	resp := UserCreatedResponse{
		Message: "Registration Completed",
		Token:   token,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) LoginUserHandler(r *iz.Request) iz.Responder {
	var loginRequest UserLoginRequest
	if err := decodeBody(r, &loginRequest); err != nil {
		return badRequest("invalid request body")
	}

	credentials := auth.UserCredentialsPure{
		UserName:      loginRequest.UserName,
		PasswordPlain: loginRequest.Password,
	}

	token, err := api.Service.GenerateSession(r.Context(), credentials)
	if err != nil {
		return errorResponse(r.Context(), "login", err)
	}
	response := LoginResponse{
		Message: "You've logged in successfully!",
		Token:   token,
	}
	return iz.Respond().Status(200).JSON(response)
}

func (api *Api) LogoutUserHandler(r *iz.Request) iz.Responder {
	ctx, _, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	if err := api.Service.LogoutUser(ctx, bearerToken(r)); err != nil {
		return errorResponse(ctx, "logout", err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "Logout successful."})
}

func (api *Api) GetAccountInfo(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	info, err := api.Service.GetAccountInfo(ctx, principal.Username)
	if err != nil {
		return errorResponse(ctx, "get account info", err)
	}
	return iz.Respond().Status(200).JSON(AccountResponse{
		Username:         info.Username,
		JoinDate:         info.JoinDate.Format(joinDateLayout),
		IsAdmin:          info.IsAdmin,
		TransactionCount: info.TransactionCount,
		NetPosition:      info.NetPosition.String(),
	})
}

func (api *Api) DeleteUserHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	var deleteReq DeleteAccountRequest
	if err := decodeBody(r, &deleteReq); err != nil {
		return badRequest(err.Error())
	}

	if err := api.Service.DeleteAccount(ctx, principal.Username, deleteReq.Password); err != nil {
		return errorResponse(ctx, "delete account", err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "Account deleted."})
}

func (api *Api) GetCategoriesHandler(r *iz.Request) iz.Responder {
	return iz.Respond().Status(200).JSON(CategoriesResponse{
		Income:  categoryNames(ledger.Income),
		Expense: categoryNames(ledger.Expense),
	})
}

// --- TRANSACTION ENDPOINTS --- //

func (api *Api) SaveTransactionHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	var newTransactionReq CreateTransactionRequest
	if err := decodeBody(r, &newTransactionReq); err != nil {
		return badRequest(err.Error())
	}

	newTransaction := budget.TransactionRequest{
		Date:        newTransactionReq.Date,
		Kind:        newTransactionReq.Kind,
		Category:    newTransactionReq.Category,
		Amount:      newTransactionReq.Amount,
		Description: newTransactionReq.Description,
		Recurring:   newTransactionReq.Recurring,
	}

	t, err := api.Service.SaveTransaction(ctx, principal.Username, newTransaction)
	if err != nil {
		return errorResponse(ctx, "create transaction", err)
	}
	return iz.Respond().Status(201).JSON(TransactionToHttp(t))
}

func (api *Api) GetFilteredTransactionsHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	filter, err := ListValidateParams(r.URL.Query())
	if err != nil {
		return errorResponse(ctx, "parse transaction filters", err)
	}

	txns, err := api.Service.GetFilteredTransactions(ctx, principal.Username, filter)
	if err != nil {
		return errorResponse(ctx, "get transactions", err)
	}
	return iz.Respond().Status(200).JSON(ListTransactionResponse{Transactions: TransactionsToHttp(txns)})
}

func (api *Api) GetTransactionByIdHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	id, err := pathID(r)
	if err != nil {
		return errorResponse(ctx, "parse transaction id", err)
	}

	t, err := api.Service.GetTransactionById(ctx, principal.Username, id)
	if err != nil {
		return errorResponse(ctx, "get transaction by id", err)
	}
	return iz.Respond().Status(200).JSON(TransactionToHttp(t))
}

func (api *Api) UpdateTransactionHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	id, err := pathID(r)
	if err != nil {
		return errorResponse(ctx, "parse transaction id", err)
	}

	var updateReq UpdateTransactionRequest
	if err := decodeBody(r, &updateReq); err != nil {
		return badRequest(err.Error())
	}

	t, err := api.Service.UpdateTransaction(ctx, principal.Username, id, updateReq.Field, updateReq.Value)
	if err != nil {
		return errorResponse(ctx, "update transaction", err)
	}
	return iz.Respond().Status(200).JSON(TransactionToHttp(t))
}

func (api *Api) DeleteTransactionHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	id, err := pathID(r)
	if err != nil {
		return errorResponse(ctx, "parse transaction id", err)
	}

	if err := api.Service.DeleteTransaction(ctx, principal.Username, id); err != nil {
		return errorResponse(ctx, "delete transaction", err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "transaction deleted successfully"})
}

// --- LIMIT ENDPOINTS --- //

func (api *Api) SetLimitHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	var limitReq SetLimitRequest
	if err := decodeBody(r, &limitReq); err != nil {
		return badRequest(err.Error())
	}

	limit, err := api.Service.SaveCategoryLimit(ctx, principal.Username, limitReq.Category, limitReq.Amount)
	if err != nil {
		return errorResponse(ctx, "set category limit", err)
	}
	return iz.Respond().Status(200).JSON(LimitItem{Category: string(limit.Category), Amount: limit.Amount.String()})
}

func (api *Api) GetLimitsHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	limits, err := api.Service.GetCategoryLimits(ctx, principal.Username)
	if err != nil {
		return errorResponse(ctx, "get category limits", err)
	}
	return iz.Respond().Status(200).JSON(ListLimitsResponse{Limits: limitsToHttp(limits)})
}

func (api *Api) DeleteLimitHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	category := r.URL.Query().Get("category")
	if strings.TrimSpace(category) == "" {
		return badRequest("category query parameter is required")
	}

	if err := api.Service.DeleteCategoryLimit(ctx, principal.Username, category); err != nil {
		return errorResponse(ctx, "delete category limit", err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "limit deleted successfully"})
}

// --- VIEW ENDPOINTS --- //

func (api *Api) GetDashboardHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	dashboard, err := api.Service.GetDashboard(ctx, principal.Username)
	if err != nil {
		return errorResponse(ctx, "get dashboard", err)
	}
	return iz.Respond().Status(200).JSON(DashboardToHttp(dashboard))
}

func (api *Api) GetSubscriptionsHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	schedule, err := api.Service.GetSubscriptions(ctx, principal.Username)
	if err != nil {
		return errorResponse(ctx, "get subscriptions", err)
	}
	return iz.Respond().Status(200).JSON(ScheduleToHttp(schedule))
}

func (api *Api) GetBudgetHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	var period *ledger.Period
	if periodStr := r.URL.Query().Get("period"); periodStr != "" {
		parsed, err := ledger.ParsePeriod(periodStr)
		if err != nil {
			return errorResponse(ctx, "parse budget period", err)
		}
		period = &parsed
	}

	report, err := api.Service.GetBudgetReport(ctx, principal.Username, period)
	if err != nil {
		return errorResponse(ctx, "get budget report", err)
	}
	return iz.Respond().Status(200).JSON(BudgetReportToHttp(report))
}

func (api *Api) GetReportPeriodsHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	periods, err := api.Service.GetReportPeriods(ctx, principal.Username)
	if err != nil {
		return errorResponse(ctx, "get report periods", err)
	}
	resp := ReportPeriodsResponse{Periods: make([]string, 0, len(periods))}
	for _, p := range periods {
		resp.Periods = append(resp.Periods, p.String())
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetMonthlyReportHandler(r *iz.Request) iz.Responder {
	ctx, principal, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	period, err := ledger.ParsePeriod(r.PathValue("period"))
	if err != nil {
		return errorResponse(ctx, "parse report period", err)
	}

	report, err := api.Service.GetMonthlyReport(ctx, principal.Username, period)
	if err != nil {
		return errorResponse(ctx, "get monthly report", err)
	}
	return iz.Respond().Status(200).JSON(MonthlyReportResponse{
		Period:       report.Period.String(),
		Totals:       TotalsToHttp(report.Totals),
		Transactions: TransactionsToHttp(report.Transactions),
	})
}

// --- ADMIN ENDPOINTS --- //

func (api *Api) AdminListUsersHandler(r *iz.Request) iz.Responder {
	ctx, _, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	users, err := api.Service.ListUsers(ctx)
	if err != nil {
		return errorResponse(ctx, "list users", err)
	}
	resp := ListUsersResponse{Users: make([]UserItem, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, UserToHttp(u))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) AdminResetPasswordHandler(r *iz.Request) iz.Responder {
	ctx, _, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	var resetReq ResetPasswordRequest
	if err := decodeBody(r, &resetReq); err != nil {
		return badRequest(err.Error())
	}

	if err := api.Service.ResetPassword(ctx, r.PathValue("username"), resetReq.Password); err != nil {
		return errorResponse(ctx, "reset password", err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "password reset successfully"})
}

func (api *Api) AdminDeleteUserHandler(r *iz.Request) iz.Responder {
	ctx, _, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	if err := api.Service.DeleteUser(ctx, r.PathValue("username")); err != nil {
		return errorResponse(ctx, "delete user", err)
	}
	return iz.Respond().Status(200).JSON(MessageResponse{Message: "user deleted successfully"})
}

func (api *Api) AdminUserLedgerHandler(r *iz.Request) iz.Responder {
	ctx, _, err := api.authorize(r)
	if err != nil {
		return errorResponse(ctx, "authorization", err)
	}

	userLedger, err := api.Service.GetUserLedger(ctx, r.PathValue("username"))
	if err != nil {
		return errorResponse(ctx, "get user ledger", err)
	}
	ledger.SortByDate(userLedger.Transactions, false)
	return iz.Respond().Status(200).JSON(UserLedgerResponse{
		User:         UserToHttp(userLedger.User),
		Totals:       TotalsToHttp(userLedger.Totals),
		Transactions: TransactionsToHttp(userLedger.Transactions),
	})
}
