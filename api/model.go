package api

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/budget"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
	"github.com/fatali-fataliyev/finance_tracker/internal/subscription"
)

const joinDateLayout = "02/01/2006 15:04"

// REQUESTS START:
type SaveUserRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type UserLoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type CreateTransactionRequest struct {
	Date        string `json:"date"` // YYYY-MM-DD, today when empty
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Amount      string `json:"amount"` // keep as string to allow "12,50"
	Description string `json:"description"`
	Recurring   bool   `json:"recurring"`
}

type UpdateTransactionRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type SetLimitRequest struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// REQUESTS END:

// RESPONSES:
type UserCreatedResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AccountResponse struct {
	Username         string `json:"username"`
	JoinDate         string `json:"join_date"`
	IsAdmin          bool   `json:"is_admin"`
	TransactionCount int    `json:"transaction_count"`
	NetPosition      string `json:"net_position"`
}

type CategoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

type TransactionItem struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Name        string `json:"name"`
	Recurring   bool   `json:"recurring"`
}

type ListTransactionResponse struct {
	Transactions []TransactionItem `json:"transactions"`
}

type LimitItem struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type ListLimitsResponse struct {
	Limits []LimitItem `json:"limits"`
}

type TotalsItem struct {
	Income     string            `json:"income"`
	Expense    string            `json:"expense"`
	Net        string            `json:"net"`
	IsProfit   bool              `json:"is_profit"`
	Count      int               `json:"count"`
	ByCategory map[string]string `json:"by_category"`
	Skipped    []int64           `json:"skipped,omitempty"`
}

type DayFlowItem struct {
	Date    string `json:"date"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type ShareItem struct {
	Category string  `json:"category"`
	Amount   string  `json:"amount"`
	Percent  float64 `json:"percent"`
}

type DashboardResponse struct {
	Period       string        `json:"period"`
	AllTime      TotalsItem    `json:"all_time"`
	Month        TotalsItem    `json:"month"`
	Daily        []DayFlowItem `json:"daily"`
	Distribution []ShareItem   `json:"distribution"`
}

type SubscriptionItem struct {
	TransactionID int64  `json:"transaction_id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Amount        string `json:"amount"`
	Origin        string `json:"origin"`
	NextDue       string `json:"next_due"`
	DaysLeft      int    `json:"days_left"`
	Status        string `json:"status"`
}

type OmissionItem struct {
	TransactionID int64  `json:"transaction_id"`
	Name          string `json:"name"`
	Reason        string `json:"reason"`
}

type SubscriptionsResponse struct {
	Subscriptions []SubscriptionItem `json:"subscriptions"`
	Omitted       []OmissionItem     `json:"omitted"`
	MonthlyTotal  string             `json:"monthly_total"`
}

type EvaluationItem struct {
	Category       string  `json:"category,omitempty"`
	Spent          string  `json:"spent"`
	Limit          string  `json:"limit"`
	Remaining      string  `json:"remaining"`
	Percent        float64 `json:"percent"`
	DisplayPercent float64 `json:"display_percent"`
	Status         string  `json:"status"`
}

type BudgetResponse struct {
	Period      string           `json:"period"`
	Totals      TotalsItem       `json:"totals"`
	Evaluations []EvaluationItem `json:"evaluations"`
	Advice      *EvaluationItem  `json:"advice"`
}

type ReportPeriodsResponse struct {
	Periods []string `json:"periods"`
}

type MonthlyReportResponse struct {
	Period       string            `json:"period"`
	Totals       TotalsItem        `json:"totals"`
	Transactions []TransactionItem `json:"transactions"`
}

type UserItem struct {
	Username string `json:"username"`
	JoinDate string `json:"join_date"`
	IsAdmin  bool   `json:"is_admin"`
}

type ListUsersResponse struct {
	Users []UserItem `json:"users"`
}

type UserLedgerResponse struct {
	User         UserItem          `json:"user"`
	Totals       TotalsItem        `json:"totals"`
	Transactions []TransactionItem `json:"transactions"`
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrAccessDenied:
		return 403 // access denied
	case appErrors.ErrConflict:
		return 409 // conflict
	case appErrors.ErrMalformedDate:
		return 422 // unprocessable entity
	case appErrors.ErrUnavailable:
		return 503 // service unavailable
	default:
		return 500 //internal error
	}
}

// ListValidateParams builds a transaction filter from the kind, category
// and period query parameters. All of them are optional.
func ListValidateParams(params url.Values) (budget.TransactionFilter, error) {
	var filter budget.TransactionFilter

	if kindStr := params.Get("kind"); kindStr != "" {
		kind, err := ledger.ParseKind(kindStr)
		if err != nil {
			return budget.TransactionFilter{}, err
		}
		filter.Kind = kind
	}

	if categoryStr := strings.TrimSpace(params.Get("category")); categoryStr != "" {
		category := ledger.Category(categoryStr)
		if !category.ValidFor(ledger.Income) && !category.ValidFor(ledger.Expense) {
			return budget.TransactionFilter{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("Unknown category: '%s'", categoryStr),
			}
		}
		filter.Category = category
	}

	if periodStr := params.Get("period"); periodStr != "" {
		period, err := ledger.ParsePeriod(periodStr)
		if err != nil {
			return budget.TransactionFilter{}, err
		}
		filter.Period = &period
	}

	return filter, nil
}

func TransactionToHttp(t ledger.Transaction) TransactionItem {
	return TransactionItem{
		ID:          t.ID,
		Date:        t.Date.String(),
		Kind:        string(t.Kind),
		Category:    string(t.Category),
		Amount:      t.Amount.String(),
		Description: t.Description,
		Name:        t.Name(),
		Recurring:   t.Recurring,
	}
}

func TransactionsToHttp(txns []ledger.Transaction) []TransactionItem {
	items := make([]TransactionItem, 0, len(txns))
	for _, t := range txns {
		items = append(items, TransactionToHttp(t))
	}
	return items
}

func TotalsToHttp(totals ledger.Totals) TotalsItem {
	byCategory := make(map[string]string, len(totals.ByCategory))
	for category, amount := range totals.ByCategory {
		byCategory[string(category)] = amount.String()
	}
	return TotalsItem{
		Income:     totals.Income.String(),
		Expense:    totals.Expense.String(),
		Net:        totals.Net.String(),
		IsProfit:   totals.IsProfit(),
		Count:      totals.Count,
		ByCategory: byCategory,
		Skipped:    totals.Skipped,
	}
}

func DashboardToHttp(d budget.Dashboard) DashboardResponse {
	daily := make([]DayFlowItem, 0, len(d.Daily))
	for _, flow := range d.Daily {
		daily = append(daily, DayFlowItem{
			Date:    flow.Date.String(),
			Income:  flow.Income.String(),
			Expense: flow.Expense.String(),
		})
	}
	shares := make([]ShareItem, 0, len(d.Distribution))
	for _, share := range d.Distribution {
		shares = append(shares, ShareItem{
			Category: string(share.Category),
			Amount:   share.Amount.String(),
			Percent:  share.Percent,
		})
	}
	return DashboardResponse{
		Period:       d.Period.String(),
		AllTime:      TotalsToHttp(d.AllTime),
		Month:        TotalsToHttp(d.Month),
		Daily:        daily,
		Distribution: shares,
	}
}

func ScheduleToHttp(s subscription.Schedule) SubscriptionsResponse {
	resp := SubscriptionsResponse{
		Subscriptions: make([]SubscriptionItem, 0, len(s.Entries)),
		Omitted:       make([]OmissionItem, 0, len(s.Omitted)),
		MonthlyTotal:  s.MonthlyTotal.String(),
	}
	for _, e := range s.Entries {
		resp.Subscriptions = append(resp.Subscriptions, SubscriptionItem{
			TransactionID: e.TransactionID,
			Name:          e.Name,
			Category:      string(e.Category),
			Amount:        e.Amount.String(),
			Origin:        e.Origin.String(),
			NextDue:       e.NextDue.String(),
			DaysLeft:      e.DaysLeft,
			Status:        string(e.Status),
		})
	}
	for _, o := range s.Omitted {
		resp.Omitted = append(resp.Omitted, OmissionItem{
			TransactionID: o.TransactionID,
			Name:          o.Name,
			Reason:        o.Reason,
		})
	}
	return resp
}

func EvaluationToHttp(e budget.Evaluation) EvaluationItem {
	return EvaluationItem{
		Category:       string(e.Category),
		Spent:          e.Spent.String(),
		Limit:          e.Limit.String(),
		Remaining:      e.Remaining.String(),
		Percent:        e.Percent,
		DisplayPercent: e.DisplayPercent(),
		Status:         string(e.Status),
	}
}

func BudgetReportToHttp(r budget.BudgetReport) BudgetResponse {
	resp := BudgetResponse{
		Period:      r.Period.String(),
		Totals:      TotalsToHttp(r.Totals),
		Evaluations: make([]EvaluationItem, 0, len(r.Evaluations)),
	}
	for _, e := range r.Evaluations {
		resp.Evaluations = append(resp.Evaluations, EvaluationToHttp(e))
	}
	if r.Advice != nil {
		advice := EvaluationToHttp(*r.Advice)
		resp.Advice = &advice
	}
	return resp
}

func UserToHttp(u auth.User) UserItem {
	return UserItem{
		Username: u.Username,
		JoinDate: u.JoinDate.Format(joinDateLayout),
		IsAdmin:  u.IsAdmin,
	}
}

func categoryNames(kind ledger.Kind) []string {
	categories := ledger.Categories(kind)
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	return names
}

func limitsToHttp(limits []budget.CategoryLimit) []LimitItem {
	items := make([]LimitItem, 0, len(limits))
	for _, l := range limits {
		items = append(items, LimitItem{Category: string(l.Category), Amount: l.Amount.String()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Category < items[j].Category })
	return items
}
