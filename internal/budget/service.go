package budget

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
	"github.com/fatali-fataliyev/finance_tracker/internal/subscription"
	"github.com/fatali-fataliyev/finance_tracker/logging"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSessionTTL         = 90 * 24 * time.Hour
	DefaultSessionRenewWithin = 5 * 24 * time.Hour
)

type BudgetTracker struct {
	storage     Storage
	StorageType string
	now         func() time.Time
	sessionTTL  time.Duration
	renewWithin time.Duration
	thresholds  subscription.Thresholds
}

type Option func(*BudgetTracker)

func WithClock(now func() time.Time) Option {
	return func(bt *BudgetTracker) {
		bt.now = now
	}
}

func WithSessionPolicy(ttl, renewWithin time.Duration) Option {
	return func(bt *BudgetTracker) {
		bt.sessionTTL = ttl
		bt.renewWithin = renewWithin
	}
}

func WithThresholds(th subscription.Thresholds) Option {
	return func(bt *BudgetTracker) {
		bt.thresholds = th
	}
}

func NewBudgetTracker(s Storage, opts ...Option) BudgetTracker {
	bt := BudgetTracker{
		storage:     s,
		StorageType: s.GetStorageType(),
		now:         time.Now,
		sessionTTL:  DefaultSessionTTL,
		renewWithin: DefaultSessionRenewWithin,
		thresholds:  subscription.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(&bt)
	}
	return bt
}

// Storage persists users, sessions, transactions and category limits.
// Every call is one unit of work; implementations do not cache.
type Storage interface {
	SaveUser(ctx context.Context, user auth.User) error
	GetUser(ctx context.Context, username string) (auth.User, error)
	ListUsers(ctx context.Context) ([]auth.User, error)
	UpdatePassword(ctx context.Context, username string, passwordHashed string) error
	DeleteUser(ctx context.Context, username string) error
	SaveSession(ctx context.Context, session auth.Session) error
	GetSessionByToken(ctx context.Context, token string) (auth.Session, error)
	UpdateSession(ctx context.Context, token string, expireAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	SaveTransaction(ctx context.Context, t ledger.Transaction) (int64, error)
	GetTransactionById(ctx context.Context, username string, id int64) (ledger.Transaction, error)
	GetTransactions(ctx context.Context, username string, filter TransactionFilter) ([]ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, t ledger.Transaction) error
	DeleteTransaction(ctx context.Context, username string, id int64) error
	SaveCategoryLimit(ctx context.Context, limit CategoryLimit) error
	GetCategoryLimits(ctx context.Context, username string) ([]CategoryLimit, error)
	DeleteCategoryLimit(ctx context.Context, username string, category ledger.Category) error
	GetStorageType() string
}

func (bt *BudgetTracker) today() ledger.Date {
	return ledger.DateOf(bt.now())
}

// --- USERS --- //

func (bt *BudgetTracker) IsUserExists(ctx context.Context, username string) (bool, error) {
	_, err := bt.storage.GetUser(ctx, auth.NormalizeUsername(username))
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check user existance: %w", err)
	}
	return true, nil
}

// SaveUser registers a new user and opens a session for them. Registering a
// taken username changes nothing and reports a conflict.
func (bt *BudgetTracker) SaveUser(ctx context.Context, newUser auth.NewUser) (string, error) {
	if err := newUser.ValidateUserFields(); err != nil {
		return "", err
	}
	username := auth.NormalizeUsername(newUser.UserName)

	isUserExists, err := bt.IsUserExists(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to check username availability: %w", err)
	}
	if isUserExists {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrConflict,
			Message: fmt.Sprintf("This '%s' username already taken.", username),
		}
	}

	hashedPassword, err := auth.HashPassword(newUser.PasswordPlain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := auth.User{
		Username:       username,
		PasswordHashed: hashedPassword,
		JoinDate:       bt.now().UTC(),
	}
	if err := bt.storage.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to registration: %w", err)
	}

	token, err := bt.openSession(ctx, username)
	if err != nil {
		return "", fmt.Errorf("registration successfully but failed to generate session: %w | try login", err)
	}
	return token, nil
}

// EnsureAdmin creates the configured administrator account when it is missing.
func (bt *BudgetTracker) EnsureAdmin(ctx context.Context, username string, password string) error {
	newUser := auth.NewUser{UserName: username, PasswordPlain: password}
	if err := newUser.ValidateUserFields(); err != nil {
		return fmt.Errorf("invalid admin account configuration: %w", err)
	}
	username = auth.NormalizeUsername(username)

	existing, err := bt.storage.GetUser(ctx, username)
	if err == nil {
		if !existing.IsAdmin {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: fmt.Sprintf("Username '%s' belongs to a regular user.", username),
			}
		}
		return nil
	}
	if !appErrors.HasCode(err, appErrors.ErrNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin := auth.User{
		Username:       username,
		PasswordHashed: hashedPassword,
		JoinDate:       bt.now().UTC(),
		IsAdmin:        true,
	}
	if err := bt.storage.SaveUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to save admin account: %w", err)
	}
	logging.Logger.Infof("admin account '%s' created", username)
	return nil
}

func (bt *BudgetTracker) ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error) {
	if err := credentials.Validate(); err != nil {
		return auth.User{}, err
	}
	wrongCredentials := appErrors.ErrorResponse{
		Code:    appErrors.ErrAuth,
		Message: "Username or Password is incorrect",
	}

	user, err := bt.storage.GetUser(ctx, auth.NormalizeUsername(credentials.UserName))
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return auth.User{}, wrongCredentials
		}
		return auth.User{}, fmt.Errorf("failed to validate user: %w", err)
	}
	if !auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
		return auth.User{}, wrongCredentials
	}
	return user, nil
}

func (bt *BudgetTracker) GenerateSession(ctx context.Context, credentials auth.UserCredentialsPure) (string, error) {
	user, err := bt.ValidateUser(ctx, credentials)
	if err != nil {
		return "", err
	}
	return bt.openSession(ctx, user.Username)
}

func (bt *BudgetTracker) openSession(ctx context.Context, username string) (string, error) {
	session, err := auth.NewSession(username, bt.now(), bt.sessionTTL)
	if err != nil {
		return "", err
	}
	if err := bt.storage.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return session.Token, nil
}

// CheckSession resolves token to its caller. Sessions close to expiry are
// extended by a full TTL.
func (bt *BudgetTracker) CheckSession(ctx context.Context, token string) (auth.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Principal{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Authorization header is required.",
		}
	}

	session, err := bt.storage.GetSessionByToken(ctx, token)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("failed to get session by token: %w", err)
	}

	now := bt.now().UTC()
	if !session.ExpireAt.After(now) {
		return auth.Principal{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Your session expired, please login again.",
		}
	}

	user, err := bt.storage.GetUser(ctx, session.Username)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return auth.Principal{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Session does not exist, please login.",
			}
		}
		return auth.Principal{}, fmt.Errorf("failed to get session owner: %w", err)
	}

	if session.ExpireAt.Sub(now) <= bt.renewWithin {
		if err := bt.storage.UpdateSession(ctx, token, now.Add(bt.sessionTTL)); err != nil {
			return auth.Principal{}, fmt.Errorf("failed to update session: %w", err)
		}
	}

	return user.Principal(), nil
}

func (bt *BudgetTracker) LogoutUser(ctx context.Context, token string) error {
	if err := bt.storage.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

func (bt *BudgetTracker) GetAccountInfo(ctx context.Context, username string) (AccountInfo, error) {
	user, err := bt.storage.GetUser(ctx, username)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("failed to get account: %w", err)
	}
	txns, err := bt.storage.GetTransactions(ctx, username, TransactionFilter{})
	if err != nil {
		return AccountInfo{}, fmt.Errorf("failed to get transactions: %w", err)
	}
	return AccountInfo{
		Username:         user.Username,
		JoinDate:         user.JoinDate,
		IsAdmin:          user.IsAdmin,
		TransactionCount: len(txns),
		NetPosition:      ledger.NetPosition(txns),
	}, nil
}

// DeleteAccount removes the caller and everything they own after the
// password is confirmed.
func (bt *BudgetTracker) DeleteAccount(ctx context.Context, username string, password string) error {
	user, err := bt.storage.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if !auth.ComparePasswords(user.PasswordHashed, password) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Password is incorrect",
		}
	}
	if err := bt.storage.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// --- TRANSACTIONS --- //

func (bt *BudgetTracker) SaveTransaction(ctx context.Context, username string, req TransactionRequest) (ledger.Transaction, error) {
	date := bt.today()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := ledger.ParseDate(req.Date)
		if err != nil {
			return ledger.Transaction{}, err
		}
		date = parsed
	}

	kind, err := ledger.ParseKind(req.Kind)
	if err != nil {
		return ledger.Transaction{}, err
	}

	amount, err := ledger.ParseMoney(req.Amount)
	if err != nil {
		return ledger.Transaction{}, err
	}

	txn := ledger.Transaction{
		Owner:       username,
		Date:        date,
		Kind:        kind,
		Category:    ledger.Category(strings.TrimSpace(req.Category)),
		Amount:      amount,
		Description: strings.TrimSpace(req.Description),
		Recurring:   req.Recurring,
	}
	if err := txn.Validate(); err != nil {
		return ledger.Transaction{}, err
	}

	id, err := bt.storage.SaveTransaction(ctx, txn)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to save transaction to db: %w", err)
	}
	txn.ID = id
	return txn, nil
}

func (bt *BudgetTracker) GetTransactionById(ctx context.Context, username string, id int64) (ledger.Transaction, error) {
	t, err := bt.storage.GetTransactionById(ctx, username, id)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to get transaction by id: %w", err)
	}
	return t, nil
}

func (bt *BudgetTracker) GetFilteredTransactions(ctx context.Context, username string, filter TransactionFilter) ([]ledger.Transaction, error) {
	txns, err := bt.storage.GetTransactions(ctx, username, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	ledger.SortByDate(txns, false)
	return txns, nil
}

// UpdateTransaction sets one field of a stored transaction. The edited row
// must still satisfy every transaction invariant.
func (bt *BudgetTracker) UpdateTransaction(ctx context.Context, username string, id int64, field string, value string) (ledger.Transaction, error) {
	txn, err := bt.storage.GetTransactionById(ctx, username, id)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldDate:
		date, err := ledger.ParseDate(value)
		if err != nil {
			return ledger.Transaction{}, err
		}
		txn.Date = date
	case FieldKind:
		kind, err := ledger.ParseKind(value)
		if err != nil {
			return ledger.Transaction{}, err
		}
		txn.Kind = kind
	case FieldCategory:
		txn.Category = ledger.Category(strings.TrimSpace(value))
	case FieldAmount:
		amount, err := ledger.ParseMoney(value)
		if err != nil {
			return ledger.Transaction{}, err
		}
		txn.Amount = amount
	case FieldDescription:
		txn.Description = strings.TrimSpace(value)
	case FieldRecurring:
		recurring, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return ledger.Transaction{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("Invalid recurring value: '%s', expected true or false", value),
			}
		}
		txn.Recurring = recurring
	default:
		return ledger.Transaction{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Unknown transaction field: '%s'", field),
		}
	}

	if err := txn.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	if err := bt.storage.UpdateTransaction(ctx, txn); err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to update transaction, Transaction-ID: %d, error: %w", id, err)
	}
	return txn, nil
}

func (bt *BudgetTracker) DeleteTransaction(ctx context.Context, username string, id int64) error {
	if err := bt.storage.DeleteTransaction(ctx, username, id); err != nil {
		return fmt.Errorf("failed to delete transaction, Transaction-ID: %d, error: %w", id, err)
	}
	return nil
}

// --- CATEGORY LIMITS --- //

// SaveCategoryLimit sets the limit of an expense category, replacing any
// previous one.
func (bt *BudgetTracker) SaveCategoryLimit(ctx context.Context, username string, category string, amount string) (CategoryLimit, error) {
	money, err := ledger.ParseMoney(amount)
	if err != nil {
		return CategoryLimit{}, err
	}
	limit := CategoryLimit{
		Owner:    username,
		Category: ledger.Category(strings.TrimSpace(category)),
		Amount:   money,
	}
	if err := limit.Validate(); err != nil {
		return CategoryLimit{}, err
	}
	if err := bt.storage.SaveCategoryLimit(ctx, limit); err != nil {
		return CategoryLimit{}, fmt.Errorf("failed to save category limit: %w", err)
	}
	return limit, nil
}

func (bt *BudgetTracker) GetCategoryLimits(ctx context.Context, username string) ([]CategoryLimit, error) {
	limits, err := bt.storage.GetCategoryLimits(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get category limits: %w", err)
	}
	return limits, nil
}

func (bt *BudgetTracker) DeleteCategoryLimit(ctx context.Context, username string, category string) error {
	if err := bt.storage.DeleteCategoryLimit(ctx, username, ledger.Category(strings.TrimSpace(category))); err != nil {
		return fmt.Errorf("failed to delete category limit: %w", err)
	}
	return nil
}

// --- VIEWS --- //

func (bt *BudgetTracker) GetDashboard(ctx context.Context, username string) (Dashboard, error) {
	txns, err := bt.storage.GetTransactions(ctx, username, TransactionFilter{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to get transactions: %w", err)
	}

	period := bt.today().Period()
	month := ledger.Aggregate(txns, &period)
	if len(month.Skipped) > 0 {
		traceID := contextutil.TraceIDFromContext(ctx)
		logging.Logger.Warnf("[TraceID=%s] | %d transaction(s) with malformed dates left out of the monthly totals", traceID, len(month.Skipped))
	}

	return Dashboard{
		Period:       period,
		AllTime:      ledger.Aggregate(txns, nil),
		Month:        month,
		Daily:        ledger.DailyFlow(txns, &period),
		Distribution: month.Distribution(),
	}, nil
}

func (bt *BudgetTracker) GetSubscriptions(ctx context.Context, username string) (subscription.Schedule, error) {
	txns, err := bt.storage.GetTransactions(ctx, username, TransactionFilter{})
	if err != nil {
		return subscription.Schedule{}, fmt.Errorf("failed to get transactions: %w", err)
	}
	return subscription.BuildSchedule(txns, bt.today(), bt.thresholds), nil
}

// GetBudgetReport evaluates every category limit against the period's
// spending. A nil period means the current month.
func (bt *BudgetTracker) GetBudgetReport(ctx context.Context, username string, period *ledger.Period) (BudgetReport, error) {
	if period == nil {
		current := bt.today().Period()
		period = &current
	}

	txns, err := bt.storage.GetTransactions(ctx, username, TransactionFilter{})
	if err != nil {
		return BudgetReport{}, fmt.Errorf("failed to get transactions: %w", err)
	}
	limits, err := bt.storage.GetCategoryLimits(ctx, username)
	if err != nil {
		return BudgetReport{}, fmt.Errorf("failed to get category limits: %w", err)
	}

	totals := ledger.Aggregate(txns, period)
	report := BudgetReport{
		Period:      *period,
		Totals:      totals,
		Evaluations: Evaluate(totals.ByCategory, limits),
	}
	if advice, ok := Advise(totals.Expense, limits); ok {
		report.Advice = &advice
	}
	return report, nil
}

func (bt *BudgetTracker) GetReportPeriods(ctx context.Context, username string) ([]ledger.Period, error) {
	txns, err := bt.storage.GetTransactions(ctx, username, TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return ledger.Periods(txns), nil
}

func (bt *BudgetTracker) GetMonthlyReport(ctx context.Context, username string, period ledger.Period) (MonthlyReport, error) {
	txns, err := bt.storage.GetTransactions(ctx, username, TransactionFilter{})
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("failed to get transactions: %w", err)
	}

	var inPeriod []ledger.Transaction
	for _, t := range txns {
		if period.Contains(t.Date) {
			inPeriod = append(inPeriod, t)
		}
	}
	ledger.SortByDate(inPeriod, true)

	return MonthlyReport{
		Period:       period,
		Totals:       ledger.Aggregate(txns, &period),
		Transactions: inPeriod,
	}, nil
}

// --- ADMIN --- //

// requireAdmin returns the caller stored in ctx when it is an administrator.
func requireAdmin(ctx context.Context) (auth.Principal, error) {
	actor, ok := contextutil.PrincipalFromContext(ctx)
	if !ok {
		return auth.Principal{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Authorization header is required.",
		}
	}
	if !actor.IsAdmin {
		return auth.Principal{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAccessDenied,
			Message: "This action requires administrator rights.",
		}
	}
	return actor, nil
}

func (bt *BudgetTracker) ListUsers(ctx context.Context) ([]auth.User, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := bt.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (bt *BudgetTracker) ResetPassword(ctx context.Context, username string, newPassword string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	username = auth.NormalizeUsername(username)
	if _, err := bt.storage.GetUser(ctx, username); err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := bt.storage.UpdatePassword(ctx, username, hashedPassword); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	bt.auditLog(ctx, actor, username).Info("password reset by admin")
	return nil
}

func (bt *BudgetTracker) DeleteUser(ctx context.Context, username string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	username = auth.NormalizeUsername(username)
	if username == actor.Username {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Admins cannot delete their own account from the admin panel.",
		}
	}
	if _, err := bt.storage.GetUser(ctx, username); err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if err := bt.storage.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	bt.auditLog(ctx, actor, username).Info("user deleted by admin")
	return nil
}

func (bt *BudgetTracker) GetUserLedger(ctx context.Context, username string) (UserLedger, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return UserLedger{}, err
	}
	username = auth.NormalizeUsername(username)
	user, err := bt.storage.GetUser(ctx, username)
	if err != nil {
		return UserLedger{}, fmt.Errorf("failed to get user: %w", err)
	}
	txns, err := bt.storage.GetTransactions(ctx, username, TransactionFilter{})
	if err != nil {
		return UserLedger{}, fmt.Errorf("failed to get transactions: %w", err)
	}
	return UserLedger{
		User:         user,
		Totals:       ledger.Aggregate(txns, nil),
		Transactions: txns,
	}, nil
}

func (bt *BudgetTracker) auditLog(ctx context.Context, actor auth.Principal, target string) *logrus.Entry {
	return logging.WithTrace(contextutil.TraceIDFromContext(ctx)).WithFields(logrus.Fields{
		"admin":  actor.Username,
		"target": target,
	})
}
