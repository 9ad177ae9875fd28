package budget

import (
	"fmt"
	"sort"
	"strings"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSafe     Status = "safe"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// WarningPercent is the usage above which a category is no longer safe.
const WarningPercent = 80

// CategoryLimit is a monthly spending ceiling for one expense category.
// A user has at most one limit per category.
type CategoryLimit struct {
	Owner    string
	Category ledger.Category
	Amount   ledger.Money
}

func (l CategoryLimit) Validate() error {
	if strings.TrimSpace(l.Owner) == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Limit owner cannot be empty!",
		}
	}
	if !l.Category.ValidFor(ledger.Expense) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Limits can only be set on expense categories, got: '%s'", l.Category),
		}
	}
	if l.Amount.IsNegative() {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Limit amount cannot be negative",
		}
	}
	return nil
}

type Evaluation struct {
	Category  ledger.Category
	Spent     ledger.Money
	Limit     ledger.Money
	Remaining ledger.Money
	Percent   float64
	Status    Status
}

// DisplayPercent is Percent clamped to [0, 100] for progress bars.
func (e Evaluation) DisplayPercent() float64 {
	if e.Status == StatusExceeded && e.Limit.IsZero() {
		return 100
	}
	switch {
	case e.Percent < 0:
		return 0
	case e.Percent > 100:
		return 100
	}
	return e.Percent
}

// Classify rates spent against limit. A zero limit is safe only while nothing
// has been spent; its percentage is always reported as 0.
func Classify(spent, limit ledger.Money) Evaluation {
	e := Evaluation{
		Spent:     spent,
		Limit:     limit,
		Remaining: limit.Sub(spent),
	}

	if !limit.IsPositive() {
		if spent.IsPositive() {
			e.Status = StatusExceeded
		} else {
			e.Status = StatusSafe
		}
		return e
	}

	e.Percent = spent.Decimal().Div(limit.Decimal()).Shift(2).InexactFloat64()

	// Exact decimal comparisons keep the boundaries sharp.
	switch {
	case spent.Cmp(limit) > 0:
		e.Status = StatusExceeded
	case spent.Decimal().Shift(2).GreaterThan(limit.Decimal().Mul(decimal.NewFromInt(WarningPercent))):
		e.Status = StatusWarning
	default:
		e.Status = StatusSafe
	}
	return e
}

// Evaluate classifies every category that has a limit. Categories without a
// configured limit are left out.
func Evaluate(spentByCategory map[ledger.Category]ledger.Money, limits []CategoryLimit) []Evaluation {
	evaluations := make([]Evaluation, 0, len(limits))
	for _, limit := range limits {
		e := Classify(spentByCategory[limit.Category], limit.Amount)
		e.Category = limit.Category
		evaluations = append(evaluations, e)
	}
	sort.Slice(evaluations, func(i, j int) bool {
		return evaluations[i].Category < evaluations[j].Category
	})
	return evaluations
}

// Advise rates the whole period's spending against the sum of all limits.
// It reports false when no limit is configured.
func Advise(totalSpent ledger.Money, limits []CategoryLimit) (Evaluation, bool) {
	if len(limits) == 0 {
		return Evaluation{}, false
	}
	var sum ledger.Money
	for _, limit := range limits {
		sum = sum.Add(limit.Amount)
	}
	return Classify(totalSpent, sum), true
}
