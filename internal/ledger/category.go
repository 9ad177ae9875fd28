package ledger

import (
	"fmt"
	"strings"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
)

type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: fmt.Sprintf("Invalid transaction kind: '%s', allowed kinds: income, expense", s),
	}
}

type Category string

// Expense categories.
const (
	CategorySubscription  Category = "Subscription - Internet/Digital"
	CategoryGroceries     Category = "Food - Groceries"
	CategoryRestaurant    Category = "Food - Restaurant"
	CategoryRent          Category = "Housing - Rent"
	CategoryHousingDues   Category = "Housing - Dues"
	CategoryUtilities     Category = "Bills - Utilities"
	CategoryFuel          Category = "Transport - Fuel"
	CategoryPublicTransit Category = "Transport - Public Transit"
	CategoryClothing      Category = "Personal - Clothing"
	CategoryPersonalCare  Category = "Personal - Care"
	CategoryHealth        Category = "Health"
	CategoryEntertainment Category = "Entertainment"
	CategoryEducation     Category = "Education"
	CategoryDebtPayment   Category = "Debt Payment"
	CategoryOther         Category = "Other"
)

// Income categories. CategoryOther is shared with expenses.
const (
	CategorySalary         Category = "Salary"
	CategoryBonus          Category = "Bonus"
	CategorySideJob        Category = "Side Job"
	CategoryInvestment     Category = "Investment"
	CategoryDebtCollection Category = "Debt Collection"
)

var categoriesByKind = map[Kind][]Category{
	Expense: {
		CategorySubscription,
		CategoryGroceries,
		CategoryRestaurant,
		CategoryRent,
		CategoryHousingDues,
		CategoryUtilities,
		CategoryFuel,
		CategoryPublicTransit,
		CategoryClothing,
		CategoryPersonalCare,
		CategoryHealth,
		CategoryEntertainment,
		CategoryEducation,
		CategoryDebtPayment,
		CategoryOther,
	},
	Income: {
		CategorySalary,
		CategoryBonus,
		CategorySideJob,
		CategoryInvestment,
		CategoryDebtCollection,
		CategoryOther,
	},
}

// Categories returns the enumerated categories valid for kind, in display order.
func Categories(kind Kind) []Category {
	list := categoriesByKind[kind]
	out := make([]Category, len(list))
	copy(out, list)
	return out
}

func (c Category) ValidFor(kind Kind) bool {
	for _, candidate := range categoriesByKind[kind] {
		if candidate == c {
			return true
		}
	}
	return false
}

func ValidateCategory(kind Kind, category Category) error {
	if _, ok := categoriesByKind[kind]; !ok {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid transaction kind: '%s'", kind),
		}
	}
	if !category.ValidFor(kind) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Category '%s' is not allowed for %s transactions", category, kind),
		}
	}
	return nil
}
