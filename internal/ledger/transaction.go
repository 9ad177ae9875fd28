package ledger

import (
	"fmt"
	"strings"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
)

const (
	MaxDescriptionLength = 1000
	UnnamedDescription   = "Unnamed"
)

type Transaction struct {
	ID          int64
	Owner       string
	Date        Date
	Kind        Kind
	Category    Category
	Amount      Money
	Description string
	Recurring   bool
}

// IsRecurring reports whether the transaction belongs in the subscription view.
// Rows in the subscription category count as recurring even without the flag.
func (t Transaction) IsRecurring() bool {
	return t.Recurring || t.Category == CategorySubscription
}

// Name is the description shown in listings, with a fallback for empty ones.
func (t Transaction) Name() string {
	if strings.TrimSpace(t.Description) == "" {
		return UnnamedDescription
	}
	return t.Description
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Transaction owner cannot be empty!",
		}
	}
	if !t.Date.IsValid() {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrMalformedDate,
			Message: "Transaction date is missing or invalid, expected format YYYY-MM-DD",
		}
	}
	if err := ValidateCategory(t.Kind, t.Category); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Transaction amount cannot be negative",
		}
	}
	if len(t.Description) > MaxDescriptionLength {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Description so long, maximum allowed length is: %d", MaxDescriptionLength),
		}
	}
	return nil
}
