package budget

import (
	"time"

	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
)

// REQUESTS START:
type TransactionRequest struct {
	Date        string
	Kind        string
	Category    string
	Amount      string
	Description string
	Recurring   bool
}

type TransactionFilter struct {
	Kind     ledger.Kind
	Category ledger.Category
	Period   *ledger.Period
}

// Editable transaction fields for UpdateTransaction.
const (
	FieldDate        = "date"
	FieldKind        = "kind"
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldRecurring   = "recurring"
)

// REQUESTS END:

// RESPONSES:
type AccountInfo struct {
	Username         string
	JoinDate         time.Time
	IsAdmin          bool
	TransactionCount int
	NetPosition      ledger.Money
}

type Dashboard struct {
	Period       ledger.Period
	AllTime      ledger.Totals
	Month        ledger.Totals
	Daily        []ledger.DayFlow
	Distribution []ledger.CategoryShare
}

type BudgetReport struct {
	Period      ledger.Period
	Totals      ledger.Totals
	Evaluations []Evaluation
	Advice      *Evaluation
}

type MonthlyReport struct {
	Period       ledger.Period
	Totals       ledger.Totals
	Transactions []ledger.Transaction
}

type UserLedger struct {
	User         auth.User
	Totals       ledger.Totals
	Transactions []ledger.Transaction
}
