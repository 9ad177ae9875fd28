package storage

import (
	"time"

	"github.com/fatali-fataliyev/finance_tracker/internal/auth"
	"github.com/fatali-fataliyev/finance_tracker/internal/budget"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
)

// Timestamps are stored as unix seconds so both dialects agree on them.

type dbUser struct {
	Username       string
	HashedPassword string
	JoinDate       int64
	IsAdmin        bool
}

func (u dbUser) toUser() auth.User {
	return auth.User{
		Username:       u.Username,
		PasswordHashed: u.HashedPassword,
		JoinDate:       time.Unix(u.JoinDate, 0).UTC(),
		IsAdmin:        u.IsAdmin,
	}
}

type dbSession struct {
	ID        string
	Token     string
	CreatedAt int64
	ExpireAt  int64
	Username  string
}

func (s dbSession) toSession() auth.Session {
	return auth.Session{
		ID:        s.ID,
		Token:     s.Token,
		CreatedAt: time.Unix(s.CreatedAt, 0).UTC(),
		ExpireAt:  time.Unix(s.ExpireAt, 0).UTC(),
		Username:  s.Username,
	}
}

type dbTransaction struct {
	ID          int64
	Username    string
	Date        string
	Kind        string
	Category    string
	AmountCents int64
	Description string
	Recurring   bool
}

// toTransaction converts a row. An unparsable date yields a zero Date and
// false, so the row stays visible but is left out of date-based views.
func (t dbTransaction) toTransaction() (ledger.Transaction, bool) {
	txn := ledger.Transaction{
		ID:          t.ID,
		Owner:       t.Username,
		Kind:        ledger.Kind(t.Kind),
		Category:    ledger.Category(t.Category),
		Amount:      ledger.Cents(t.AmountCents),
		Description: t.Description,
		Recurring:   t.Recurring,
	}
	date, err := ledger.ParseDate(t.Date)
	if err != nil {
		return txn, false
	}
	txn.Date = date
	return txn, true
}

type dbCategoryLimit struct {
	Username    string
	Category    string
	AmountCents int64
}

func (l dbCategoryLimit) toLimit() budget.CategoryLimit {
	return budget.CategoryLimit{
		Owner:    l.Username,
		Category: ledger.Category(l.Category),
		Amount:   ledger.Cents(l.AmountCents),
	}
}
