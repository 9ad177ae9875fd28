package subscription

import (
	"sort"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
)

type Entry struct {
	TransactionID int64
	Name          string
	Category      ledger.Category
	Amount        ledger.Money
	Origin        ledger.Date
	NextDue       ledger.Date
	DaysLeft      int
	Status        Status
}

// Omission records a recurring transaction that could not be scheduled.
type Omission struct {
	TransactionID int64
	Name          string
	Reason        string
}

type Schedule struct {
	Entries      []Entry
	Omitted      []Omission
	MonthlyTotal ledger.Money
}

// BuildSchedule lists the next payment of every recurring transaction in txns,
// soonest first. Transactions without a usable date are reported in Omitted
// and do not stop the rest of the schedule.
func BuildSchedule(txns []ledger.Transaction, today ledger.Date, th Thresholds) Schedule {
	var schedule Schedule

	for _, t := range txns {
		if !t.IsRecurring() {
			continue
		}
		if !t.Date.IsValid() {
			schedule.Omitted = append(schedule.Omitted, Omission{
				TransactionID: t.ID,
				Name:          t.Name(),
				Reason:        appErrors.ErrMalformedDate,
			})
			continue
		}

		next := NextDueDate(t.Date, today)
		daysLeft := today.DaysUntil(next)
		schedule.Entries = append(schedule.Entries, Entry{
			TransactionID: t.ID,
			Name:          t.Name(),
			Category:      t.Category,
			Amount:        t.Amount,
			Origin:        t.Date,
			NextDue:       next,
			DaysLeft:      daysLeft,
			Status:        th.Classify(daysLeft),
		})
		schedule.MonthlyTotal = schedule.MonthlyTotal.Add(t.Amount)
	}

	sort.SliceStable(schedule.Entries, func(i, j int) bool {
		a, b := schedule.Entries[i], schedule.Entries[j]
		if !a.NextDue.Equal(b.NextDue) {
			return a.NextDue.Before(b.NextDue)
		}
		return a.TransactionID < b.TransactionID
	})
	return schedule
}
