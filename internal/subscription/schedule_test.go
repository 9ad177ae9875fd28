package subscription

import (
	"testing"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
	"github.com/stretchr/testify/require"
)

func TestBuildSchedule(t *testing.T) {
	today := d(2024, time.March, 20)
	txns := []ledger.Transaction{
		{ID: 1, Date: d(2024, 1, 15), Kind: ledger.Expense, Category: ledger.CategorySubscription, Amount: ledger.Cents(1599), Description: "Netflix"},
		{ID: 2, Date: d(2024, 2, 22), Kind: ledger.Expense, Category: ledger.CategorySubscription, Amount: ledger.Cents(4999)},
		{ID: 3, Date: ledger.Date{}, Kind: ledger.Expense, Category: ledger.CategorySubscription, Amount: ledger.Cents(999), Description: "Music"},
		{ID: 4, Date: d(2024, 3, 1), Kind: ledger.Expense, Category: ledger.CategoryRent, Amount: ledger.Cents(200000)},
		{ID: 5, Date: d(2023, 12, 1), Kind: ledger.Expense, Category: ledger.CategoryRent, Amount: ledger.Cents(3000), Recurring: true, Description: "Gym"},
	}

	schedule := BuildSchedule(txns, today, DefaultThresholds())

	require.Len(t, schedule.Entries, 3)
	require.Equal(t, int64(2), schedule.Entries[0].TransactionID)
	require.Equal(t, d(2024, 3, 22), schedule.Entries[0].NextDue)
	require.Equal(t, 2, schedule.Entries[0].DaysLeft)
	require.Equal(t, StatusImminent, schedule.Entries[0].Status)
	require.Equal(t, ledger.UnnamedDescription, schedule.Entries[0].Name)

	require.Equal(t, int64(5), schedule.Entries[1].TransactionID)
	require.Equal(t, d(2024, 4, 1), schedule.Entries[1].NextDue)
	require.Equal(t, StatusApproaching, schedule.Entries[1].Status)

	require.Equal(t, "Netflix", schedule.Entries[2].Name)
	require.Equal(t, d(2024, 4, 15), schedule.Entries[2].NextDue)
	require.Equal(t, 26, schedule.Entries[2].DaysLeft)
	require.Equal(t, StatusSettled, schedule.Entries[2].Status)

	require.Equal(t, []Omission{{TransactionID: 3, Name: "Music", Reason: appErrors.ErrMalformedDate}}, schedule.Omitted)
	require.Equal(t, int64(1599+4999+3000), schedule.MonthlyTotal.Cents())
}

func TestBuildScheduleEmpty(t *testing.T) {
	schedule := BuildSchedule(nil, d(2024, 1, 1), DefaultThresholds())
	require.Empty(t, schedule.Entries)
	require.Empty(t, schedule.Omitted)
	require.True(t, schedule.MonthlyTotal.IsZero())
}
