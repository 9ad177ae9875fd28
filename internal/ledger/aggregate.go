package ledger

import (
	"sort"
)

// Totals is the result of aggregating a set of transactions.
type Totals struct {
	Income     Money
	Expense    Money
	Net        Money
	ByCategory map[Category]Money // expenses only
	Count      int
	// Skipped lists transactions left out of a period aggregation
	// because their date is malformed.
	Skipped []int64
}

func (t Totals) IsProfit() bool {
	return !t.Net.IsNegative()
}

// Aggregate sums txns by kind and expense category. A nil period aggregates
// everything; otherwise only transactions dated inside the period count.
func Aggregate(txns []Transaction, period *Period) Totals {
	totals := Totals{ByCategory: make(map[Category]Money)}

	for _, t := range txns {
		if period != nil {
			if !t.Date.IsValid() {
				totals.Skipped = append(totals.Skipped, t.ID)
				continue
			}
			if !period.Contains(t.Date) {
				continue
			}
		}

		switch t.Kind {
		case Income:
			totals.Income = totals.Income.Add(t.Amount)
		case Expense:
			totals.Expense = totals.Expense.Add(t.Amount)
			totals.ByCategory[t.Category] = totals.ByCategory[t.Category].Add(t.Amount)
		default:
			continue
		}
		totals.Count++
	}

	totals.Net = totals.Income.Sub(totals.Expense)
	return totals
}

func NetPosition(txns []Transaction) Money {
	return Aggregate(txns, nil).Net
}

type CategoryShare struct {
	Category Category
	Amount   Money
	Percent  float64
}

// Distribution returns the expense share of each category, largest first.
func (t Totals) Distribution() []CategoryShare {
	shares := make([]CategoryShare, 0, len(t.ByCategory))
	for category, amount := range t.ByCategory {
		var percent float64
		if t.Expense.IsPositive() {
			percent = amount.Decimal().Div(t.Expense.Decimal()).Shift(2).InexactFloat64()
		}
		shares = append(shares, CategoryShare{Category: category, Amount: amount, Percent: percent})
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Amount.Cmp(shares[j].Amount); c != 0 {
			return c > 0
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}

type DayFlow struct {
	Date    Date
	Income  Money
	Expense Money
}

// DailyFlow groups txns per calendar day, oldest first. Transactions with a
// malformed date are ignored.
func DailyFlow(txns []Transaction, period *Period) []DayFlow {
	byDay := make(map[Date]*DayFlow)
	for _, t := range txns {
		if !t.Date.IsValid() {
			continue
		}
		if period != nil && !period.Contains(t.Date) {
			continue
		}
		flow, ok := byDay[t.Date]
		if !ok {
			flow = &DayFlow{Date: t.Date}
			byDay[t.Date] = flow
		}
		switch t.Kind {
		case Income:
			flow.Income = flow.Income.Add(t.Amount)
		case Expense:
			flow.Expense = flow.Expense.Add(t.Amount)
		}
	}

	flows := make([]DayFlow, 0, len(byDay))
	for _, flow := range byDay {
		flows = append(flows, *flow)
	}
	sort.Slice(flows, func(i, j int) bool {
		return flows[i].Date.Before(flows[j].Date)
	})
	return flows
}

// Periods lists the distinct periods present in txns, newest first.
func Periods(txns []Transaction) []Period {
	seen := make(map[Period]struct{})
	var periods []Period
	for _, t := range txns {
		if !t.Date.IsValid() {
			continue
		}
		p := t.Date.Period()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[j].Before(periods[i])
	})
	return periods
}

// SortByDate orders txns in place by date then id. Undated rows go last.
func SortByDate(txns []Transaction, ascending bool) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if a.Date.IsValid() != b.Date.IsValid() {
			return a.Date.IsValid()
		}
		if !a.Date.Equal(b.Date) {
			if ascending {
				return a.Date.Before(b.Date)
			}
			return b.Date.Before(a.Date)
		}
		if ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}
