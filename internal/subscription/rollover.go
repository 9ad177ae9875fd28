// Package subscription computes renewal dates and due status for recurring
// monthly payments.
package subscription

import (
	"fmt"
	"time"

	"github.com/fatali-fataliyev/finance_tracker/internal/ledger"
)

// NextDueDate returns the first monthly occurrence of origin that is not
// before today. Occurrences keep origin's day of month; in shorter months the
// day is clamped to the month's last day. The clamp never carries over, so an
// origin on the 31st falls on Feb 29 and then Mar 31 again.
func NextDueDate(origin, today ledger.Date) ledger.Date {
	if !origin.Before(today) {
		return origin
	}

	months := (today.Year()-origin.Year())*12 + int(today.Month()) - int(origin.Month())
	candidate := AddMonths(origin, months)
	if candidate.Before(today) {
		candidate = AddMonths(origin, months+1)
	}
	return candidate
}

// AddMonths moves d forward by n calendar months, clamping the day of month.
func AddMonths(d ledger.Date, n int) ledger.Date {
	total := int(d.Month()) - 1 + n
	year := d.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)

	day := d.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return ledger.NewDate(year, month, day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

type Status string

const (
	StatusSettled     Status = "settled"
	StatusApproaching Status = "approaching"
	StatusImminent    Status = "imminent"
)

// Thresholds split days-left into statuses: more than SettledAfter days is
// settled, more than ImminentWithin days is approaching, anything else is
// imminent.
type Thresholds struct {
	SettledAfter   int
	ImminentWithin int
}

func DefaultThresholds() Thresholds {
	return Thresholds{SettledAfter: 25, ImminentWithin: 5}
}

func (th Thresholds) Validate() error {
	if th.ImminentWithin < 0 {
		return fmt.Errorf("imminent threshold must not be negative, got %d", th.ImminentWithin)
	}
	if th.SettledAfter <= th.ImminentWithin {
		return fmt.Errorf("settled threshold (%d) must be greater than imminent threshold (%d)", th.SettledAfter, th.ImminentWithin)
	}
	return nil
}

func (th Thresholds) Classify(daysLeft int) Status {
	switch {
	case daysLeft > th.SettledAfter:
		return StatusSettled
	case daysLeft > th.ImminentWithin:
		return StatusApproaching
	default:
		return StatusImminent
	}
}
