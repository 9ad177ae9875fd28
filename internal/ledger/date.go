package ledger

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
)

const (
	DateLayout   = "2006-01-02"
	PeriodLayout = "2006-01"
)

// Date is a calendar date held as UTC midnight. The zero Date means the
// stored value was missing or could not be parsed.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping t's own calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrMalformedDate,
			Message: fmt.Sprintf("Invalid date: '%s', expected format YYYY-MM-DD", s),
		}
	}
	return Date{Time: t}, nil
}

func (d Date) IsValid() bool {
	return !d.Time.IsZero()
}

func (d Date) String() string {
	if !d.IsValid() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// DaysUntil returns the whole days from d to o, negative when o is earlier.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// Period is a calendar year and month.
type Period struct {
	Year  int
	Month time.Month
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(PeriodLayout, strings.TrimSpace(s))
	if err != nil {
		return Period{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid period: '%s', expected format YYYY-MM", s),
		}
	}
	return PeriodOf(t), nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) Contains(d Date) bool {
	return d.IsValid() && d.Year() == p.Year && d.Month() == p.Month
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}
