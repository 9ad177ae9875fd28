package ledger

import (
	"fmt"
	"strings"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/shopspring/decimal"
)

// Money is a decimal amount kept at two fractional digits.
type Money struct {
	d decimal.Decimal
}

// MaxUnits is the largest whole-unit amount ParseMoney accepts.
const MaxUnits = 9_999_999_999_999

var maxAmount = decimal.New(MaxUnits*100+99, -2)

func Cents(c int64) Money {
	return Money{d: decimal.New(c, -2)}
}

func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Cents is the amount in minor units. Only single stored amounts are
// guaranteed to fit in an int64.
func (m Money) Cents() int64 {
	return m.d.Shift(2).IntPart()
}

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

func (m Money) String() string {
	return m.d.StringFixed(2)
}

// ParseMoney converts a non-negative decimal string to Money.
//
// Both "12.34" and "12,34" are accepted. Amounts are rounded half-up to
// cents. Zero is a valid amount.
func ParseMoney(s string) (Money, error) {
	invalid := appErrors.ErrorResponse{
		Code:    appErrors.ErrInvalidInput,
		Message: fmt.Sprintf("Invalid amount: '%s', example valid amount: 150.75", s),
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s == "." || strings.Count(s, ".") > 1 {
		return Money{}, invalid
	}
	// decimal also takes signs and exponents; amounts are plain ASCII digits.
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, invalid
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, invalid
	}
	d = d.Round(2)
	if d.IsNegative() || d.GreaterThan(maxAmount) {
		return Money{}, invalid
	}
	return Money{d: d}, nil
}
