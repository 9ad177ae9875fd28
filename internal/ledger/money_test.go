package ledger

import (
	"testing"

	appErrors "github.com/fatali-fataliyev/finance_tracker/customErrors"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "dot separator", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "integer", input: "150", want: 15000},
		{name: "single fraction digit", input: "0.5", want: 50},
		{name: "round down", input: "12.344", want: 1234},
		{name: "round up", input: "12.345", want: 1235},
		{name: "zero is allowed", input: "0", want: 0},
		{name: "leading dot", input: ".75", want: 75},
		{name: "surrounding spaces", input: "  9.99 ", want: 999},
		{name: "empty", input: "", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "explicit plus", input: "+5", wantErr: true},
		{name: "letters", input: "12a", wantErr: true},
		{name: "two separators", input: "1.2.3", wantErr: true},
		{name: "lone dot", input: ".", wantErr: true},
		{name: "arabic-indic digit", input: "1.٣", wantErr: true},
		{name: "fullwidth digit", input: "1.５", wantErr: true},
		{name: "exponent", input: "1e3", wantErr: true},
		{name: "inner space", input: "1 000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Cents())
		})
	}
}

func TestMoneyString(t *testing.T) {
	require.Equal(t, "0.00", Money{}.String())
	require.Equal(t, "12.05", Cents(1205).String())
	require.Equal(t, "-3.40", Cents(-340).String())
	require.Equal(t, "0.50", Cents(50).String())
	require.Equal(t, int64(1999), Cents(1999).Cents())
}

func TestParseMoneyUpperBound(t *testing.T) {
	_, err := ParseMoney("9999999999999.99")
	require.NoError(t, err)
	_, err = ParseMoney("10000000000000")
	require.Error(t, err)
}

func TestMoneySumBeyondInt64Cents(t *testing.T) {
	top, err := ParseMoney("9999999999999.99")
	require.NoError(t, err)

	var sum Money
	for i := 0; i < 10000; i++ {
		sum = sum.Add(top)
	}
	require.Equal(t, "99999999999999900.00", sum.String())
	require.True(t, sum.Sub(top).Cmp(sum) < 0)
}
