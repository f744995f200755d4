package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	table := []struct {
		input    string
		expected string
		ok       bool
	}{
		{input: "R$ 1.234,56", expected: "1234.56", ok: true},
		{input: "R$29,99", expected: "29.99", ok: true},
		{input: "R$ \u200e12,00", expected: "12", ok: true},
		{input: "r$ 1.000.000,01", expected: "1000000.01", ok: true},
		{input: "", ok: false},
		{input: "sem valor", ok: false},
	}

	for _, row := range table {
		amount, ok := ParseAmount(row.input)
		require.Equal(t, row.ok, ok, row.input)
		if !row.ok {
			continue
		}
		require.True(t, decimal.RequireFromString(row.expected).Equal(amount), "%s => %s", row.input, amount)
	}
}

func TestParseAmountFloat(t *testing.T) {
	amount, ok := ParseAmount("R$ 1.234,56")
	require.True(t, ok)
	require.Equal(t, 1234.56, amount.InexactFloat64())
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "R$ 29,99", Normalize("R$29,99"))
	require.Equal(t, "R$ 29,99", Normalize("  R$\u200f   29,99 "))
	require.Equal(t, "", Normalize(""))
}

func TestFirstAmount(t *testing.T) {
	require.Equal(t, "R$ 29,99", FirstAmount("19936CPA Blusa Feminina R$ 29,99 x1 R$ 10,00"))
	require.Equal(t, "R$ 1.234,56", FirstAmount("total: R$1.234,56"))
	require.Equal(t, "R$ 1234,56", FirstAmount("R$ 1234,56"))
	require.Equal(t, "", FirstAmount("04/02/2026 13:45"))
}

func TestMarkers(t *testing.T) {
	require.True(t, HasMarker("R$ 3"))
	require.False(t, HasMarker("R$"))
	require.True(t, IsAmount("valor R$ 3,00"))
	require.False(t, IsAmount("R$ 3"))
	require.Equal(t, "Blusa ", RemoveAmounts("Blusa R$ 29,99"))
}

func TestFormat(t *testing.T) {
	require.Equal(t, "R$ 1.234,56", Format(decimal.RequireFromString("1234.56")))
	require.Equal(t, "R$ 0,00", Format(decimal.Zero))
	require.Equal(t, "R$ 999,10", Format(decimal.RequireFromString("999.1")))
	require.Equal(t, "R$ 1.000.000,00", Format(decimal.RequireFromString("1000000")))
}

func TestSum(t *testing.T) {
	total := Sum([]string{"R$ 10,00", "R$ 1.234,56", "", "n/a"})
	require.True(t, decimal.RequireFromString("1244.56").Equal(total))
}
