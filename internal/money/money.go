// Package money handles the Brazilian real amounts shown on the order panel ("R$ 1.234,56").
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountRegex     = regexp.MustCompile(`(?i)R\$\s*[\x{200e}\x{200f}]*\s*(?:\d{1,3}(?:\.\d{3})+|\d+),\d{2}`)
	markerRegex     = regexp.MustCompile(`(?i)R\$\s*[\x{200e}\x{200f}]*\s*\d`)
	bidiMarks       = strings.NewReplacer("\u200e", "", "\u200f", "")
	whitespaceRegex = regexp.MustCompile(`\s+`)
	currencyRegex   = regexp.MustCompile(`(?i)R\$\s?`)
	nonNumericRegex = regexp.MustCompile(`[^0-9.\-]`)
)

// HasMarker reports whether the text carries a currency marker followed by a digit.
func HasMarker(text string) bool {
	return markerRegex.MatchString(text)
}

// IsAmount reports whether the text contains a complete currency amount.
func IsAmount(text string) bool {
	return amountRegex.MatchString(text)
}

// Normalize strips bidi marks, collapses whitespace and renders the currency
// marker as "R$ ".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = bidiMarks.Replace(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	text = currencyRegex.ReplaceAllString(text, "R$ ")
	return strings.TrimSpace(text)
}

// FirstAmount returns the first currency amount found in text, normalized,
// or "" when there is none.
func FirstAmount(text string) string {
	m := amountRegex.FindString(text)
	if m == "" {
		return ""
	}
	return Normalize(m)
}

// RemoveAmounts deletes every currency amount from text.
func RemoveAmounts(text string) string {
	return amountRegex.ReplaceAllString(text, "")
}

// ParseAmount converts a currency text like "R$ 1.234,56" into 1234.56.
func ParseAmount(text string) (decimal.Decimal, bool) {
	cleaned := currencyRegex.ReplaceAllString(bidiMarks.Replace(text), "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimSpace(nonNumericRegex.ReplaceAllString(cleaned, ""))
	if cleaned == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// Format renders an amount the way the panel does, "R$ 1.234,56".
func Format(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	fixed := amount.Abs().StringFixed(2)

	whole, cents, _ := strings.Cut(fixed, ".")
	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return "R$ " + sign + grouped.String() + "," + cents
}

// Sum adds every parseable amount, unparseable values count as zero.
func Sum(values []string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		amount, ok := ParseAmount(v)
		if ok {
			total = total.Add(amount)
		}
	}
	return total
}
