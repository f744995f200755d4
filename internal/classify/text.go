package classify

import (
	"regexp"
	"salesledger/internal/money"
	"strings"
	"unicode"
)

var (
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	lineBreakRegex   = regexp.MustCompile(`\r?\n`)
	dateRegex        = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	timeRegex        = regexp.MustCompile(`\d{1,2}:\d{2}`)
	dateTimeRegex    = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s*(\d{1,2}:\d{2})`)
	statusWordRegex  = regexp.MustCompile(`(?i)\b(?:ordenado|ordered|pago|pagado|paid|expira|expires)\b`)
	quantityRegex    = regexp.MustCompile(`(?i)(?:\bx|×)\s*\d+\b`)
	quantityLine     = regexp.MustCompile(`(?i)^(?:x|×)\s*\d+`)
	leadingCodeRegex = regexp.MustCompile(`^\s*([A-Za-z0-9]{4,})\b`)
	longNumberRegex  = regexp.MustCompile(`\b\d{10,}\b`)
	longTokenRegex   = regexp.MustCompile(`\b[A-Za-z0-9]{10,}\b`)
	subOrderRegex    = regexp.MustCompile(`(?i)\bsubpedido\b`)
	alphaRunRegex    = regexp.MustCompile(`\p{L}{2,}`)
)

// preferredStatusLabels are searched in order, the first date+time shortly after
// one of them is the order timestamp. "expira" dates are never preferred.
var preferredStatusLabels = []string{"ordenado", "pago", "pagado", "pago em", "paid"}

// statusLabelWindow is how far after a label the date+time may appear.
const statusLabelWindow = 120

func cleanSpaces(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

func splitLines(text string) []string {
	var out []string
	for _, l := range lineBreakRegex.Split(text, -1) {
		l = cleanSpaces(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func looksDateOrTime(t string) bool {
	return dateRegex.MatchString(t) || timeRegex.MatchString(t)
}

func hasQuantity(t string) bool {
	return quantityRegex.MatchString(t)
}

// productShaped is a cell that starts with a code and carries a price or a quantity.
func productShaped(t string) bool {
	return leadingCodeRegex.MatchString(t) && (money.HasMarker(t) || hasQuantity(t))
}

// codedProduct is a product shaped cell whose leading code carries a digit,
// "Total R$ 59,98" is not one.
func codedProduct(t string) bool {
	lines := splitLines(t)
	return len(lines) > 0 && productCode(lines[0]) != "" && productShaped(t)
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	return letter && digit
}

// orderNumber returns the first long numeric token, else the first long mixed
// alphanumeric token.
func orderNumber(text string) string {
	if m := longNumberRegex.FindString(text); m != "" {
		return m
	}
	for _, tok := range longTokenRegex.FindAllString(text, -1) {
		if hasLetterAndDigit(tok) {
			return tok
		}
	}
	return ""
}

func hasOrderToken(text string) bool {
	return orderNumber(text) != ""
}

func firstDateTime(text string) string {
	m := dateTimeRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1] + " " + m[2]
}

// pickDateTime returns the first date+time found near a preferred status label,
// or the first one in the text. Later stamps like an expiry date are ignored so
// the value stays the same across re-scrapes.
func pickDateTime(text string) string {
	lower := strings.ToLower(text)
	for _, label := range preferredStatusLabels {
		idx := strings.Index(lower, label)
		if idx < 0 {
			continue
		}
		end := min(len(lower), idx+statusLabelWindow)
		if dt := firstDateTime(lower[idx:end]); dt != "" {
			return dt
		}
	}
	return firstDateTime(text)
}

// productCode is the leading code token of the first product line, it must
// contain a digit so a plain first word is never taken for a code.
func productCode(firstLine string) string {
	m := leadingCodeRegex.FindStringSubmatch(firstLine)
	if m == nil {
		return ""
	}
	for _, r := range m[1] {
		if unicode.IsDigit(r) {
			return m[1]
		}
	}
	return ""
}

// productParts splits a product cell into its code and its display name. The
// name is every remaining line with prices and quantities removed.
func productParts(text string) (code, name string) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return "", ""
	}
	code = productCode(lines[0])

	var nameParts []string
	for i, l := range lines {
		if l == code || quantityLine.MatchString(l) {
			continue
		}
		if i == 0 && code != "" {
			l = strings.TrimPrefix(strings.TrimSpace(l), code)
		}
		l = money.RemoveAmounts(l)
		l = quantityRegex.ReplaceAllString(l, "")
		l = cleanSpaces(l)
		if l != "" {
			nameParts = append(nameParts, l)
		}
	}
	return code, strings.Join(nameParts, " ")
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// clientName keeps up to three lines of the client cell (name, city, state),
// commas are treated as line breaks.
func clientName(text string) string {
	var parts []string
	for _, l := range splitLines(strings.ReplaceAll(text, ",", "\n")) {
		parts = append(parts, l)
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, " ")
}
