package classify

import (
	"salesledger/internal/money"
	"strings"
)

// cell is a candidate in the claim pool.
type cell struct {
	idx  int
	text string
}

// rule is a pure predicate plus the extraction it performs on the cell it claims.
type rule struct {
	role    Role
	match   func(c cell, reserved int) bool
	extract func(text string, f *Fields)
}

var columnRules = []rule{
	{
		role: RoleMoney,
		match: func(c cell, reserved int) bool {
			if !money.IsAmount(c.text) {
				return false
			}
			// a product shaped cell is money only when it is not the product
			// and starts with a plain word instead of a code
			return !productShaped(c.text) || (c.idx != reserved && !codedProduct(c.text))
		},
		extract: func(text string, f *Fields) {
			f.Valor = money.FirstAmount(text)
		},
	},
	{
		role: RoleStatus,
		match: func(c cell, _ int) bool {
			if productShaped(c.text) {
				return false
			}
			return dateTimeRegex.MatchString(c.text) || statusWordRegex.MatchString(c.text)
		},
		extract: func(text string, f *Fields) {
			f.DataHora = pickDateTime(text)
		},
	},
	{
		role: RoleOrderNumber,
		match: func(c cell, _ int) bool {
			if money.HasMarker(c.text) || looksDateOrTime(c.text) || productShaped(c.text) {
				return false
			}
			return subOrderRegex.MatchString(c.text) || hasOrderToken(c.text)
		},
		extract: func(text string, f *Fields) {
			f.OrderNumber = orderNumber(text)
		},
	},
	{
		role: RoleClient,
		match: func(c cell, reserved int) bool {
			if c.idx == reserved || money.HasMarker(c.text) {
				return false
			}
			return alphaRunRegex.MatchString(c.text)
		},
		extract: func(text string, f *Fields) {
			f.Cliente = clientName(text)
		},
	},
}

// reservedProductCell is the first product shaped cell, or the first cell.
func reservedProductCell(cols []string) int {
	for i, c := range cols {
		if productShaped(c) {
			return i
		}
	}
	return 0
}

func classifyColumns(cols []string) Fields {
	f := Fields{Roles: make([]Role, len(cols))}
	reserved := reservedProductCell(cols)

	pool := make([]cell, len(cols))
	for i, c := range cols {
		pool[i] = cell{idx: i, text: c}
	}
	claim := func(at int, role Role) cell {
		c := pool[at]
		f.Roles[c.idx] = role
		pool = append(pool[:at], pool[at+1:]...)
		return c
	}

	for _, r := range columnRules {
		for i, c := range pool {
			if r.match(c, reserved) {
				claimed := claim(i, r.role)
				r.extract(claimed.text, &f)
				break
			}
		}
	}

	productText := ""
	if len(pool) > 0 {
		at := 0
		for i, c := range pool {
			if c.idx == reserved {
				at = i
				break
			}
		}
		productText = claim(at, RoleProduct).text
	}

	code, name := productParts(productText)
	f.ProductCode = code
	f.Produto = joinNonEmpty(" ", code, name)
	if f.Valor == "" {
		f.Valor = money.FirstAmount(productText)
	}

	if f.DataHora == "" {
		f.DataHora = pickDateTime(strings.Join(cols, "\n"))
	}

	return f
}
