// Package classify assigns semantic roles to the raw cells of one order row.
//
// Rules run in a fixed precedence against a shrinking pool of unclaimed cells,
// each rule claims at most one cell and a claimed cell is never looked at again:
//
//	money > status/date-time > order number > client > product
//
// Cells shaped like a product line (a leading code followed by a price or a
// quantity) are reserved for the product rule, so the price inside a product
// cell does not make it a money cell.
package classify

import (
	"strings"
)

// Role is the semantic role of a cell.
type Role int

const (
	RoleNone Role = iota
	RoleMoney
	RoleStatus
	RoleOrderNumber
	RoleClient
	RoleProduct
)

func (r Role) String() string {
	switch r {
	case RoleMoney:
		return "money"
	case RoleStatus:
		return "status"
	case RoleOrderNumber:
		return "order-number"
	case RoleClient:
		return "client"
	case RoleProduct:
		return "product"
	}
	return "none"
}

// Fields is what the classifier recovered from one row.
type Fields struct {
	ProductCode string
	Produto     string
	Valor       string
	OrderNumber string
	DataHora    string
	Cliente     string

	// Roles holds the role of every cell (or segment, for unsegmented blocks)
	// in input order.
	Roles []Role
}

// Empty reports whether nothing usable was recovered.
func (f Fields) Empty() bool {
	return f.ProductCode == "" &&
		f.Produto == "" &&
		f.Valor == "" &&
		f.OrderNumber == "" &&
		f.DataHora == "" &&
		f.Cliente == ""
}

// MinColumns is the number of non-empty cells from which a row is treated as
// discrete columns, anything shorter goes through the unsegmented block rules.
const MinColumns = 3

// Classify assigns roles to the cells of a row and extracts its fields.
func Classify(cells []string) Fields {
	var nonEmpty []string
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) == 0 {
		return Fields{}
	}
	if len(nonEmpty) >= MinColumns {
		return classifyColumns(nonEmpty)
	}
	return classifyBlock(nonEmpty)
}
