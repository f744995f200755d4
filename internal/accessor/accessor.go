// Package accessor defines what the sales pipeline consumes from the order
// listing page. Browser control, login and rendering live behind it.
package accessor

import (
	"context"
	"salesledger/internal/sale"
)

// RowBlock is one candidate order as it was rendered on the page.
type RowBlock struct {
	// Cells are the raw cell texts in page order. A row that was not rendered as
	// discrete cells arrives as a single cell holding the whole block.
	Cells []string

	// StructuralID is the platform identity read from the page structure (ex. the
	// "#UP…" header preceding the row), not from classified text.
	StructuralID string

	// ProductCodes are the sku links found in the product cell, when the layout
	// exposes them.
	ProductCodes []string

	// Items are the structured line items of the product cell, when available.
	Items []sale.Item

	Conta      string
	Plataforma string
}

// Accessor supplies row blocks page by page.
type Accessor interface {
	// RowBlocks returns the row blocks of the page currently shown.
	RowBlocks(ctx context.Context) ([]RowBlock, error)

	// AdvancePage moves to the next page, it returns false when there is none.
	AdvancePage(ctx context.Context) (bool, error)

	// FirstPage returns to the first page, it returns false when that was not possible.
	FirstPage(ctx context.Context) (bool, error)
}
