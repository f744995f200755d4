// Package assemble turns one classified row block into a Sale and resolves its identity.
package assemble

import (
	"salesledger/internal/accessor"
	"salesledger/internal/classify"
	"salesledger/internal/sale"
	"strings"
)

// Source tells where the id of a sale came from.
type Source int

const (
	SourceNone Source = iota
	SourceStructural
	SourceOrderNumber
	SourceProductCode
	SourceFingerprint
)

func (s Source) String() string {
	switch s {
	case SourceStructural:
		return "structural"
	case SourceOrderNumber:
		return "order-number"
	case SourceProductCode:
		return "product-code"
	case SourceFingerprint:
		return "fingerprint"
	}
	return "none"
}

// Identity is the outcome of the id priority chain.
type Identity struct {
	ID       string
	LegacyID string
	Source   Source
}

// derivedIdentity is the id the row yields from its text alone: order number,
// then product code, then the content fingerprint.
func derivedIdentity(f classify.Fields) (string, Source) {
	if v := strings.TrimSpace(f.OrderNumber); v != "" {
		return v, SourceOrderNumber
	}
	if v := strings.TrimSpace(f.ProductCode); v != "" {
		return v, SourceProductCode
	}
	if f.Produto == "" && f.Valor == "" && f.Cliente == "" && f.DataHora == "" {
		return "", SourceNone
	}
	return sale.Fingerprint(f.Produto, f.Valor, f.Cliente, f.DataHora), SourceFingerprint
}

// Resolve runs the id priority chain. A structural id always wins, the id the
// text would have produced is then kept as the legacy id.
func Resolve(structuralID string, f classify.Fields) Identity {
	derived, source := derivedIdentity(f)

	structuralID = strings.TrimSpace(structuralID)
	if structuralID == "" {
		return Identity{ID: derived, Source: source}
	}

	id := Identity{ID: structuralID, Source: SourceStructural}
	if derived != "" && derived != structuralID {
		id.LegacyID = derived
	}
	return id
}

// Assemble builds the sale of a row block, it returns false when the block
// carries nothing that could identify or describe an order.
func Assemble(block accessor.RowBlock) (sale.Sale, Identity, bool) {
	f := classify.Classify(block.Cells)
	identity := Resolve(block.StructuralID, f)
	if identity.ID == "" {
		return sale.Sale{}, identity, false
	}

	s := sale.Sale{
		ID:           identity.ID,
		LegacyID:     identity.LegacyID,
		PedidoNumero: f.OrderNumber,
		ProductCode:  f.ProductCode,
		Produto:      f.Produto,
		Valor:        f.Valor,
		Cliente:      f.Cliente,
		DataHora:     f.DataHora,
		Conta:        strings.TrimSpace(block.Conta),
		Plataforma:   strings.TrimSpace(block.Plataforma),
	}
	if identity.Source == SourceStructural {
		s.UpsellerID = identity.ID
	}

	codes := append([]string{}, block.ProductCodes...)
	for _, item := range block.Items {
		codes = append(codes, item.Sku)
	}
	if f.ProductCode != "" {
		codes = append(codes, f.ProductCode)
	}
	s.AddProducts(codes...)
	if s.Produto == "" && len(s.Produtos) == 1 {
		s.Produto = s.Produtos[0]
	}

	if len(block.Items) > 0 {
		s.Itens = append([]sale.Item{}, block.Items...)
	}

	return s, identity, true
}

// AssembleAll assembles every block, dropping the ones that yield no sale.
func AssembleAll(blocks []accessor.RowBlock) (sales []sale.Sale, discarded int) {
	for _, b := range blocks {
		s, _, ok := Assemble(b)
		if !ok {
			discarded++
			continue
		}
		sales = append(sales, s)
	}
	return sales, discarded
}
