// Package merge folds partial observations of the same order into one sale.
package merge

import (
	"salesledger/internal/sale"
	"slices"
)

func fill(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// Into merges src into dst. Scalar fields keep the first non-empty value
// observed, product codes are unioned and unseen items are appended. Nothing
// observed earlier is ever lost.
func Into(dst *sale.Sale, src sale.Sale) {
	fill(&dst.LegacyID, src.LegacyID)
	fill(&dst.UpsellerID, src.UpsellerID)
	fill(&dst.OrderID, src.OrderID)
	fill(&dst.PedidoID, src.PedidoID)
	fill(&dst.PedidoNumero, src.PedidoNumero)
	fill(&dst.ProductCode, src.ProductCode)
	fill(&dst.Produto, src.Produto)
	fill(&dst.Valor, src.Valor)
	fill(&dst.Cliente, src.Cliente)
	fill(&dst.DataHora, src.DataHora)
	fill(&dst.Conta, src.Conta)
	fill(&dst.Plataforma, src.Plataforma)

	dst.AddProducts(src.Produtos...)

	for _, item := range src.Itens {
		if !slices.Contains(dst.Itens, item) {
			dst.Itens = append(dst.Itens, item)
		}
	}
}

// Accumulator collects sales across pages, merging records that share an id
// and keeping first-seen order.
type Accumulator struct {
	order []string
	byID  map[string]*sale.Sale
}

func NewAccumulator() *Accumulator {
	return &Accumulator{byID: make(map[string]*sale.Sale)}
}

// Add merges each sale into the record with the same id, or starts a new one.
// Sales without an id are ignored.
func (a *Accumulator) Add(sales ...sale.Sale) {
	for _, s := range sales {
		if s.ID == "" {
			continue
		}
		existing, ok := a.byID[s.ID]
		if ok {
			Into(existing, s)
			continue
		}
		cp := s
		cp.Produtos = slices.Clone(s.Produtos)
		cp.Itens = slices.Clone(s.Itens)
		a.byID[s.ID] = &cp
		a.order = append(a.order, s.ID)
	}
}

func (a *Accumulator) Len() int {
	return len(a.order)
}

// Sales returns the merged sales in first-seen order.
func (a *Accumulator) Sales() []sale.Sale {
	out := make([]sale.Sale, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.byID[id])
	}
	return out
}

// Batch merges a single batch by id.
func Batch(sales []sale.Sale) []sale.Sale {
	acc := NewAccumulator()
	acc.Add(sales...)
	return acc.Sales()
}
