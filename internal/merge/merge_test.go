package merge

import (
	"slices"
	"testing"

	"salesledger/internal/sale"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestBatch(t *testing.T) {
	testCases := []struct {
		name     string
		input    []sale.Sale
		expected []sale.Sale
	}{
		{
			name: "split rows of one order",
			input: []sale.Sale{
				{ID: "#UP1", UpsellerID: "#UP1", Produto: "SKU-1", Produtos: []string{"SKU-1"}, Valor: "R$ 10,00"},
				{ID: "#UP2", Produto: "Outro", Cliente: "Ana"},
				{ID: "#UP1", Produto: "SKU-2", Produtos: []string{"SKU-2"}, Cliente: "Maria", Valor: "R$ 99,00"},
			},
			expected: []sale.Sale{
				{
					ID:         "#UP1",
					UpsellerID: "#UP1",
					Produto:    "SKU-1 | SKU-2",
					Produtos:   []string{"SKU-1", "SKU-2"},
					Valor:      "R$ 10,00",
					Cliente:    "Maria",
				},
				{ID: "#UP2", Produto: "Outro", Cliente: "Ana"},
			},
		},
		{
			name: "items are unioned",
			input: []sale.Sale{
				{ID: "1", Itens: []sale.Item{{Sku: "A", Quantidade: "x1"}}},
				{ID: "1", Itens: []sale.Item{{Sku: "A", Quantidade: "x1"}, {Sku: "B"}}},
			},
			expected: []sale.Sale{
				{ID: "1", Itens: []sale.Item{{Sku: "A", Quantidade: "x1"}, {Sku: "B"}}},
			},
		},
		{
			name:     "sales without id are dropped",
			input:    []sale.Sale{{Produto: "x"}},
			expected: nil,
		},
	}

	for _, test := range testCases {
		result := Batch(test.input)
		diff := cmp.Diff(test.expected, result, cmpopts.EquateEmpty())
		if diff != "" {
			t.Fatalf("%s: unexpected merge (-want +got)\n%s", test.name, diff)
		}
	}
}

// merging must never drop a value that any observation carried
func TestMergeKeepsEveryObservedValue(t *testing.T) {
	observations := []sale.Sale{
		{ID: "9", Valor: "R$ 1,00"},
		{ID: "9", Cliente: "Maria", Valor: "R$ 2,00"},
		{ID: "9", DataHora: "01/01/2026 10:00", Produtos: []string{"X1"}},
		{ID: "9", Produtos: []string{"X2"}, Conta: "loja"},
	}
	merged := Batch(observations)
	if len(merged) != 1 {
		t.Fatalf("expected a single sale, got %d", len(merged))
	}
	s := merged[0]
	for _, field := range []string{s.Valor, s.Cliente, s.DataHora, s.Conta} {
		if field == "" {
			t.Fatalf("merged sale lost a field: %+v", s)
		}
	}
	if s.Valor != "R$ 1,00" {
		t.Fatalf("first observed value should be kept, got %q", s.Valor)
	}
	if diff := cmp.Diff([]string{"X1", "X2"}, s.Produtos); diff != "" {
		t.Fatal(diff)
	}
}

func TestAccumulatorDoesNotAliasInput(t *testing.T) {
	in := sale.Sale{ID: "1", Produtos: []string{"A"}}
	acc := NewAccumulator()
	acc.Add(in)
	acc.Add(sale.Sale{ID: "1", Produtos: []string{"B"}})
	if len(in.Produtos) != 1 {
		t.Fatalf("input was mutated: %v", in.Produtos)
	}
	if acc.Len() != 1 {
		t.Fatalf("expected 1 sale, got %d", acc.Len())
	}
}

// for fields at most one side carries, the merge result does not depend on
// which row came first
func TestMergeIsOrderIndependent(t *testing.T) {
	testCases := []struct {
		name string
		a    sale.Sale
		b    sale.Sale
	}{
		{
			name: "disjoint scalar fields",
			a:    sale.Sale{ID: "#UP1", UpsellerID: "#UP1", Valor: "R$ 10,00", Conta: "loja"},
			b:    sale.Sale{ID: "#UP1", Cliente: "Maria", DataHora: "04/02/2026 13:45", PedidoNumero: "12345678901"},
		},
		{
			name: "product sets are unioned",
			a:    sale.Sale{ID: "#UP1", Produtos: []string{"SKU-2"}, Valor: "R$ 10,00"},
			b:    sale.Sale{ID: "#UP1", Produtos: []string{"SKU-1"}, Cliente: "Ana"},
		},
		{
			name: "overlapping product sets",
			a:    sale.Sale{ID: "9", Produtos: []string{"A1", "C3"}, ProductCode: "A1"},
			b:    sale.Sale{ID: "9", Produtos: []string{"C3", "B2"}, Plataforma: "Shopee"},
		},
		{
			name: "regenerated product replaces the display name",
			a:    sale.Sale{ID: "9", Produto: "Blusa", Produtos: []string{"X1"}},
			b:    sale.Sale{ID: "9", Produtos: []string{"X2"}, LegacyID: "fp"},
		},
		{
			name: "items on one side",
			a:    sale.Sale{ID: "9", Itens: []sale.Item{{Sku: "X1", Preco: "R$ 1,00"}, {Sku: "X2"}}},
			b:    sale.Sale{ID: "9", Cliente: "Ana", Produtos: []string{"X1", "X2"}},
		},
		{
			name: "one side empty",
			a:    sale.Sale{ID: "9"},
			b:    sale.Sale{ID: "9", Produto: "Blusa", Valor: "R$ 2,00", Produtos: []string{"X1"}},
		},
	}

	clone := func(s sale.Sale) sale.Sale {
		s.Produtos = slices.Clone(s.Produtos)
		s.Itens = slices.Clone(s.Itens)
		return s
	}

	for _, test := range testCases {
		ab := clone(test.a)
		Into(&ab, clone(test.b))
		ba := clone(test.b)
		Into(&ba, clone(test.a))

		diff := cmp.Diff(ab, ba,
			cmpopts.EquateEmpty(),
			cmpopts.SortSlices(func(x, y string) bool { return x < y }),
		)
		if diff != "" {
			t.Fatalf("%s: merge depends on order (-a,b +b,a)\n%s", test.name, diff)
		}
	}
}
