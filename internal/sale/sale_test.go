package sale

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrongKeys(t *testing.T) {
	s := Sale{
		ID:         "#UP123",
		UpsellerID: " #UP123 ",
		OrderID:    "12345678901",
		PedidoID:   "",
	}
	require.Equal(t, []string{"#UP123", "12345678901"}, s.StrongKeys())
	require.Empty(t, Sale{}.StrongKeys())
}

func TestPrimaryIDs(t *testing.T) {
	s := Sale{ID: "#UP1", UpsellerID: "#UP1", OrderID: "999"}
	require.Equal(t, []string{"#UP1", "#UP1"}, s.PrimaryIDs())
}

func TestAddProducts(t *testing.T) {
	s := Sale{Produto: "A1"}
	s.AddProducts("A1")
	require.Equal(t, []string{"A1"}, s.Produtos)
	require.Equal(t, "A1", s.Produto)

	s.AddProducts("B2", "A1", " ", "C3")
	require.Equal(t, []string{"A1", "B2", "C3"}, s.Produtos)
	require.Equal(t, "A1 | B2 | C3", s.Produto)

	s = Sale{}
	s.AddProducts("Z9", "B2")
	require.Equal(t, []string{"Z9", "B2"}, s.Produtos)
	require.Equal(t, "B2 | Z9", s.Produto)
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("Blusa", "R$ 29,99", "Maria", "04/02/2026 13:45")
	b := Fingerprint(" Blusa ", "R$ 29,99", "Maria ", "04/02/2026 13:45")
	require.Equal(t, a, b)

	// pinned: history written by earlier versions relies on this exact value
	require.Equal(t, "87c4de451f15dab203bd50edaacd1104c6bb8c34", a)
	require.NotEqual(t, a, Fingerprint("Blusa", "R$ 29,99", "Maria", "04/02/2026 13:46"))
}

func TestUnmarshalValor(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{raw: `{"id": "1", "valor": "R$ 29,99"}`, expected: "R$ 29,99"},
		{raw: `{"id": "1", "valor": 29.99}`, expected: "R$ 29,99"},
		{raw: `{"id": "1", "valor": 1234.5}`, expected: "R$ 1.234,50"},
		{raw: `{"id": "1", "valor": null}`, expected: ""},
		{raw: `{"id": "1"}`, expected: ""},
	}
	for _, test := range tests {
		var s Sale
		require.NoError(t, json.Unmarshal([]byte(test.raw), &s), test.raw)
		require.Equal(t, "1", s.ID)
		require.Equal(t, test.expected, s.Valor, test.raw)
	}
}

func TestUnmarshalKeepsFieldsAfterTypeMismatch(t *testing.T) {
	raw := `{"id": "#UP1", "itens": [{"sku": "ABC1", "preco": 10.5}], "cliente": "Ana", "valor": 10.5}`

	var s Sale
	err := json.Unmarshal([]byte(raw), &s)
	var typeErr *json.UnmarshalTypeError
	require.ErrorAs(t, err, &typeErr)

	require.Equal(t, "#UP1", s.ID)
	require.Equal(t, "Ana", s.Cliente)
	require.Equal(t, "R$ 10,50", s.Valor)
	require.Equal(t, []Item{{Sku: "ABC1"}}, s.Itens)
}
