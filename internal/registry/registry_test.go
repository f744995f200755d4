package registry

import (
	"testing"

	"salesledger/internal/sale"

	"github.com/stretchr/testify/require"
)

func TestAdmit(t *testing.T) {
	history := []sale.Sale{
		{ID: "#UP1", UpsellerID: "#UP1"},
		{ID: "12345678901", OrderID: "ORD-1"},
	}

	testCases := []struct {
		name     string
		sale     sale.Sale
		expected Verdict
	}{
		{name: "new sale", sale: sale.Sale{ID: "#UP9"}, expected: Accepted},
		{name: "same id", sale: sale.Sale{ID: "#UP1"}, expected: Duplicate},
		{name: "id matches another key", sale: sale.Sale{ID: "ORD-1"}, expected: Duplicate},
		{name: "secondary key matches", sale: sale.Sale{ID: "#UP7", PedidoID: "12345678901"}, expected: Duplicate},
		{name: "legacy id recorded as primary", sale: sale.Sale{ID: "#UP8", LegacyID: "12345678901"}, expected: Duplicate},
		{name: "legacy id only known as a secondary key", sale: sale.Sale{ID: "#UP8", LegacyID: "ORD-1"}, expected: Accepted},
		{name: "whitespace key", sale: sale.Sale{ID: "  #UP1 "}, expected: Duplicate},
		{name: "no key", sale: sale.Sale{ID: " ", Produto: "Blusa"}, expected: Discarded},
	}

	for _, test := range testCases {
		txn := FromHistory(history).Begin()
		require.Equal(t, test.expected, txn.Admit(test.sale), test.name)
	}
}

func TestSameBatchDuplicates(t *testing.T) {
	txn := New().Begin()
	counts := txn.Filter([]sale.Sale{
		{ID: "A", OrderID: "O1"},
		{ID: "B", OrderID: "O1"},
		{ID: "A"},
		{ID: "C", LegacyID: "A"},
		{},
	})
	require.Equal(t, Counts{Accepted: 1, Duplicates: 3, Discarded: 1}, counts)
	require.Len(t, txn.Accepted(), 1)
}

func TestUncommittedTxnLeavesRegistryUntouched(t *testing.T) {
	r := New()
	r.AddKeys("cached", " ")
	require.Equal(t, 1, r.Len())

	txn := r.Begin()
	require.Equal(t, Accepted, txn.Admit(sale.Sale{ID: "X", UpsellerID: "UP-X"}))
	require.False(t, r.Has("X"))
	require.False(t, r.Has("UP-X"))

	txn.Commit()
	require.True(t, r.Has("X"))
	require.True(t, r.Has("UP-X"))
	require.Equal(t, Duplicate, r.Begin().Admit(sale.Sale{ID: "Y", LegacyID: "UP-X"}))
	require.Equal(t, Duplicate, r.Begin().Admit(sale.Sale{ID: "cached"}))
}
