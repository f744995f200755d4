package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"salesledger/internal/sale"

	"github.com/stretchr/testify/require"
)

var reportTime = time.Date(2026, 2, 4, 13, 45, 0, 0, time.UTC)

func TestRenderPaginates(t *testing.T) {
	var sales []sale.Sale
	for i := 0; i < 5; i++ {
		sales = append(sales, sale.Sale{
			ID:      fmt.Sprintf("#UP%d", i),
			Cliente: fmt.Sprintf("Cliente %d", i),
			Valor:   "R$ 1.000,50",
			Itens:   []sale.Item{{Sku: "A"}},
		})
	}

	var b strings.Builder
	err := NewTableRenderer(2).Render(&b, sales, reportTime)
	require.NoError(t, err)
	out := b.String()

	require.Contains(t, out, "04/02/2026 13:45")
	require.Contains(t, out, "R$ 5.002,50")
	require.Contains(t, out, "Itens no relatório: 5")
	require.Equal(t, 3, strings.Count(out, "Página "))
	require.Contains(t, out, "Página 3/3")

	// entries keep the order they were given in
	last := -1
	for i := 0; i < 5; i++ {
		idx := strings.Index(out, fmt.Sprintf("Cliente %d", i))
		require.Greater(t, idx, last)
		last = idx
	}
}

func TestRenderEmpty(t *testing.T) {
	var b strings.Builder
	err := NewTableRenderer(10).Render(&b, nil, reportTime)
	require.NoError(t, err)
	require.Contains(t, b.String(), "R$ 0,00")
	require.Contains(t, b.String(), "Página 1/1")
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := WriteFile(NewTableRenderer(10), dir, []sale.Sale{{ID: "1", Valor: "R$ 29,99"}}, reportTime)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "vendas-2026-02-04-13-45.txt"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "R$ 29,99")
}
