// Package report renders the sales history as a paginated text report.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"salesledger/internal/assert"
	"salesledger/internal/money"
	"salesledger/internal/sale"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const DefaultTitle = "Relatório de Vendas"

// Renderer writes one entry per sale, in the order given.
type Renderer interface {
	Render(w io.Writer, sales []sale.Sale, at time.Time) error
	// Extension is the file extension of the rendered artifact, with the dot.
	Extension() string
}

// TableRenderer renders sales as text tables of at most PageSize rows each.
type TableRenderer struct {
	Title    string
	PageSize int
	// CellWidth truncates long cells, 0 disables truncation.
	CellWidth int
}

var _ Renderer = TableRenderer{}

func NewTableRenderer(pageSize int) TableRenderer {
	assert.Positive(pageSize)
	return TableRenderer{
		Title:     DefaultTitle,
		PageSize:  pageSize,
		CellWidth: 40,
	}
}

func (r TableRenderer) Extension() string {
	return ".txt"
}

func itemCount(s sale.Sale) string {
	if len(s.Itens) == 0 {
		return ""
	}
	return strconv.Itoa(len(s.Itens))
}

func pageCount(total, size int) int {
	if total == 0 {
		return 1
	}
	return (total + size - 1) / size
}

func (r TableRenderer) Render(w io.Writer, sales []sale.Sale, at time.Time) error {
	valores := make([]string, 0, len(sales))
	for _, s := range sales {
		valores = append(valores, s.Valor)
	}
	total := money.Sum(valores)

	_, err := fmt.Fprintf(
		w, "%s\n%s\nTotal vendido (estimado): %s    Itens no relatório: %d\n\n",
		r.Title,
		at.Format("02/01/2006 15:04"),
		money.Format(total),
		len(sales),
	)
	if err != nil {
		return err
	}

	pages := pageCount(len(sales), r.PageSize)
	for page := 0; page < pages; page++ {
		start := page * r.PageSize
		end := min(start+r.PageSize, len(sales))

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(fmt.Sprintf("Página %d/%d", page+1, pages))
		t.AppendHeader(table.Row{"#", "ID", "Pedido", "Data/Hora", "Itens", "Cliente", "Produto", "Valor"})
		if r.CellWidth > 0 {
			configs := make([]table.ColumnConfig, 0, 5)
			for _, name := range []string{"ID", "Pedido", "Cliente", "Produto"} {
				configs = append(configs, table.ColumnConfig{Name: name, WidthMax: r.CellWidth})
			}
			configs = append(configs, table.ColumnConfig{Name: "Valor", Align: text.AlignRight})
			t.SetColumnConfigs(configs)
		}

		for i := start; i < end; i++ {
			s := sales[i]
			t.AppendRow(table.Row{
				i + 1,
				s.ID,
				s.PedidoNumero,
				s.DataHora,
				itemCount(s),
				s.Cliente,
				s.Produto,
				s.Valor,
			})
		}
		if page == pages-1 {
			t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", money.Format(total)})
		}

		_, err = io.WriteString(w, t.Render()+"\n\n")
		if err != nil {
			return err
		}
	}
	return nil
}

// FileName is the report file name for a given instant.
func FileName(at time.Time, ext string) string {
	return fmt.Sprintf("vendas-%s%s", at.Format("2006-01-02-15-04"), ext)
}

// WriteFile renders sales into dir and returns the path of the report.
func WriteFile(r Renderer, dir string, sales []sale.Sale, at time.Time) (string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	var b strings.Builder
	err = r.Render(&b, sales, at)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	path := filepath.Join(dir, FileName(at, r.Extension()))
	err = os.WriteFile(path, []byte(b.String()), 0o644)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
