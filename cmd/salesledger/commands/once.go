package commands

import (
	"os"
	"salesledger/internal/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(onceCmd)
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Runs a single extraction cycle and prints what it did.",
	Run: func(cmd *cobra.Command, args []string) {
		a := setup()
		p := a.pipeline(nil)

		result, err := p.RunCycle(cmd.Context())
		if err != nil {
			serviceutil.Fatal("cycle failed", err)
		}
		p.Wait()
		err = p.Shutdown()
		if err != nil {
			serviceutil.Fatal("failed to save run state", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Pages", "Row blocks", "Accepted", "Duplicates", "Discarded", "History", "Report"})
		t.AppendRow(table.Row{
			result.Pages,
			result.RowBlocks,
			result.Counts.Accepted,
			result.Counts.Duplicates,
			result.Counts.Discarded + result.Extraction.Discarded,
			result.Total,
			result.Reported,
		})
		t.Render()

		if len(result.Accepted) == 0 {
			return
		}
		sales := table.NewWriter()
		sales.SetOutputMirror(os.Stdout)
		sales.SetStyle(table.StyleRounded)
		sales.AppendHeader(table.Row{"ID", "Pedido", "Data/Hora", "Cliente", "Produto", "Valor"})
		for _, s := range result.Accepted {
			sales.AppendRow(table.Row{s.ID, s.PedidoNumero, s.DataHora, s.Cliente, s.Produto, s.Valor})
		}
		sales.Render()
	},
}
