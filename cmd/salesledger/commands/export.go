package commands

import (
	"fmt"
	"salesledger/internal/ledgerdb"
	"salesledger/internal/serviceutil"

	"github.com/spf13/cobra"
)

var exportDb string

func init() {
	exportCmd.Flags().StringVar(&exportDb, "db", "ledger.db", "The sqlite file or libsql url to mirror the history into.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--db <path/to/ledger.db>]",
	Short: "Mirrors the history into a sqlite database.",
	Run: func(cmd *cobra.Command, args []string) {
		a := setup()

		db, err := ledgerdb.Open(exportDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer db.Close()

		n, err := ledgerdb.Export(cmd.Context(), db, a.store.Load())
		if err != nil {
			serviceutil.Fatal("failed to export history", err)
		}
		fmt.Printf("exported %d sales to %s\n", n, exportDb)
	},
}
