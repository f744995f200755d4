package commands

import (
	"fmt"
	"salesledger/internal/serviceutil"
	"salesledger/internal/store"

	"github.com/spf13/cobra"
)

var (
	cleanupKeep         string
	cleanupRewriteState bool
)

func init() {
	cleanupCmd.Flags().StringVar(&cleanupKeep, "keep", "first", "Which occurrence of a duplicated sale to keep, first or last.")
	cleanupCmd.Flags().BoolVar(&cleanupRewriteState, "rewrite-state", false, "Rebuild the known id cache from the cleaned history.")
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [--keep first|last] [--rewrite-state]",
	Short: "Removes duplicated sales from the history.",
	Run: func(cmd *cobra.Command, args []string) {
		keep, err := store.ParseKeepPolicy(cleanupKeep)
		if err != nil {
			serviceutil.Fatal("invalid --keep", err)
		}
		a := setup()

		result, err := a.store.Cleanup(store.CleanupOptions{
			Keep:            keep,
			RewriteKeyCache: cleanupRewriteState,
		})
		if err != nil {
			serviceutil.Fatal("cleanup failed", err)
		}
		fmt.Printf("removed %d duplicated sales, %d remain in %s\n", result.Removed, result.Total, a.store.SalesPath())
	},
}
