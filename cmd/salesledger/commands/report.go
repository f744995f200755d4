package commands

import (
	"fmt"
	"salesledger/internal/report"
	"salesledger/internal/serviceutil"

	"github.com/spf13/cobra"
)

var (
	reportOut  string
	reportSend bool
)

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "", "The directory to write the report to, defaults to the configured report dir.")
	reportCmd.Flags().BoolVar(&reportSend, "send", false, "Also deliver the report to the configured report sinks.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--out <dir>] [--send]",
	Short: "Renders a report of the whole history now.",
	Run: func(cmd *cobra.Command, args []string) {
		a := setup()
		out := reportOut
		if out == "" {
			out = a.reportDir()
		}

		history := a.store.Load()
		path, err := report.WriteFile(a.renderer(), out, history, a.time.Now())
		if err != nil {
			serviceutil.Fatal("failed to write report", err)
		}
		fmt.Println(path)

		if !reportSend {
			return
		}
		_, sinks := a.sinks()
		for _, sink := range sinks {
			err = sink.SendReport(cmd.Context(), path)
			if err != nil {
				serviceutil.Fatal("failed to deliver report", err)
			}
		}
	},
}
