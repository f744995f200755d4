package commands

import (
	"context"
	"net/http"
	"salesledger/internal/chrono"
	"salesledger/internal/metrics"
	"salesledger/internal/serviceutil"
	"salesledger/internal/telemetry"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs extraction cycles on the configured schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := setup()

		tracing, err := telemetry.SetupTracing(ctx, "salesledger", a.cfg.OtlpEndpoint)
		if err != nil {
			serviceutil.Fatal("failed to setup tracing", err)
		}
		defer tracing.Shutdown(context.Background())

		m := metrics.NewRegistry()
		if a.cfg.MetricsAddr != "" {
			m.InstrumentHost(ctx, 15*time.Second)
			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			go serviceutil.StartHttpServer(ctx, a.cfg.MetricsAddr, mux)
		}

		p := a.pipeline(m)
		cron := chrono.NewStandardCron(a.time, a.tel)
		err = p.Run(ctx, cron)
		if err != nil {
			serviceutil.Fatal("failed to run cycles", err)
		}
	},
}
