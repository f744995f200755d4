package commands

import (
	"errors"
	"path/filepath"
	"salesledger/internal/accessor"
	"salesledger/internal/chrono"
	"salesledger/internal/delivery"
	"salesledger/internal/metrics"
	"salesledger/internal/pipeline"
	"salesledger/internal/report"
	"salesledger/internal/restyutil"
	"salesledger/internal/serviceutil"
	"salesledger/internal/store"
	"salesledger/internal/telemetry"
	"salesledger/internal/upseller"
	"time"
)

var errNoSource = errors.New("neither orders_url nor snapshot_dir is set")

// app holds what every command needs, built from the configuration.
type app struct {
	cfg       Config
	time      chrono.StandardImpl
	tel       telemetry.API
	store     store.Store
	exchanges restyutil.Output
}

func setup() app {
	cfg, err := readConfig(configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("failed to load timezone", err)
	}
	tel := telemetry.SlogAPI{}

	st, err := store.NewStore(cfg.DataDir, clock, tel)
	if err != nil {
		serviceutil.Fatal("failed to open data dir", err)
	}

	a := app{
		cfg:   cfg,
		time:  clock,
		tel:   tel,
		store: st,
	}
	if cfg.ExchangesDir != "" {
		out, err := restyutil.NewFilesystemOutput(cfg.ExchangesDir)
		if err != nil {
			serviceutil.Fatal("failed to create exchanges dir", err)
		}
		a.exchanges = out
	}
	return a
}

func (a app) accessor() accessor.Accessor {
	if a.cfg.SnapshotDir != "" {
		acc, err := upseller.NewSnapshotAccessor(a.cfg.SnapshotDir, a.tel)
		if err != nil {
			serviceutil.Fatal("failed to open snapshot dir", err)
		}
		return acc
	}
	if a.cfg.OrdersURL == "" {
		serviceutil.Fatal("nothing to read orders from", errNoSource)
	}
	return upseller.NewHTTPAccessor(upseller.ClientOptions{
		OrdersURL:  a.cfg.OrdersURL,
		Cookie:     a.cfg.Cookie,
		PageParam:  a.cfg.PageParam,
		CaptureDir: a.cfg.CaptureDir,
		Exchanges:  a.exchanges,
	}, a.tel)
}

// reportDir is the configured report dir, relative paths are taken from the
// data dir.
func (a app) reportDir() string {
	dir := a.cfg.pipelineConfig().ReportDir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(a.cfg.DataDir, dir)
}

func (a app) renderer() report.TableRenderer {
	return report.NewTableRenderer(a.cfg.Report.PageSize)
}

func (a app) sinks() ([]delivery.SaleSink, []delivery.ReportSink) {
	var saleSinks []delivery.SaleSink
	var reportSinks []delivery.ReportSink

	webhook := delivery.NewWebhook(delivery.WebhookOptions{
		SaleURL:   a.cfg.Webhook.SaleURL,
		ReportURL: a.cfg.Webhook.ReportURL,
		Retry:     a.cfg.retryPolicy(),
		Timeout:   time.Duration(a.cfg.Webhook.TimeoutSeconds) * time.Second,
		Exchanges: a.exchanges,
	}, a.time, a.tel)
	if a.cfg.Webhook.SaleURL != "" {
		saleSinks = append(saleSinks, webhook)
	}
	if a.cfg.Webhook.ReportURL != "" {
		reportSinks = append(reportSinks, webhook)
	}
	if a.cfg.Smtp.Enabled() {
		reportSinks = append(reportSinks, delivery.NewMailer(a.cfg.Smtp, a.tel))
	}
	return saleSinks, reportSinks
}

func (a app) pipeline(m *metrics.Registry) *pipeline.Pipeline {
	saleSinks, reportSinks := a.sinks()
	cfg := a.cfg.pipelineConfig()
	cfg.ReportDir = a.reportDir()
	return pipeline.New(cfg, pipeline.Options{
		Accessor:    a.accessor(),
		Store:       a.store,
		Renderer:    a.renderer(),
		SaleSinks:   saleSinks,
		ReportSinks: reportSinks,
		Metrics:     m,
	}, a.time, a.tel)
}
