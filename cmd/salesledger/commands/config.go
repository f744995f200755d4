package commands

import (
	"fmt"
	"path/filepath"
	"salesledger/internal/configutil"
	"salesledger/internal/delivery"
	"salesledger/internal/pipeline"
	"time"
)

type ReportConfig struct {
	Dir          string `json:"dir"`
	EveryMinutes int    `json:"every_minutes"`
	PageSize     int    `json:"page_size"`
}

type WebhookConfig struct {
	SaleURL        string `json:"sale_url"`
	ReportURL      string `json:"report_url"`
	Retries        int    `json:"retries"`
	BaseDelayMs    int    `json:"base_delay_ms"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Config is read from salesledger.json5. Relative paths are taken from the
// directory of the config file.
type Config struct {
	DataDir string `json:"data_dir"`

	OrdersURL string `json:"orders_url"`
	Cookie    string `json:"cookie"`
	PageParam string `json:"page_param"`
	// SnapshotDir replays saved listing pages instead of fetching orders_url.
	SnapshotDir string `json:"snapshot_dir"`
	// CaptureDir keeps a copy of every fetched listing page.
	CaptureDir string `json:"capture_dir"`
	// ExchangesDir keeps the raw HTTP exchanges of every client.
	ExchangesDir string `json:"exchanges_dir"`

	MaxPages              int    `json:"max_pages"`
	CycleSpec             string `json:"cycle_spec"`
	ExtractTimeoutSeconds int    `json:"extract_timeout_seconds"`

	Report  ReportConfig        `json:"report"`
	Webhook WebhookConfig       `json:"webhook"`
	Smtp    delivery.SmtpConfig `json:"smtp"`

	OtlpEndpoint string `json:"otlp_endpoint"`
	MetricsAddr  string `json:"metrics_addr"`
	Timezone     string `json:"timezone"`
}

// ApplyDefaults fills the unset fields and resolves relative paths against
// dir, the directory of the config file.
func (c *Config) ApplyDefaults(dir string) {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Report.PageSize <= 0 {
		c.Report.PageSize = 24
	}
	for _, path := range []*string{&c.DataDir, &c.SnapshotDir, &c.CaptureDir, &c.ExchangesDir} {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(dir, *path)
		}
	}
}

func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

func (c Config) pipelineConfig() pipeline.Config {
	out := pipeline.DefaultConfig()
	if c.MaxPages > 0 {
		out.MaxPages = c.MaxPages
	}
	if c.ExtractTimeoutSeconds > 0 {
		out.ExtractTimeout = time.Duration(c.ExtractTimeoutSeconds) * time.Second
	}
	if c.CycleSpec != "" {
		out.CycleSpec = c.CycleSpec
	}
	if c.Report.EveryMinutes > 0 {
		out.ReportEvery = time.Duration(c.Report.EveryMinutes) * time.Minute
	}
	if c.Report.Dir != "" {
		out.ReportDir = c.Report.Dir
	}
	return out
}

func (c Config) retryPolicy() delivery.RetryPolicy {
	out := delivery.DefaultRetryPolicy()
	if c.Webhook.Retries > 0 {
		out.Attempts = c.Webhook.Retries
	}
	if c.Webhook.BaseDelayMs > 0 {
		out.BaseDelay = time.Duration(c.Webhook.BaseDelayMs) * time.Millisecond
	}
	return out
}
