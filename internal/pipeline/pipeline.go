// Package pipeline drives extraction cycles: it pulls row blocks page by page,
// assembles and merges them into a batch, appends what the registry accepts
// and hands new sales to the configured sinks.
package pipeline

import (
	"errors"
	"fmt"
	"salesledger/internal/accessor"
	"salesledger/internal/assert"
	"salesledger/internal/chrono"
	"salesledger/internal/delivery"
	"salesledger/internal/metrics"
	"salesledger/internal/registry"
	"salesledger/internal/report"
	"salesledger/internal/store"
	"salesledger/internal/telemetry"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("salesledger/internal/pipeline")

const (
	report_pipeline_extract      = "pipeline.extract"
	report_pipeline_append       = "pipeline.append"
	report_pipeline_first_page   = "pipeline.first-page"
	report_pipeline_deliver_sale = "pipeline.deliver-sale"
	report_pipeline_report       = "pipeline.report"
	report_pipeline_accepted     = "pipeline.accepted"
	report_pipeline_save_state   = "pipeline.save-state"
	report_pipeline_shutdown     = "pipeline.shutdown"
)

// ErrCycleAbandoned is returned when extraction did not finish within the
// extract timeout. Nothing of the cycle is kept.
var ErrCycleAbandoned = errors.New("extraction cycle abandoned")

// ExtractionError is an accessor failure, it fails the whole cycle.
type ExtractionError struct {
	// Page is the 1-based page that was being read.
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract page %d: %v", e.Page, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type Config struct {
	// MaxPages is how many listing pages one cycle reads at most.
	MaxPages int
	// ExtractTimeout bounds one extraction attempt.
	ExtractTimeout time.Duration
	// ExtractRetries is how many more attempts a failed extraction gets within
	// the same cycle, each starting from the first page.
	ExtractRetries int
	// CycleSpec is the robfig/cron spec cycles are scheduled with.
	CycleSpec string
	// ReportEvery is the minimum interval between two reports.
	ReportEvery time.Duration
	ReportDir   string
}

func DefaultConfig() Config {
	return Config{
		MaxPages:       3,
		ExtractTimeout: 70 * time.Second,
		ExtractRetries: 1,
		CycleSpec:      "@every 30s",
		ReportEvery:    10 * time.Minute,
		ReportDir:      "relatorios",
	}
}

func (c Config) normalize() Config {
	defaults := DefaultConfig()
	if c.MaxPages < 1 {
		c.MaxPages = 1
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = defaults.ExtractTimeout
	}
	if c.ExtractRetries < 0 {
		c.ExtractRetries = 0
	}
	if c.CycleSpec == "" {
		c.CycleSpec = defaults.CycleSpec
	}
	if c.ReportDir == "" {
		c.ReportDir = defaults.ReportDir
	}
	return c
}

// Options are the collaborators of a Pipeline. Renderer, sinks and Metrics
// are optional, a nil Renderer disables reports.
type Options struct {
	Accessor    accessor.Accessor
	Store       store.Store
	Renderer    report.Renderer
	SaleSinks   []delivery.SaleSink
	ReportSinks []delivery.ReportSink
	Metrics     *metrics.Registry
}

type Pipeline struct {
	cfg         Config
	accessor    accessor.Accessor
	store       store.Store
	renderer    report.Renderer
	saleSinks   []delivery.SaleSink
	reportSinks []delivery.ReportSink
	metrics     *metrics.Registry
	time        chrono.API
	tel         telemetry.API

	// mu serializes cycles with shutdown, it guards reg and state.
	mu    sync.Mutex
	reg   *registry.Registry
	state store.RunState
	// offFirstPage is set once the accessor may have left the first page.
	offFirstPage bool

	hooks sync.WaitGroup
}

// New builds a pipeline and rehydrates its registry from the full history
// plus the bounded key cache of the run state.
func New(cfg Config, opts Options, time chrono.API, tel telemetry.API) *Pipeline {
	assert.NotNil(opts.Accessor)
	assert.NotNil(time)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("pipeline", tel)

	state := opts.Store.LoadState()
	reg := opts.Store.Rehydrate(state)
	tel.ReportDebug("registry rehydrated", reg.Len())

	return &Pipeline{
		cfg:         cfg.normalize(),
		accessor:    opts.Accessor,
		store:       opts.Store,
		renderer:    opts.Renderer,
		saleSinks:   opts.SaleSinks,
		reportSinks: opts.ReportSinks,
		metrics:     opts.Metrics,
		time:        time,
		tel:         tel,
		reg:         reg,
		state:       state,
	}
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

// State returns a copy of the current run state.
func (p *Pipeline) State() store.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.state
	state.KnownIDs = append([]string(nil), p.state.KnownIDs...)
	return state
}

// Wait blocks until every delivery started by past cycles has returned.
func (p *Pipeline) Wait() {
	p.hooks.Wait()
}
