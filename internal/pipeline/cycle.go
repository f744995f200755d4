package pipeline

import (
	"context"
	"errors"
	"salesledger/internal/registry"
	"salesledger/internal/report"
	"salesledger/internal/sale"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CycleResult is what one cycle did.
type CycleResult struct {
	Extraction
	Counts   registry.Counts
	Accepted []sale.Sale
	// Total is the history size after the append.
	Total int
	// Reported is true when the cycle started a report.
	Reported bool
	// StateErr is set when the run state could not be saved. The appended
	// sales stand, the registry is rebuilt from history on the next start.
	StateErr error
}

// RunCycle runs one extraction cycle. A failed extraction or append returns
// an error and leaves history, registry and run state untouched.
//
// Sinks are fed in the background after the state was saved, use Wait to
// block on them.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.time.Now()

	ex, err := p.Extract(ctx)
	if err != nil {
		outcome := "extraction_error"
		if errors.Is(err, ErrCycleAbandoned) {
			outcome = "abandoned"
		}
		p.tel.ReportBroken(report_pipeline_extract, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.observe(outcome, start, CycleResult{})
		return CycleResult{}, err
	}

	appended, err := p.store.Append(ex.Sales, p.reg)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_append, err, len(ex.Sales))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.observe("store_error", start, CycleResult{Extraction: ex})
		return CycleResult{}, err
	}

	result := CycleResult{
		Extraction: ex,
		Counts:     appended.Counts,
		Accepted:   appended.Accepted,
		Total:      appended.Total,
	}

	now := p.time.Now()
	for _, s := range appended.Accepted {
		p.state.Remember(s.StrongKeys()...)
	}
	p.state.LastRunAt = &now
	result.Reported = p.reportDue(len(appended.Accepted), now)
	if result.Reported {
		p.state.LastReportAt = &now
	}
	err = p.store.SaveState(p.state)
	if err != nil {
		result.StateErr = err
		p.tel.ReportWarning(report_pipeline_save_state, err)
		span.RecordError(err)
	}

	span.SetAttributes(
		attribute.Int("accepted", result.Counts.Accepted),
		attribute.Int("duplicates", result.Counts.Duplicates),
		attribute.Int("total", result.Total),
	)
	p.observe("ok", start, result)

	if len(result.Accepted) > 0 {
		p.tel.ReportCount(report_pipeline_accepted, int64(len(result.Accepted)))
		p.afterAppend(context.WithoutCancel(ctx), result.Accepted, result.Reported, now)
	} else {
		p.tel.ReportDebug("no new sales", result.Counts.Duplicates, result.Total)
	}
	return result, nil
}

func (p *Pipeline) reportDue(accepted int, now time.Time) bool {
	if accepted == 0 || p.renderer == nil {
		return false
	}
	last := p.state.LastReportAt
	return last == nil || now.Sub(*last) >= p.cfg.ReportEvery
}

func (p *Pipeline) observe(outcome string, start time.Time, result CycleResult) {
	if p.metrics == nil {
		return
	}
	m := p.metrics
	m.Cycles.WithLabelValues(outcome).Inc()
	m.CycleSeconds.Observe(p.time.Now().Sub(start).Seconds())
	if outcome != "ok" {
		return
	}
	m.Pages.Add(float64(result.Pages))
	m.RowBlocks.Add(float64(result.RowBlocks))
	m.Accepted.Add(float64(result.Counts.Accepted))
	m.Duplicates.Add(float64(result.Counts.Duplicates))
	m.Discarded.Add(float64(result.Counts.Discarded + result.Extraction.Discarded))
	m.HistorySize.Set(float64(result.Total))
	m.LastSuccessUnix.Set(float64(p.time.Now().Unix()))
}

func (p *Pipeline) delivered(sink string, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.Deliveries.WithLabelValues(sink, outcome).Inc()
}

func (p *Pipeline) afterAppend(ctx context.Context, accepted []sale.Sale, reportDue bool, at time.Time) {
	if len(p.saleSinks) == 0 && !reportDue {
		return
	}

	p.hooks.Add(1)
	go func() {
		defer p.hooks.Done()

		for _, s := range accepted {
			for _, sink := range p.saleSinks {
				err := sink.SendSale(ctx, s)
				if err != nil {
					p.tel.ReportWarning(report_pipeline_deliver_sale, err, s.ID)
				}
				p.delivered("sale", err)
			}
		}

		if reportDue {
			p.publishReport(ctx, at)
		}
	}()
}

// publishReport renders the full history and hands the file to every report
// sink.
func (p *Pipeline) publishReport(ctx context.Context, at time.Time) {
	ctx, span := tracer.Start(ctx, "publishReport")
	defer span.End()

	history := p.store.Load()
	path, err := report.WriteFile(p.renderer, p.cfg.ReportDir, history, at.In(p.time.Location()))
	if err != nil {
		p.tel.ReportBroken(report_pipeline_report, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	p.tel.ReportDebug("report written", path, len(history))

	for _, sink := range p.reportSinks {
		err := sink.SendReport(ctx, path)
		if err != nil {
			p.tel.ReportWarning(report_pipeline_report, err, path)
		}
		p.delivered("report", err)
	}
}
