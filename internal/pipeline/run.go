package pipeline

import (
	"context"
	"fmt"
	"salesledger/internal/chrono"
)

// Run runs a cycle right away, then on every tick of CycleSpec until ctx is
// done. It returns once the scheduler, running deliveries and the final state
// save are finished.
func (p *Pipeline) Run(ctx context.Context, cron chrono.CronAPI) error {
	_, _ = p.RunCycle(ctx)

	err := cron.Cron(p.cfg.CycleSpec, func() {
		if ctx.Err() != nil {
			return
		}
		_, _ = p.RunCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule cycles %q: %w", p.cfg.CycleSpec, err)
	}
	p.tel.ReportDebug("cycles scheduled", p.cfg.CycleSpec)

	<-ctx.Done()
	p.tel.ReportDebug("stopping", context.Cause(ctx))
	cron.Stop()
	p.Wait()
	return p.Shutdown()
}

// Shutdown persists the key cache and the last run time. It waits for a cycle
// in progress to return.
func (p *Pipeline) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.time.Now()
	p.state.LastRunAt = &now
	err := p.store.SaveState(p.state)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_shutdown, err)
		return err
	}
	return nil
}
