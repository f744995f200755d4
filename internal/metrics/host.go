package metrics

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

// SampleHost records host cpu usage and runtime memory figures once.
func (r *Registry) SampleHost(ctx context.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	r.AllocatedBytes.Set(float64(memStats.Alloc))
	r.Goroutines.Set(float64(runtime.NumGoroutine()))

	// an interval of 0 compares against the previous call
	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(usage) == 0 {
		slog.Debug("failed to read cpu usage", "err", err)
		return
	}
	r.CPUPercent.Set(usage[0])
}

// InstrumentHost samples host figures every interval until ctx is done.
func (r *Registry) InstrumentHost(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.SampleHost(ctx)
		for {
			select {
			case <-ticker.C:
				r.SampleHost(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
