// Package metrics exposes cycle counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Cycles          *prometheus.CounterVec
	CycleSeconds    prometheus.Histogram
	RowBlocks       prometheus.Counter
	Pages           prometheus.Counter
	Accepted        prometheus.Counter
	Duplicates      prometheus.Counter
	Discarded       prometheus.Counter
	HistorySize     prometheus.Gauge
	Deliveries      *prometheus.CounterVec
	LastSuccessUnix prometheus.Gauge

	CPUPercent     prometheus.Gauge
	AllocatedBytes prometheus.Gauge
	Goroutines     prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salesledger_cycles_total",
		Help: "Extraction cycles by outcome (ok, extraction_error, abandoned, store_error).",
	}, []string{"outcome"})
	cycleSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "salesledger_cycle_seconds",
		Buckets: prometheus.DefBuckets,
	})
	rowBlocks := prometheus.NewCounter(prometheus.CounterOpts{Name: "salesledger_row_blocks_total"})
	pages := prometheus.NewCounter(prometheus.CounterOpts{Name: "salesledger_pages_total"})
	accepted := prometheus.NewCounter(prometheus.CounterOpts{Name: "salesledger_sales_accepted_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "salesledger_sales_duplicate_total"})
	discarded := prometheus.NewCounter(prometheus.CounterOpts{Name: "salesledger_sales_discarded_total"})
	historySize := prometheus.NewGauge(prometheus.GaugeOpts{Name: "salesledger_history_size"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "salesledger_deliveries_total",
	}, []string{"sink", "outcome"})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{Name: "salesledger_last_success_unixtime"})

	cpuPercent := prometheus.NewGauge(prometheus.GaugeOpts{Name: "salesledger_host_cpu_percent"})
	allocated := prometheus.NewGauge(prometheus.GaugeOpts{Name: "salesledger_allocated_bytes"})
	goroutines := prometheus.NewGauge(prometheus.GaugeOpts{Name: "salesledger_goroutines"})

	r.MustRegister(
		cycles, cycleSeconds, rowBlocks, pages,
		accepted, duplicates, discarded, historySize,
		deliveries, lastSuccess,
		cpuPercent, allocated, goroutines,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:             r,
		Cycles:          cycles,
		CycleSeconds:    cycleSeconds,
		RowBlocks:       rowBlocks,
		Pages:           pages,
		Accepted:        accepted,
		Duplicates:      duplicates,
		Discarded:       discarded,
		HistorySize:     historySize,
		Deliveries:      deliveries,
		LastSuccessUnix: lastSuccess,
		CPUPercent:      cpuPercent,
		AllocatedBytes:  allocated,
		Goroutines:      goroutines,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
