package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	accepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "irocv_samples_accepted_total",
		Help: "Readings that passed validation and were logged.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "irocv_samples_rejected_total",
		Help: "Readings rejected by plausibility validation.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "irocv_read_retries_total",
		Help: "Transport read attempts that were retried.",
	})
	archiveErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "irocv_archive_errors_total",
		Help: "Best-effort archive inserts that failed.",
	})
	lastIR := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "irocv_last_ir_ohm",
		Help: "Most recently accepted internal resistance.",
	})
	lastOCV := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "irocv_last_ocv_v",
		Help: "Most recently accepted open-circuit voltage.",
	})
	acquisition := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "irocv_acquisition_seconds",
		Help:    "Duration of one reading-source acquisition attempt.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(accepted, rejected, retries, archiveErrs, lastIR, lastOCV, acquisition)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"irocv_samples_accepted_total": accepted,
			"irocv_samples_rejected_total": rejected,
			"irocv_read_retries_total":     retries,
			"irocv_archive_errors_total":   archiveErrs,
		},
		gauges: map[string]prometheus.Gauge{
			"irocv_last_ir_ohm": lastIR,
			"irocv_last_ocv_v":  lastOCV,
		},
		histos: map[string]prometheus.Observer{
			"irocv_acquisition_seconds": acquisition,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}
