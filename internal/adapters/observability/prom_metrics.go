package observability

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the drift engine's metrics on the given registerer
// (nil means the default registry).
func NewPromObs(reg prometheus.Registerer) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := map[string]prometheus.Counter{}
	for name, help := range map[string]string{
		"drift_samples_ingested_total":     "Samples accepted into an open window.",
		"drift_samples_rejected_total":     "Samples rejected by validation.",
		"drift_samples_late_total":         "Samples dropped for arriving past the grace period.",
		"drift_windows_sealed_total":       "Windows sealed by the watermark.",
		"drift_windows_force_sealed_total": "Windows force-sealed to bound open-window memory.",
		"drift_windows_insufficient_total": "Feature comparisons skipped for insufficient data.",
		"drift_queue_dropped_total":        "Sealed windows lost to queue backpressure policies.",
		"drift_alerts_emitted_total":       "Alerts emitted by the threshold state machine.",
		"drift_alerts_suppressed_total":    "Alert crossings swallowed by an active cooldown.",
		"drift_alerts_dropped_total":       "Alerts dropped after exhausting dispatch retries.",
	} {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		reg.MustRegister(c)
		counters[name] = c
	}

	gauges := map[string]prometheus.Gauge{}
	for name, help := range map[string]string{
		"drift_open_windows":       "Buckets currently open in the aggregator.",
		"drift_queue_length":       "Sealed windows buffered for evaluation.",
		"drift_journal_size_bytes": "Size of the alert journal on disk.",
		"drift_reference_samples":  "Sample mass in the current reference set.",
	} {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		reg.MustRegister(g)
		gauges[name] = g
	}

	evalLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "drift_evaluation_seconds",
		Help:    "Latency of one sealed window through comparator, change-point run, and thresholds.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
	reg.MustRegister(evalLatency)

	return &PromObs{
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			"drift_evaluation_seconds": evalLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
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

func (p *PromObs) RecordDroppedAlert(a *domain.Alert, err error) {
	p.IncCounter("drift_alerts_dropped_total", 1)
	if err != nil {
		log.Printf("dropped alert feature=%s kind=%s severity=%s err=%v", a.Feature, a.Kind, a.Severity, err)
	}
}
