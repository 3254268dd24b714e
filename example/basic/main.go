package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	driftdetection "github.com/espirado/model-drift-detection"
)

// Feeds a live stream of request latencies into the monitor. The first 30
// seconds look like the baseline; after that the simulated service degrades
// and the js_divergence threshold fires.
func main() {
	cfg := &driftdetection.Config{
		Window: driftdetection.WindowConfig{
			Size:       10 * time.Second,
			MinSamples: 20,
		},
		Reference: driftdetection.ReferenceConfig{
			Policy:     "manual",
			MinSamples: 200,
		},
		Thresholds: driftdetection.ThresholdsConfig{
			"latency_ms": {
				"js_divergence": {Warning: 0.1, Critical: 0.3},
			},
		},
		Alerting: driftdetection.AlertingConfig{Cooldown: 30 * time.Second},
		Journal:  driftdetection.JournalConfig{Dir: "./journal"},
	}

	flow, err := driftdetection.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("build flow: %v", err)
	}

	monitor, err := flow.Notify(driftdetection.NotifyCallback("stdout", printAlerts))
	if err != nil {
		log.Fatalf("build monitor: %v", err)
	}

	// Baseline: an hour of healthy latencies, ~20ms.
	baseline := make([]driftdetection.Sample, 0, 600)
	start := time.Now().Add(-time.Hour)
	for i := 0; i < 600; i++ {
		baseline = append(baseline, latencySample(start.Add(time.Duration(i)*6*time.Second), 20))
	}
	if err := monitor.SetBaseline(baseline); err != nil {
		log.Fatalf("set baseline: %v", err)
	}

	if err := monitor.Start(); err != nil {
		log.Fatalf("start monitor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	begin := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

feed:
	for {
		select {
		case <-ctx.Done():
			break feed
		case now := <-ticker.C:
			mean := 20.0
			if now.Sub(begin) > 30*time.Second {
				mean = 80 // the regression
			}
			if err := monitor.Observe(latencySample(now, mean)); err != nil {
				log.Printf("observe: %v", err)
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := monitor.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func latencySample(ts time.Time, mean float64) driftdetection.Sample {
	return driftdetection.Sample{
		Timestamp: ts,
		Numeric:   map[string]float64{"latency_ms": mean + rand.NormFloat64()*4},
		SourceID:  "checkout-api",
	}
}

func printAlerts(batch []driftdetection.Alert) error {
	for _, a := range batch {
		fmt.Printf("%s [%s] %s %s=%.4f (threshold %.4f)\n",
			a.Timestamp.Format(time.RFC3339), a.Severity, a.Feature, a.Kind, a.Value, a.Threshold)
	}
	return nil
}
