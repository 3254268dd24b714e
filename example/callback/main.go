package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/espirado/model-drift-detection/pkg/driftdetect"
)

// Replays a recorded day of response codes against a healthy baseline. The
// error-rate spike in the afternoon trips the chi_squared threshold; alerts
// surface during the drain when the monitor shuts down.
func main() {
	cfg := &driftdetect.Config{
		Window: driftdetect.WindowConfig{
			Size:        time.Hour,
			GracePeriod: 48 * time.Hour, // replay: keep historical buckets open
			MinSamples:  50,
		},
		Reference: driftdetect.ReferenceConfig{
			Policy:     "manual",
			MinSamples: 500,
		},
		Thresholds: driftdetect.ThresholdsConfig{
			"status": {
				"chi_squared": {Warning: 10, Critical: 50},
			},
		},
		Journal: driftdetect.JournalConfig{Dir: "./journal"},
	}

	monitor, err := driftdetect.NewMonitor(cfg,
		driftdetect.WithAlertSink(driftdetect.NewCallbackSink("report", report)),
	)
	if err != nil {
		log.Fatalf("build monitor: %v", err)
	}

	day := time.Now().Add(-24 * time.Hour).Truncate(time.Hour)

	// Baseline: 1% error rate.
	var baseline []driftdetect.Sample
	for i := 0; i < 1000; i++ {
		baseline = append(baseline, statusSample(day.Add(-time.Hour), i%100 == 0))
	}
	if err := monitor.SetBaseline(baseline); err != nil {
		log.Fatalf("set baseline: %v", err)
	}

	if err := monitor.Start(); err != nil {
		log.Fatalf("start monitor: %v", err)
	}

	// Replay: hours 0-11 healthy, hours 12-23 at a 20% error rate.
	for hour := 0; hour < 24; hour++ {
		for i := 0; i < 100; i++ {
			failing := hour >= 12 && i%5 == 0
			ts := day.Add(time.Duration(hour)*time.Hour + time.Duration(i)*30*time.Second)
			if err := monitor.Observe(statusSample(ts, failing)); err != nil {
				log.Fatalf("observe hour %d: %v", hour, err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := monitor.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func statusSample(ts time.Time, failing bool) driftdetect.Sample {
	code := "200"
	if failing {
		code = "500"
	}
	return driftdetect.Sample{
		Timestamp:   ts,
		Categorical: map[string]string{"status": code},
	}
}

func report(batch []driftdetect.Alert) error {
	for _, a := range batch {
		fmt.Printf("%s [%s] %s %s chi2=%.1f window=%d\n",
			a.Timestamp.Format("15:04"), a.Severity, a.Feature, a.Kind, a.Value, a.WindowSeq)
	}
	return nil
}
