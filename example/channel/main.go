package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"sync"
	"syscall"
	"time"

	driftdetection "github.com/espirado/model-drift-detection"
)

// Routes alerts from a channel sink to severity-specific workers: warnings go
// to a log, criticals go to a (pretend) pager. Traffic volume triples halfway
// through, which trips the change_point threshold on the sample count.
func main() {
	cfg := &driftdetection.Config{
		Window: driftdetection.WindowConfig{
			Size:       5 * time.Second,
			MinSamples: 10,
		},
		Reference: driftdetection.ReferenceConfig{
			Policy:      "rolling",
			WindowCount: 6,
			MinSamples:  30,
		},
		ChangePoint: driftdetection.ChangePointConfig{
			Signal:  "count",
			Horizon: 24,
			Penalty: 5,
		},
		Thresholds: driftdetection.ThresholdsConfig{
			"count": {
				"change_point": {Warning: 20, Critical: 60},
			},
		},
		Alerting: driftdetection.AlertingConfig{Cooldown: time.Minute},
		Journal:  driftdetection.JournalConfig{Dir: "./journal"},
	}

	flow, err := driftdetection.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("build flow: %v", err)
	}

	sink, batches, closeBatches := driftdetection.NewChannelSink("fanout", 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		route(batches)
	}()

	monitor, err := flow.Notify(driftdetection.NotifySink(sink))
	if err != nil {
		log.Fatalf("build monitor: %v", err)
	}
	if err := monitor.Start(); err != nil {
		log.Fatalf("start monitor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	begin := time.Now()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

feed:
	for {
		select {
		case <-ctx.Done():
			break feed
		case now := <-ticker.C:
			n := 1
			if now.Sub(begin) > 30*time.Second {
				n = 3 // traffic triples
			}
			for i := 0; i < n; i++ {
				monitor.Observe(driftdetection.Sample{
					Timestamp: now,
					Numeric:   map[string]float64{"rps": 100 + rand.Float64()*10},
				})
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := monitor.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	closeBatches()
	wg.Wait()
}

func route(batches <-chan []driftdetection.Alert) {
	for batch := range batches {
		for _, a := range batch {
			switch a.Severity {
			case driftdetection.SeverityCritical:
				fmt.Printf("PAGE oncall: %s shifted by %.0f at window %d\n", a.Feature, a.Value, a.WindowSeq)
			default:
				fmt.Printf("note: %s %s=%.2f\n", a.Feature, a.Kind, a.Value)
			}
		}
	}
}
