// Package pipeline wires the engine's stages together: intake routes samples
// into windows and seals them, evaluate compares sealed windows against the
// reference and runs change-point detection, dispatch delivers alerts.
// Stages communicate only through bounded queues.
package pipeline

import (
	"fmt"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
	"github.com/espirado/model-drift-detection/internal/window"
)

// RunIntake consumes validated samples until in is closed, sealing windows on
// the event-time watermark and on ticks. On shutdown every remaining open
// window is flushed through the queue so in-flight data drains to completion.
func RunIntake(in <-chan *domain.Sample, ticks <-chan time.Time, agg *window.Aggregator, q ports.WindowQueue, pol ports.Policy, obs ports.Observability) {
	for {
		select {
		case s, ok := <-in:
			if !ok {
				drainIntake(agg, q, pol, obs)
				return
			}
			forced, outcome := agg.Ingest(s)
			if outcome == window.Late {
				obs.IncCounter("drift_samples_late_total", 1)
				continue
			}
			obs.IncCounter("drift_samples_ingested_total", 1)
			for _, w := range forced {
				obs.IncCounter("drift_windows_force_sealed_total", 1)
				pushSealed(w, q, pol, obs)
			}
			sealReady(agg, q, pol, obs)
		case t := <-ticks:
			agg.AdvanceWatermark(t)
			sealReady(agg, q, pol, obs)
		}
		obs.SetGauge("drift_open_windows", float64(agg.OpenCount()))
	}
}

func drainIntake(agg *window.Aggregator, q ports.WindowQueue, pol ports.Policy, obs ports.Observability) {
	for _, w := range agg.FlushAll() {
		obs.IncCounter("drift_windows_sealed_total", 1)
		pushSealed(w, q, pol, obs)
	}
	obs.SetGauge("drift_open_windows", 0)
}

func sealReady(agg *window.Aggregator, q ports.WindowQueue, pol ports.Policy, obs ports.Observability) {
	for _, w := range agg.SealReady() {
		obs.IncCounter("drift_windows_sealed_total", 1)
		pushSealed(w, q, pol, obs)
	}
}

// pushSealed applies the backpressure policy: "block" slows the intake stage
// (and through the bounded sample channel, the producer) until the evaluator
// catches up; "drop" sheds the window and counts it.
func pushSealed(w *domain.Window, q ports.WindowQueue, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(w); ok {
			obs.SetGauge("drift_queue_length", float64(q.Len()))
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.IncCounter("drift_queue_dropped_total", 1)
			obs.LogError("queue_full_drop", fmt.Errorf("window queue at capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
