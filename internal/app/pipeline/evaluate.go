package pipeline

import (
	"fmt"
	"time"

	"github.com/espirado/model-drift-detection/internal/alerting"
	"github.com/espirado/model-drift-detection/internal/changepoint"
	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
	"github.com/espirado/model-drift-detection/internal/reference"
	"github.com/espirado/model-drift-detection/internal/stats"
)

// Evaluator holds the per-run evaluation state. A single goroutine runs it,
// which is what keeps windows flowing through the alert state machine in
// strict sealing order.
type Evaluator struct {
	Comparator *stats.Comparator
	References *reference.Manager
	Detector   *changepoint.Detector
	Alerts     *alerting.Manager
	Journal    ports.Journal
	Dispatch   ports.AlertQueue
	Records    ports.RecordsSink // optional
	Policy     ports.Policy
	Obs        ports.Observability
}

// RunEvaluate drains the window queue until stop is closed and the queue is
// empty, so shutdown never abandons a sealed window mid-flight.
func (e *Evaluator) RunEvaluate(q ports.WindowQueue, stop <-chan struct{}) {
	idle := e.Policy.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		batch := q.DequeueBatch(e.Policy.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-stop:
				if q.Len() == 0 {
					return
				}
			default:
			}
			time.Sleep(idle)
			continue
		}
		e.Obs.SetGauge("drift_queue_length", float64(q.Len()))

		for _, w := range batch {
			e.evaluateWindow(w)
		}
	}
}

func (e *Evaluator) evaluateWindow(w *domain.Window) {
	start := time.Now()
	defer func() {
		e.Obs.ObserveLatency("drift_evaluation_seconds", time.Since(start).Seconds())
	}()

	ref := e.References.Current()
	if ref != nil {
		metrics, skips := e.Comparator.Compare(w, ref, e.References.MinSamples())
		for _, skip := range skips {
			e.Obs.IncCounter("drift_windows_insufficient_total", 1)
			e.Obs.LogInfo("insufficient_data",
				ports.Field{Key: "feature", Value: skip.Feature},
				ports.Field{Key: "kind", Value: string(skip.Kind)},
				ports.Field{Key: "reason", Value: string(skip.Reason)})
		}
		for _, metric := range metrics {
			alert, outcome := e.Alerts.Evaluate(metric)
			e.handleOutcome(alert, outcome)
		}
		if len(metrics) > 0 && e.Records != nil {
			if err := e.Records.WriteMetrics(metrics); err != nil {
				e.Obs.LogError("records_metrics_write_failed", err)
			}
		}
	}

	points := e.Detector.Observe(w)
	for _, cp := range points {
		alert, outcome := e.Alerts.EvaluateChangePoint(cp)
		e.handleOutcome(alert, outcome)
	}
	if len(points) > 0 && e.Records != nil {
		if err := e.Records.WriteChangePoints(points); err != nil {
			e.Obs.LogError("records_changepoints_write_failed", err)
		}
	}

	// Fold the window into the rolling baseline only after it was compared,
	// so a window is never compared against a reference containing itself.
	e.References.RollingUpdate(w)
}

func (e *Evaluator) handleOutcome(alert *domain.Alert, outcome alerting.Outcome) {
	switch outcome {
	case alerting.OutcomeEmitted:
		e.Obs.IncCounter("drift_alerts_emitted_total", 1)
		e.journalAndQueue(alert)
	case alerting.OutcomeSuppressed:
		e.Obs.IncCounter("drift_alerts_suppressed_total", 1)
		e.Obs.LogInfo("alert_suppressed_by_cooldown")
	}
}

func (e *Evaluator) journalAndQueue(alert *domain.Alert) {
	if !waitForJournalCapacity(e.Journal, e.Policy, e.Obs) {
		e.Obs.RecordDroppedAlert(alert, fmt.Errorf("journal full"))
		return
	}
	id, err := e.Journal.Append(alert)
	if err != nil {
		e.Obs.LogCritical("journal_append_failed", err)
		// Dispatch anyway; durability is lost but the alert is not.
	}
	if !enqueueAlert(e.Dispatch, id, alert, e.Policy, e.Obs) {
		e.Obs.RecordDroppedAlert(alert, fmt.Errorf("dispatch queue full"))
	}
}

func waitForJournalCapacity(j ports.Journal, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxJournalBytes <= 0 {
		return true
	}
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		st := j.Stats()
		if st.SizeBytes < pol.MaxJournalBytes {
			return true
		}

		switch pol.OnJournalFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("journal_full_drop", fmt.Errorf("size=%d limit=%d", st.SizeBytes, pol.MaxJournalBytes))
			return false
		default:
			obs.LogError("journal_policy_invalid", fmt.Errorf("policy=%s", pol.OnJournalFull))
			return false
		}
	}
}

func enqueueAlert(q ports.AlertQueue, id ports.JournalEntryID, a *domain.Alert, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(id, a); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
