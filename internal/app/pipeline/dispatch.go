package pipeline

import (
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
)

// DispatchConfig bounds the retry behavior for a failing alert sink.
type DispatchConfig struct {
	Attempts int
	Backoff  time.Duration
}

// RunDispatch delivers journaled alerts to the sink. Failed batches are
// retried with exponential backoff up to the attempt budget; exhausted
// batches are recorded as dropped, never silently lost. The journal is
// committed only after the sink acknowledged (or the budget ran out), so a
// crash replays undelivered alerts.
func RunDispatch(q ports.AlertQueue, journal ports.Journal, sink ports.AlertSink, cfg DispatchConfig, pol ports.Policy, obs ports.Observability, stop <-chan struct{}) {
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		batch := q.DequeueBatch(pol.MaxBatchSize)
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

		alerts := make([]*domain.Alert, len(batch))
		var maxID ports.JournalEntryID
		for i, item := range batch {
			alerts[i] = item.Alert
			if item.ID > maxID {
				maxID = item.ID
			}
		}

		if err := writeWithRetry(sink, alerts, cfg); err != nil {
			for _, a := range alerts {
				obs.RecordDroppedAlert(a, err)
			}
		}

		if err := journal.Commit(maxID); err != nil {
			obs.LogError("journal_commit_failed", err)
		}
		obs.SetGauge("drift_journal_size_bytes", float64(journal.Stats().SizeBytes))
	}
}

func writeWithRetry(sink ports.AlertSink, alerts []*domain.Alert, cfg DispatchConfig) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		if err = sink.WriteAlerts(alerts); err == nil {
			return nil
		}
		if i < attempts-1 && backoff > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}

// ReplayJournal pushes the journal's uncommitted tail back onto the dispatch
// queue after a restart.
func ReplayJournal(journal ports.Journal, q ports.AlertQueue, pol ports.Policy, obs ports.Observability) error {
	st := journal.Stats()
	if st.LatestAppended == 0 {
		return nil
	}
	start := st.OldestUncommitted
	if start == 0 || start > st.LatestAppended {
		return nil
	}

	var replayed int
	err := journal.Iterate(start, func(id ports.JournalEntryID, a *domain.Alert) error {
		if !enqueueAlert(q, id, a, pol, obs) {
			obs.RecordDroppedAlert(a, nil)
		} else {
			replayed++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		obs.LogInfo("journal_replay_complete",
			ports.Field{Key: "alerts", Value: replayed},
			ports.Field{Key: "from_id", Value: uint64(start)})
	}
	return nil
}
