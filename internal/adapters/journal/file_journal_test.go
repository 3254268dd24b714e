package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
)

func testAlert(seq int64) *domain.Alert {
	return &domain.Alert{
		ID:        "alert-" + string(rune('a'+seq)),
		Severity:  domain.SeverityCritical,
		Feature:   "latency",
		Kind:      domain.MetricJSDivergence,
		Value:     0.42,
		Threshold: 0.2,
		WindowSeq: seq,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func collect(t *testing.T, j *FileJournal, from ports.JournalEntryID) []*domain.Alert {
	t.Helper()
	var out []*domain.Alert
	err := j.Iterate(from, func(id ports.JournalEntryID, a *domain.Alert) error {
		out = append(out, a)
		return nil
	})
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	return out
}

func TestAppendAndIterate(t *testing.T) {
	j, err := NewFileJournal(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileJournal: %v", err)
	}

	for seq := int64(1); seq <= 3; seq++ {
		id, err := j.Append(testAlert(seq))
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if id != ports.JournalEntryID(seq) {
			t.Fatalf("expected id %d, got %d", seq, id)
		}
	}

	alerts := collect(t, j, 1)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}
	if alerts[0].WindowSeq != 1 || alerts[2].WindowSeq != 3 {
		t.Fatalf("iteration order wrong: %+v", alerts)
	}
	if alerts[1].Feature != "latency" || alerts[1].Severity != domain.SeverityCritical {
		t.Fatalf("alert fields not round-tripped: %+v", alerts[1])
	}
}

func TestIterateFromSkipsCommitted(t *testing.T) {
	j, _ := NewFileJournal(t.TempDir())

	for seq := int64(1); seq <= 5; seq++ {
		j.Append(testAlert(seq))
	}
	if err := j.Commit(3); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	stats := j.Stats()
	if stats.OldestUncommitted != 4 || stats.LatestAppended != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	alerts := collect(t, j, stats.OldestUncommitted)
	if len(alerts) != 2 {
		t.Fatalf("expected the 2 uncommitted entries, got %d", len(alerts))
	}
	if alerts[0].WindowSeq != 4 {
		t.Fatalf("replay must start after the committed id, got seq %d", alerts[0].WindowSeq)
	}
}

func TestReopenReplaysUncommittedTail(t *testing.T) {
	dir := t.TempDir()

	j, _ := NewFileJournal(dir)
	for seq := int64(1); seq <= 4; seq++ {
		j.Append(testAlert(seq))
	}
	j.Commit(2)
	// Flush buffered appends the way Iterate does before reopening.
	if got := collect(t, j, 1); len(got) != 4 {
		t.Fatalf("precondition: expected 4 entries, got %d", len(got))
	}

	reopened, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stats := reopened.Stats()
	if stats.LatestAppended != 4 || stats.OldestUncommitted != 3 {
		t.Fatalf("reopen lost state: %+v", stats)
	}

	alerts := collect(t, reopened, stats.OldestUncommitted)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 replayable alerts, got %d", len(alerts))
	}

	// New appends continue the id sequence.
	id, err := reopened.Append(testAlert(5))
	if err != nil || id != 5 {
		t.Fatalf("append after reopen: id=%d err=%v", id, err)
	}
}

func TestTornTailTruncated(t *testing.T) {
	dir := t.TempDir()

	j, _ := NewFileJournal(dir)
	for seq := int64(1); seq <= 3; seq++ {
		j.Append(testAlert(seq))
	}
	collect(t, j, 1) // flush

	// Simulate a crash mid-append: chop the last record in half.
	path := filepath.Join(dir, "alerts.log")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if err := os.WriteFile(path, raw[:len(raw)-7], 0o644); err != nil {
		t.Fatalf("truncate log: %v", err)
	}

	reopened, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("reopen with torn tail: %v", err)
	}
	alerts := collect(t, reopened, 1)
	if len(alerts) != 2 {
		t.Fatalf("torn record must be dropped: got %d entries", len(alerts))
	}
	if reopened.Stats().LatestAppended != 2 {
		t.Fatalf("unexpected stats after truncation: %+v", reopened.Stats())
	}
}

func TestCommitIsMonotonic(t *testing.T) {
	j, _ := NewFileJournal(t.TempDir())

	for seq := int64(1); seq <= 3; seq++ {
		j.Append(testAlert(seq))
	}
	j.Commit(3)
	j.Commit(1) // stale commit must not move the frontier backwards

	if got := j.Stats().OldestUncommitted; got != 4 {
		t.Fatalf("commit frontier regressed: oldest uncommitted %d", got)
	}
}

func TestEmptyJournalStats(t *testing.T) {
	j, _ := NewFileJournal(t.TempDir())

	stats := j.Stats()
	if stats.LatestAppended != 0 || stats.SizeBytes != 0 {
		t.Fatalf("fresh journal should be empty: %+v", stats)
	}
	if got := collect(t, j, 1); got != nil {
		t.Fatalf("fresh journal iterated entries: %v", got)
	}
}
