package window

import (
	"testing"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleAt(ts time.Time, v float64) *domain.Sample {
	return &domain.Sample{
		Timestamp: ts,
		Numeric:   map[string]float64{"x": v},
	}
}

func mustAggregator(t *testing.T, size, grace time.Duration, align Alignment, maxOpen int) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(size, grace, align, maxOpen)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return agg
}

func TestNewAggregatorValidation(t *testing.T) {
	cases := []struct {
		name    string
		size    time.Duration
		grace   time.Duration
		align   Alignment
		maxOpen int
	}{
		{"zero size", 0, 0, AlignCalendar, 4},
		{"negative grace", time.Minute, -time.Second, AlignCalendar, 4},
		{"zero max open", time.Minute, 0, AlignCalendar, 0},
		{"bad alignment", time.Minute, 0, Alignment("hourly"), 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewAggregator(tc.size, tc.grace, tc.align, tc.maxOpen); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCalendarAlignmentBounds(t *testing.T) {
	agg := mustAggregator(t, 5*time.Minute, 0, AlignCalendar, 8)

	// 12:03:30 falls in the [12:00, 12:05) calendar bucket.
	agg.Ingest(sampleAt(base.Add(3*time.Minute+30*time.Second), 1))
	agg.AdvanceWatermark(base.Add(10 * time.Minute))

	sealed := agg.SealReady()
	if len(sealed) != 1 {
		t.Fatalf("expected 1 sealed window, got %d", len(sealed))
	}
	w := sealed[0]
	if !w.Start.Equal(base) || !w.End.Equal(base.Add(5*time.Minute)) {
		t.Fatalf("unexpected bounds [%s, %s)", w.Start, w.End)
	}
}

func TestFirstSampleAlignmentBounds(t *testing.T) {
	agg := mustAggregator(t, 5*time.Minute, 0, AlignFirstSample, 8)

	origin := base.Add(90 * time.Second)
	agg.Ingest(sampleAt(origin, 1))
	agg.Ingest(sampleAt(origin.Add(6*time.Minute), 2))
	agg.AdvanceWatermark(origin.Add(20 * time.Minute))

	sealed := agg.SealReady()
	if len(sealed) != 2 {
		t.Fatalf("expected 2 sealed windows, got %d", len(sealed))
	}
	if !sealed[0].Start.Equal(origin) {
		t.Fatalf("first bucket should start at the first sample: %s", sealed[0].Start)
	}
	if !sealed[1].Start.Equal(origin.Add(5 * time.Minute)) {
		t.Fatalf("second bucket misaligned: %s", sealed[1].Start)
	}
}

func TestNoDuplicationNoLoss(t *testing.T) {
	agg := mustAggregator(t, time.Minute, 0, AlignCalendar, 16)

	const n = 300
	for i := 0; i < n; i++ {
		_, outcome := agg.Ingest(sampleAt(base.Add(time.Duration(i)*time.Second), float64(i)))
		if outcome != Accepted {
			t.Fatalf("sample %d unexpectedly rejected", i)
		}
	}
	agg.AdvanceWatermark(base.Add(time.Hour))

	total := 0
	var lastSeq int64
	var lastStart time.Time
	for _, w := range agg.SealReady() {
		total += w.Count
		if w.Seq <= lastSeq {
			t.Fatalf("sequence numbers must be strictly increasing: %d after %d", w.Seq, lastSeq)
		}
		if w.Start.Before(lastStart) {
			t.Fatalf("windows sealed out of start order")
		}
		lastSeq, lastStart = w.Seq, w.Start
		if !w.Sealed {
			t.Fatalf("window %d not marked sealed", w.Seq)
		}
	}
	if total != n {
		t.Fatalf("samples duplicated or lost: sealed %d of %d", total, n)
	}
	if agg.OpenCount() != 0 {
		t.Fatalf("expected no open windows, got %d", agg.OpenCount())
	}
}

func TestLateSampleDropped(t *testing.T) {
	agg := mustAggregator(t, time.Minute, 30*time.Second, AlignCalendar, 8)

	agg.Ingest(sampleAt(base, 1))
	agg.AdvanceWatermark(base.Add(5 * time.Minute))
	if got := len(agg.SealReady()); got != 1 {
		t.Fatalf("expected 1 sealed window, got %d", got)
	}

	// The [12:00, 12:01) bucket is behind watermark-grace: reject.
	_, outcome := agg.Ingest(sampleAt(base.Add(30*time.Second), 2))
	if outcome != Late {
		t.Fatalf("expected Late, got %v", outcome)
	}

	// Within the grace allowance the bucket is still open for business.
	agg2 := mustAggregator(t, time.Minute, 30*time.Second, AlignCalendar, 8)
	agg2.Ingest(sampleAt(base, 1))
	agg2.AdvanceWatermark(base.Add(time.Minute + 15*time.Second))
	_, outcome = agg2.Ingest(sampleAt(base.Add(45*time.Second), 2))
	if outcome != Accepted {
		t.Fatalf("sample inside the grace period should be accepted")
	}
}

func TestWatermarkNeverRegresses(t *testing.T) {
	agg := mustAggregator(t, time.Minute, 0, AlignCalendar, 8)

	agg.Ingest(sampleAt(base.Add(10*time.Minute), 1))
	agg.AdvanceWatermark(base) // behind the max event time
	if !agg.Watermark().Equal(base.Add(10 * time.Minute)) {
		t.Fatalf("watermark regressed to %s", agg.Watermark())
	}

	agg.Ingest(sampleAt(base.Add(5*time.Minute), 2)) // older event
	if !agg.Watermark().Equal(base.Add(10 * time.Minute)) {
		t.Fatalf("older event moved the watermark: %s", agg.Watermark())
	}
}

func TestForceSealBeyondMaxOpen(t *testing.T) {
	agg := mustAggregator(t, time.Minute, time.Hour, AlignCalendar, 2)

	// The huge grace keeps everything open, so the third bucket must evict
	// the oldest.
	agg.Ingest(sampleAt(base, 1))
	agg.Ingest(sampleAt(base.Add(time.Minute), 2))
	forced, outcome := agg.Ingest(sampleAt(base.Add(2*time.Minute), 3))
	if outcome != Accepted {
		t.Fatalf("expected Accepted")
	}
	if len(forced) != 1 {
		t.Fatalf("expected 1 force-sealed window, got %d", len(forced))
	}
	if !forced[0].ForceSealed {
		t.Fatalf("force-sealed window not flagged")
	}
	if !forced[0].Start.Equal(base) {
		t.Fatalf("expected the oldest bucket to be evicted, got start %s", forced[0].Start)
	}
	if agg.OpenCount() != 2 {
		t.Fatalf("open count should stay at maxOpen, got %d", agg.OpenCount())
	}
}

func TestFlushAllSealsEverything(t *testing.T) {
	agg := mustAggregator(t, time.Minute, 10*time.Minute, AlignCalendar, 8)

	agg.Ingest(sampleAt(base, 1))
	agg.Ingest(sampleAt(base.Add(time.Minute), 2))
	agg.Ingest(sampleAt(base.Add(2*time.Minute), 3))

	flushed := agg.FlushAll()
	if len(flushed) != 3 {
		t.Fatalf("expected 3 flushed windows, got %d", len(flushed))
	}
	for i := 1; i < len(flushed); i++ {
		if !flushed[i-1].Start.Before(flushed[i].Start) {
			t.Fatalf("flush must seal in start order")
		}
	}
	if agg.OpenCount() != 0 {
		t.Fatalf("flush left %d windows open", agg.OpenCount())
	}
}

func TestSealedWindowStats(t *testing.T) {
	agg := mustAggregator(t, time.Minute, 0, AlignCalendar, 8)

	for _, v := range []float64{1, 2, 3, 4} {
		s := sampleAt(base.Add(time.Duration(v)*time.Second), v)
		s.Categorical = map[string]string{"status": "ok"}
		agg.Ingest(s)
	}
	agg.AdvanceWatermark(base.Add(time.Hour))

	sealed := agg.SealReady()
	if len(sealed) != 1 {
		t.Fatalf("expected 1 window, got %d", len(sealed))
	}
	st := sealed[0].Stats["x"]
	if st.Count != 4 || st.Mean != 2.5 || st.Min != 1 || st.Max != 4 {
		t.Fatalf("unexpected summary: %+v", st)
	}
	if sealed[0].Categorical["status"]["ok"] != 4 {
		t.Fatalf("categorical frequency table wrong: %+v", sealed[0].Categorical)
	}
}
