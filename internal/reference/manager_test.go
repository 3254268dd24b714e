package reference

import (
	"testing"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
)

func sealedWindow(t *testing.T, seq int64, values ...float64) *domain.Window {
	t.Helper()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute)
	w := domain.NewWindow(start, start.Add(time.Minute))
	for i, v := range values {
		w.Add(&domain.Sample{
			Timestamp:   start.Add(time.Duration(i) * time.Second),
			Numeric:     map[string]float64{"x": v},
			Categorical: map[string]string{"status": "ok"},
		})
	}
	w.Seal(seq)
	return w
}

func rollingConfig() Config {
	return Config{Policy: PolicyRolling, WindowCount: 2, Bins: 4, MinSamples: 1}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown policy", Config{Policy: "sliding", Bins: 4, MinSamples: 1}},
		{"rolling without window count", Config{Policy: PolicyRolling, Bins: 4, MinSamples: 1}},
		{"negative decay", Config{Policy: PolicyRolling, WindowCount: 2, Decay: -0.1, Bins: 4, MinSamples: 1}},
		{"decay of one", Config{Policy: PolicyRolling, WindowCount: 2, Decay: 1, Bins: 4, MinSamples: 1}},
		{"one bin", Config{Policy: PolicyManual, Bins: 1, MinSamples: 1}},
		{"zero min samples", Config{Policy: PolicyManual, Bins: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestCurrentNilBeforeBaseline(t *testing.T) {
	m, err := NewManager(rollingConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Current() != nil {
		t.Fatalf("expected nil reference before any baseline")
	}
}

func TestSnapshotBuildsReference(t *testing.T) {
	m, _ := NewManager(Config{Policy: PolicyManual, Bins: 4, MinSamples: 1})

	set, err := m.Snapshot(sealedWindow(t, 1, 1, 2, 3, 4, 5, 6, 7, 8))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if set.Provenance != domain.ProvenanceSnapshot {
		t.Fatalf("unexpected provenance %q", set.Provenance)
	}
	if m.Current() != set {
		t.Fatalf("Current should return the snapshot")
	}

	ref, ok := set.NumericFor("x", 1)
	if !ok {
		t.Fatalf("numeric reference missing")
	}
	if !ref.SampleBased() {
		t.Fatalf("snapshot references should retain raw values")
	}
	if len(ref.Edges) != 5 {
		t.Fatalf("expected bins+1 edges, got %d", len(ref.Edges))
	}
	if ref.Total != 8 {
		t.Fatalf("expected total mass 8, got %g", ref.Total)
	}

	cat, ok := set.CategoricalFor("status", 1)
	if !ok || cat.Counts["ok"] != 8 {
		t.Fatalf("categorical reference wrong: %+v", cat)
	}
}

func TestSnapshotRejectsUnsealed(t *testing.T) {
	m, _ := NewManager(Config{Policy: PolicyManual, Bins: 4, MinSamples: 1})

	w := domain.NewWindow(time.Now(), time.Now().Add(time.Minute))
	if _, err := m.Snapshot(w); err == nil {
		t.Fatalf("expected error for unsealed window")
	}
	if _, err := m.Snapshot(); err == nil {
		t.Fatalf("expected error for empty snapshot")
	}
}

func TestMinSampleGating(t *testing.T) {
	m, _ := NewManager(Config{Policy: PolicyManual, Bins: 4, MinSamples: 100})

	set, err := m.Snapshot(sealedWindow(t, 1, 1, 2, 3))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, ok := set.NumericFor("x", m.MinSamples()); ok {
		t.Fatalf("reference below min_samples must not be usable")
	}
}

func TestRollingRingKeepsLastN(t *testing.T) {
	m, _ := NewManager(rollingConfig())

	m.RollingUpdate(sealedWindow(t, 1, 1, 1, 1, 1))
	m.RollingUpdate(sealedWindow(t, 2, 2, 2, 2, 2))
	m.RollingUpdate(sealedWindow(t, 3, 3, 3, 3, 3))

	set := m.Current()
	if set == nil {
		t.Fatalf("rolling updates should publish a reference")
	}
	ref, _ := set.NumericFor("x", 1)
	// window_count is 2, so window 1's values must have aged out
	if ref.Total != 8 {
		t.Fatalf("expected mass from the last 2 windows (8), got %g", ref.Total)
	}
	for _, v := range ref.Values {
		if v == 1 {
			t.Fatalf("evicted window's values still present")
		}
	}
}

func TestRollingUpdateIgnoredUnderManualPolicy(t *testing.T) {
	m, _ := NewManager(Config{Policy: PolicyManual, Bins: 4, MinSamples: 1})

	m.RollingUpdate(sealedWindow(t, 1, 1, 2, 3))
	if m.Current() != nil {
		t.Fatalf("manual policy must ignore rolling updates")
	}
}

func TestSnapshotResetsRollingState(t *testing.T) {
	m, _ := NewManager(rollingConfig())

	m.RollingUpdate(sealedWindow(t, 1, 1, 1, 1, 1))
	if _, err := m.Snapshot(sealedWindow(t, 2, 5, 6, 7, 8)); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	m.RollingUpdate(sealedWindow(t, 3, 9, 9, 9, 9))
	ref, _ := m.Current().NumericFor("x", 1)
	// The post-snapshot ring restarts: only window 3 contributes.
	if ref.Total != 4 {
		t.Fatalf("expected fresh rolling state after snapshot, total %g", ref.Total)
	}
}

func TestDecayedFoldBecomesHistogramBased(t *testing.T) {
	m, _ := NewManager(Config{Policy: PolicyRolling, WindowCount: 2, Decay: 0.5, Bins: 4, MinSamples: 1})

	m.RollingUpdate(sealedWindow(t, 1, 1, 2, 3, 4, 5, 6, 7, 8))
	first := m.Current()
	firstRef, _ := first.NumericFor("x", 1)
	if firstRef.SampleBased() {
		t.Fatalf("decayed references must drop raw values")
	}
	edges := firstRef.Edges

	m.RollingUpdate(sealedWindow(t, 2, 1, 2, 3, 4))
	second := m.Current()
	if second == first {
		t.Fatalf("fold must publish a new set")
	}
	secondRef, _ := second.NumericFor("x", 1)

	// Old mass halves, new window adds 4: 8*0.5 + 4.
	if secondRef.Total != 8 {
		t.Fatalf("expected decayed total 8, got %g", secondRef.Total)
	}
	for i := range edges {
		if secondRef.Edges[i] != edges[i] {
			t.Fatalf("edges must stay frozen across folds")
		}
	}
}

func TestReferenceAtomicity(t *testing.T) {
	m, _ := NewManager(rollingConfig())
	m.RollingUpdate(sealedWindow(t, 1, 1, 2, 3, 4))

	before := m.Current()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := int64(2); i < 20; i++ {
			m.RollingUpdate(sealedWindow(t, i, float64(i)))
		}
	}()

	// Readers either see the old set or a complete new one, never a
	// half-updated reference.
	for i := 0; i < 1000; i++ {
		set := m.Current()
		if set == nil {
			t.Fatalf("reference disappeared mid-update")
		}
		if set != before {
			ref, ok := set.NumericFor("x", 1)
			if !ok || ref.Total == 0 {
				t.Fatalf("published reference is incomplete")
			}
		}
	}
	<-done
}
