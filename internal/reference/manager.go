// Package reference owns the baseline distributions that sealed windows are
// compared against. References are replaced atomically, never edited in
// place, so concurrent comparator reads always see a consistent snapshot.
package reference

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/stats"
)

// Policy selects how the baseline evolves after bootstrap.
type Policy string

const (
	// PolicyManual keeps the baseline fixed until an operator snapshots again.
	PolicyManual Policy = "manual"
	// PolicyRolling folds each sealed window into the baseline, either as a
	// fixed-size ring of recent windows or with exponential decay.
	PolicyRolling Policy = "rolling"
)

// Config for the manager. Bins is the number of equal-probability histogram
// bins derived from the reference sample; Decay > 0 switches the rolling fold
// from a window ring to exponentially decayed histograms.
type Config struct {
	Policy      Policy
	WindowCount int
	Decay       float64
	Bins        int
	MinSamples  int
}

func (c *Config) Validate() error {
	switch c.Policy {
	case PolicyManual, PolicyRolling:
	default:
		return fmt.Errorf("unknown reference policy %q", c.Policy)
	}
	if c.Policy == PolicyRolling && c.Decay == 0 && c.WindowCount < 1 {
		return fmt.Errorf("rolling reference needs window_count >= 1, got %d", c.WindowCount)
	}
	if c.Decay < 0 || c.Decay >= 1 {
		return fmt.Errorf("reference decay must be in [0, 1), got %g", c.Decay)
	}
	if c.Bins < 2 {
		return fmt.Errorf("reference bins must be >= 2, got %d", c.Bins)
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("reference min_samples must be >= 1, got %d", c.MinSamples)
	}
	return nil
}

// Manager holds the current ReferenceSet behind an atomic pointer. Rolling
// state (the window ring, decayed histograms) is guarded by mu; Current is
// lock-free.
type Manager struct {
	cfg     Config
	current atomic.Pointer[domain.ReferenceSet]

	mu      sync.Mutex
	ring    []*domain.Window
	decayed *domain.ReferenceSet // edges frozen at first build when Decay > 0
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// Current returns the reference set comparators should read, or nil before
// any baseline exists.
func (m *Manager) Current() *domain.ReferenceSet {
	return m.current.Load()
}

// MinSamples is the per-feature mass a reference needs before it is usable.
func (m *Manager) MinSamples() int { return m.cfg.MinSamples }

// Snapshot freezes the given sealed windows as the new baseline. This is the
// manual operator action and the startup bootstrap path; it also resets any
// rolling state.
func (m *Manager) Snapshot(windows ...*domain.Window) (*domain.ReferenceSet, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("snapshot needs at least one sealed window")
	}
	for _, w := range windows {
		if !w.Sealed {
			return nil, fmt.Errorf("snapshot of unsealed window starting %s", w.Start)
		}
	}
	set := m.build(windows, domain.ProvenanceSnapshot)

	m.mu.Lock()
	m.ring = nil
	m.decayed = nil
	m.mu.Unlock()

	m.current.Store(set)
	return set, nil
}

// RollingUpdate folds a newly sealed window into the rolling baseline and
// publishes the rebuilt set. No-op under the manual policy.
func (m *Manager) RollingUpdate(w *domain.Window) {
	if m.cfg.Policy != PolicyRolling || !w.Sealed {
		return
	}

	m.mu.Lock()
	var set *domain.ReferenceSet
	if m.cfg.Decay > 0 {
		set = m.foldDecayedLocked(w)
	} else {
		m.ring = append(m.ring, w)
		if len(m.ring) > m.cfg.WindowCount {
			m.ring = m.ring[len(m.ring)-m.cfg.WindowCount:]
		}
		set = m.build(m.ring, domain.ProvenanceRolling)
	}
	m.mu.Unlock()

	m.current.Store(set)
}

// build pools the given windows into a fresh sample-based reference set.
func (m *Manager) build(windows []*domain.Window, prov domain.Provenance) *domain.ReferenceSet {
	numeric := make(map[string][]float64)
	categorical := make(map[string]map[string]float64)
	for _, w := range windows {
		for name, values := range w.Numeric {
			numeric[name] = append(numeric[name], values...)
		}
		for name, table := range w.Categorical {
			dst := categorical[name]
			if dst == nil {
				dst = make(map[string]float64)
				categorical[name] = dst
			}
			for cat, n := range table {
				dst[cat] += float64(n)
			}
		}
	}

	set := &domain.ReferenceSet{
		ID:          uuid.NewString(),
		Provenance:  prov,
		CreatedAt:   time.Now().UTC(),
		Numeric:     make(map[string]*domain.NumericReference, len(numeric)),
		Categorical: make(map[string]*domain.CategoricalReference, len(categorical)),
	}
	for name, values := range numeric {
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		edges := stats.QuantileEdges(sorted, m.cfg.Bins)
		set.Numeric[name] = &domain.NumericReference{
			Values:  sorted,
			Edges:   edges,
			Weights: stats.BinCounts(sorted, edges),
			Total:   float64(len(sorted)),
		}
	}
	for name, counts := range categorical {
		ref := &domain.CategoricalReference{Counts: counts}
		for _, n := range counts {
			ref.Total += n
		}
		set.Categorical[name] = ref
	}
	return set
}

// foldDecayedLocked downweights the existing histogram mass by (1-decay) and
// adds the window's counts on the frozen edges. Numeric references become
// histogram-based: raw values are not retained across folds.
func (m *Manager) foldDecayedLocked(w *domain.Window) *domain.ReferenceSet {
	if m.decayed == nil {
		seed := m.build([]*domain.Window{w}, domain.ProvenanceRolling)
		for _, ref := range seed.Numeric {
			ref.Values = nil // histogram-based from here on
		}
		m.decayed = seed
		return seed
	}

	prev := m.decayed
	keep := 1 - m.cfg.Decay
	next := &domain.ReferenceSet{
		ID:          uuid.NewString(),
		Provenance:  domain.ProvenanceRolling,
		CreatedAt:   time.Now().UTC(),
		Numeric:     make(map[string]*domain.NumericReference, len(prev.Numeric)),
		Categorical: make(map[string]*domain.CategoricalReference, len(prev.Categorical)),
	}

	for name, ref := range prev.Numeric {
		weights := make([]float64, len(ref.Weights))
		total := ref.Total * keep
		for i, v := range ref.Weights {
			weights[i] = v * keep
		}
		if values, ok := w.Numeric[name]; ok {
			for i, n := range stats.BinCounts(values, ref.Edges) {
				weights[i] += n
			}
			total += float64(len(values))
		}
		next.Numeric[name] = &domain.NumericReference{
			Edges:   ref.Edges,
			Weights: weights,
			Total:   total,
		}
	}
	// A feature first seen after the initial fold gets fresh edges.
	for name, values := range w.Numeric {
		if _, ok := next.Numeric[name]; ok {
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		edges := stats.QuantileEdges(sorted, m.cfg.Bins)
		next.Numeric[name] = &domain.NumericReference{
			Edges:   edges,
			Weights: stats.BinCounts(sorted, edges),
			Total:   float64(len(sorted)),
		}
	}

	for name, ref := range prev.Categorical {
		counts := make(map[string]float64, len(ref.Counts))
		total := 0.0
		for cat, n := range ref.Counts {
			counts[cat] = n * keep
			total += n * keep
		}
		if table, ok := w.Categorical[name]; ok {
			for cat, n := range table {
				counts[cat] += float64(n)
				total += float64(n)
			}
		}
		next.Categorical[name] = &domain.CategoricalReference{Counts: counts, Total: total}
	}
	for name, table := range w.Categorical {
		if _, ok := next.Categorical[name]; ok {
			continue
		}
		counts := make(map[string]float64, len(table))
		total := 0.0
		for cat, n := range table {
			counts[cat] = float64(n)
			total += float64(n)
		}
		next.Categorical[name] = &domain.CategoricalReference{Counts: counts, Total: total}
	}

	m.decayed = next
	return next
}
