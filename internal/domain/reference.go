package domain

import "time"

// Provenance records how a reference distribution was produced.
type Provenance string

const (
	ProvenanceSnapshot Provenance = "snapshot"
	ProvenanceRolling  Provenance = "rolling"
)

// NumericReference is the per-feature numeric baseline. A reference is either
// sample-based (Values retained, KS runs two-sample) or histogram-based
// (only decayed bin weights retained, KS runs against the fitted CDF).
// Edges are derived once from the reference and reused for every window
// compared against it, so binning stays consistent over time.
type NumericReference struct {
	Values  []float64 `json:"-"`
	Edges   []float64 `json:"edges"`
	Weights []float64 `json:"weights"`
	Total   float64   `json:"total"`
}

// SampleBased reports whether the raw reference sample is available.
func (r *NumericReference) SampleBased() bool { return len(r.Values) > 0 }

// CategoricalReference is the per-feature category frequency baseline.
// Counts are float64 so exponential decay can downweight old windows.
type CategoricalReference struct {
	Counts map[string]float64 `json:"counts"`
	Total  float64            `json:"total"`
}

// ReferenceSet is an immutable collection of per-feature baselines. The
// reference manager replaces the whole set atomically; readers never see a
// partially updated baseline.
type ReferenceSet struct {
	ID          string                           `json:"id"`
	Provenance  Provenance                       `json:"provenance"`
	CreatedAt   time.Time                        `json:"created_at"`
	Numeric     map[string]*NumericReference     `json:"numeric,omitempty"`
	Categorical map[string]*CategoricalReference `json:"categorical,omitempty"`
}

// NumericFor returns the baseline for a numeric feature if it carries at
// least minSamples observations; comparisons against thinner references are
// skipped, not faked.
func (r *ReferenceSet) NumericFor(feature string, minSamples int) (*NumericReference, bool) {
	if r == nil {
		return nil, false
	}
	ref, ok := r.Numeric[feature]
	if !ok || ref.Total < float64(minSamples) {
		return nil, false
	}
	return ref, true
}

// CategoricalFor mirrors NumericFor for categorical features.
func (r *ReferenceSet) CategoricalFor(feature string, minSamples int) (*CategoricalReference, bool) {
	if r == nil {
		return nil, false
	}
	ref, ok := r.Categorical[feature]
	if !ok || ref.Total < float64(minSamples) {
		return nil, false
	}
	return ref, true
}
