package domain

import (
	"math"
	"sort"
	"time"
)

// NumericSummary holds the frozen aggregate statistics for one numeric
// feature inside a sealed window.
type NumericSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Window is a time bucket [Start, End) of samples. It is mutable while owned
// by the aggregator and frozen by Seal; sealed windows are the unit handed to
// the comparator and never change afterwards.
type Window struct {
	Seq   int64     `json:"seq"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Count       int                       `json:"count"`
	Numeric     map[string][]float64      `json:"-"`
	Stats       map[string]NumericSummary `json:"stats,omitempty"`
	Categorical map[string]map[string]int `json:"categorical,omitempty"`

	Sealed      bool `json:"sealed"`
	ForceSealed bool `json:"force_sealed,omitempty"`
}

func NewWindow(start, end time.Time) *Window {
	return &Window{
		Start:       start,
		End:         end,
		Numeric:     make(map[string][]float64),
		Categorical: make(map[string]map[string]int),
	}
}

// Contains reports whether ts falls inside [Start, End).
func (w *Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Add routes one sample's features into the window. Panics if called on a
// sealed window; the aggregator owns the window until then.
func (w *Window) Add(s *Sample) {
	if w.Sealed {
		panic("domain: add to sealed window")
	}
	w.Count++
	for name, v := range s.Numeric {
		w.Numeric[name] = append(w.Numeric[name], v)
	}
	for name, cat := range s.Categorical {
		table := w.Categorical[name]
		if table == nil {
			table = make(map[string]int)
			w.Categorical[name] = table
		}
		table[cat]++
	}
}

// Seal freezes the window: per-feature summaries are computed, value slices
// are sorted (comparator input order is irrelevant and sorted input is what
// the KS test needs), and further Add calls become invalid.
func (w *Window) Seal(seq int64) {
	if w.Sealed {
		return
	}
	w.Seq = seq
	w.Stats = make(map[string]NumericSummary, len(w.Numeric))
	for name, values := range w.Numeric {
		sort.Float64s(values)
		w.Stats[name] = summarize(values)
	}
	w.Sealed = true
}

func summarize(sorted []float64) NumericSummary {
	n := len(sorted)
	if n == 0 {
		return NumericSummary{}
	}
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range sorted {
		d := v - mean
		sq += d * d
	}
	std := 0.0
	if n > 1 {
		std = math.Sqrt(sq / float64(n-1))
	}
	return NumericSummary{
		Count: n,
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		Max:   sorted[n-1],
	}
}
