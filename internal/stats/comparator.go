package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/espirado/model-drift-detection/internal/domain"
)

// SkipReason distinguishes the "insufficient data" outcomes the pipeline
// logs and counts. Skips are never silent drops.
type SkipReason string

const (
	SkipWindowTooSmall    SkipReason = "window_too_small"
	SkipReferenceTooSmall SkipReason = "reference_too_small"
	SkipDegenerateTable   SkipReason = "degenerate_table"
	SkipNoReference       SkipReason = "no_reference"
)

// Skip records one comparison that could not run.
type Skip struct {
	Feature string
	Kind    domain.MetricKind
	Reason  SkipReason
}

func (s Skip) String() string {
	return fmt.Sprintf("%s/%s: %s", s.Feature, s.Kind, s.Reason)
}

// InsufficientDataError wraps a Skip when a caller needs it as an error.
type InsufficientDataError struct{ Skip Skip }

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Skip.String()
}

// Comparator computes drift metrics for a sealed window against a reference
// set. Stateless and safe for concurrent use.
type Comparator struct {
	minWindowSamples int
}

func NewComparator(minWindowSamples int) (*Comparator, error) {
	if minWindowSamples < 1 {
		return nil, fmt.Errorf("comparator min window samples must be >= 1, got %d", minWindowSamples)
	}
	return &Comparator{minWindowSamples: minWindowSamples}, nil
}

// Compare emits one DriftMetric per (feature, metric kind) pair that had
// sufficient data, plus a Skip for each pair that did not. A failure on one
// feature never aborts the rest of the window.
func (c *Comparator) Compare(w *domain.Window, ref *domain.ReferenceSet, minRefSamples int) ([]domain.DriftMetric, []Skip) {
	var metrics []domain.DriftMetric
	var skips []Skip

	for feature, values := range w.Numeric {
		numRef, ok := ref.NumericFor(feature, minRefSamples)
		if !ok {
			reason := SkipNoReference
			if ref != nil && ref.Numeric[feature] != nil {
				reason = SkipReferenceTooSmall
			}
			skips = append(skips, Skip{feature, domain.MetricJSDivergence, reason}, Skip{feature, domain.MetricKSStatistic, reason})
			continue
		}
		if len(values) < c.minWindowSamples {
			skips = append(skips, Skip{feature, domain.MetricJSDivergence, SkipWindowTooSmall}, Skip{feature, domain.MetricKSStatistic, SkipWindowTooSmall})
			continue
		}

		if js, ok := jsDivergence(values, numRef); ok {
			metrics = append(metrics, c.metric(w, ref, feature, domain.MetricJSDivergence, js, math.NaN()))
		} else {
			skips = append(skips, Skip{feature, domain.MetricJSDivergence, SkipDegenerateTable})
		}

		var d, p float64
		if numRef.SampleBased() {
			d, p = KSTwoSample(values, numRef.Values)
		} else {
			d, p = KSAgainstCDF(values, HistogramCDF(numRef.Edges, numRef.Weights))
		}
		metrics = append(metrics, c.metric(w, ref, feature, domain.MetricKSStatistic, d, p))
	}

	for feature, table := range w.Categorical {
		catRef, ok := ref.CategoricalFor(feature, minRefSamples)
		if !ok {
			reason := SkipNoReference
			if ref != nil && ref.Categorical[feature] != nil {
				reason = SkipReferenceTooSmall
			}
			skips = append(skips, Skip{feature, domain.MetricChiSquared, reason})
			continue
		}
		count := 0
		for _, n := range table {
			count += n
		}
		if count < c.minWindowSamples {
			skips = append(skips, Skip{feature, domain.MetricChiSquared, SkipWindowTooSmall})
			continue
		}

		observed := make(map[string]float64, len(table))
		for cat, n := range table {
			observed[cat] = float64(n)
		}
		res, ok := ChiSquaredIndependence(observed, catRef.Counts)
		if !ok {
			skips = append(skips, Skip{feature, domain.MetricChiSquared, SkipDegenerateTable})
			continue
		}
		metrics = append(metrics, c.metric(w, ref, feature, domain.MetricChiSquared, res.Statistic, res.PValue))
	}

	return metrics, skips
}

func (c *Comparator) metric(w *domain.Window, ref *domain.ReferenceSet, feature string, kind domain.MetricKind, value, pValue float64) domain.DriftMetric {
	return domain.DriftMetric{
		Feature:     feature,
		Kind:        kind,
		Value:       value,
		PValue:      pValue,
		WindowSeq:   w.Seq,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		ReferenceID: ref.ID,
	}
}

// jsDivergence discretizes the window values onto the reference-derived bin
// edges and computes the Jensen-Shannon divergence (nats) between the two
// histograms.
func jsDivergence(values []float64, ref *domain.NumericReference) (float64, bool) {
	q, ok := normalize(ref.Weights)
	if !ok {
		return 0, false
	}
	p, ok := normalize(BinCounts(values, ref.Edges))
	if !ok {
		return 0, false
	}
	return stat.JensenShannon(p, q), true
}
