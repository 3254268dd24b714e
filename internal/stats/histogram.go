// Package stats computes the statistical distances and goodness-of-fit tests
// used to compare a sealed window against a reference distribution.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// QuantileEdges derives equal-probability bin edges from a sorted reference
// sample. Outer edges are pushed to ±Inf so every later window value lands in
// a bin, and interior duplicates from heavy ties are collapsed. Edges are
// derived from the reference once and reused for every window compared
// against it, keeping the discretization stable over time.
func QuantileEdges(sorted []float64, bins int) []float64 {
	edges := make([]float64, 0, bins+1)
	edges = append(edges, math.Inf(-1))
	for i := 1; i < bins; i++ {
		q := stat.Quantile(float64(i)/float64(bins), stat.Empirical, sorted, nil)
		if len(edges) > 1 && q <= edges[len(edges)-1] {
			continue
		}
		edges = append(edges, q)
	}
	edges = append(edges, math.Inf(1))
	return edges
}

// BinCounts counts values per bin. Bin i covers (edges[i], edges[i+1]]; the
// -Inf lower edge leaves the first bin open below.
func BinCounts(values, edges []float64) []float64 {
	counts := make([]float64, len(edges)-1)
	for _, v := range values {
		idx := sort.SearchFloat64s(edges[1:], v)
		if idx >= len(counts) {
			idx = len(counts) - 1
		}
		counts[idx]++
	}
	return counts
}

// normalize turns counts into a probability vector. Returns false when the
// total mass is zero.
func normalize(counts []float64) ([]float64, bool) {
	var total float64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return nil, false
	}
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = c / total
	}
	return p, true
}
