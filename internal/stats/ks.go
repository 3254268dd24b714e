package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// KSTwoSample computes the two-sample Kolmogorov-Smirnov statistic and its
// asymptotic p-value. Inputs need not be sorted. The statistic is symmetric
// in its arguments.
func KSTwoSample(x, y []float64) (d, pValue float64) {
	xs := append([]float64(nil), x...)
	ys := append([]float64(nil), y...)
	sort.Float64s(xs)
	sort.Float64s(ys)
	d = stat.KolmogorovSmirnov(xs, nil, ys, nil)
	n, m := float64(len(xs)), float64(len(ys))
	ne := n * m / (n + m)
	return d, ksPValue(d, ne)
}

// KSAgainstCDF computes the one-sample KS statistic of values against an
// arbitrary reference CDF, used when the reference is histogram-based and the
// raw baseline sample is no longer available.
func KSAgainstCDF(values []float64, cdf func(float64) float64) (d, pValue float64) {
	xs := append([]float64(nil), values...)
	sort.Float64s(xs)
	n := float64(len(xs))
	for i, v := range xs {
		f := cdf(v)
		if above := float64(i+1)/n - f; above > d {
			d = above
		}
		if below := f - float64(i)/n; below > d {
			d = below
		}
	}
	return d, ksPValue(d, n)
}

// HistogramCDF fits a piecewise-linear CDF to binned reference mass. Interior
// edges carry the interpolation; mass in the open outer bins is treated as
// concentrated at the adjacent finite edge.
func HistogramCDF(edges, weights []float64) func(float64) float64 {
	cum := make([]float64, len(weights)+1)
	for i, w := range weights {
		cum[i+1] = cum[i] + w
	}
	total := cum[len(cum)-1]
	return func(v float64) float64 {
		if total == 0 {
			return 0
		}
		if len(edges) >= 2 {
			if v <= edges[1] {
				if v < edges[1] {
					return 0
				}
				return cum[1] / total
			}
			if v >= edges[len(edges)-2] {
				return 1
			}
		}
		i := sort.SearchFloat64s(edges, v)
		// edges[i-1] < v <= edges[i], both finite here
		lo, hi := edges[i-1], edges[i]
		frac := 0.0
		if hi > lo {
			frac = (v - lo) / (hi - lo)
		}
		return (cum[i-1] + frac*weights[i-1]) / total
	}
}

// ksPValue evaluates the asymptotic Kolmogorov distribution
// Q(lambda) = 2 * sum_{k>=1} (-1)^(k-1) exp(-2 k^2 lambda^2)
// with the standard effective-sample-size correction.
func ksPValue(d, ne float64) float64 {
	if d <= 0 {
		return 1
	}
	sq := math.Sqrt(ne)
	lambda := (sq + 0.12 + 0.11/sq) * d
	var sum float64
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k*k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
