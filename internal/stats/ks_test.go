package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

// normalSample draws a deterministic sample from N(mu, sigma) by inverting
// the CDF on an evenly spaced probability grid.
func normalSample(n int, mu, sigma float64) []float64 {
	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Quantile((float64(i) + 0.5) / float64(n))
	}
	return out
}

func TestKSTwoSampleIdentical(t *testing.T) {
	x := normalSample(200, 0, 1)

	d, p := KSTwoSample(x, x)
	assert.Zero(t, d)
	assert.Equal(t, 1.0, p)
}

func TestKSTwoSampleSymmetric(t *testing.T) {
	x := normalSample(150, 0, 1)
	y := normalSample(180, 0.5, 1.2)

	dxy, pxy := KSTwoSample(x, y)
	dyx, pyx := KSTwoSample(y, x)
	assert.Equal(t, dxy, dyx, "statistic must be symmetric in its arguments")
	assert.Equal(t, pxy, pyx)
}

func TestKSTwoSampleDetectsShift(t *testing.T) {
	x := normalSample(200, 0, 1)
	y := normalSample(200, 3, 1)

	d, p := KSTwoSample(x, y)
	assert.Greater(t, d, 0.5, "a 3-sigma mean shift should dominate the CDF gap")
	assert.Less(t, p, 0.01)
}

func TestKSTwoSampleSameDistribution(t *testing.T) {
	// Interleaved halves of the same grid: close but not identical samples.
	full := normalSample(400, 0, 1)
	var x, y []float64
	for i, v := range full {
		if i%2 == 0 {
			x = append(x, v)
		} else {
			y = append(y, v)
		}
	}

	_, p := KSTwoSample(x, y)
	assert.Greater(t, p, 0.1, "same underlying distribution should not alarm")
}

func TestKSTwoSampleUnsortedInput(t *testing.T) {
	x := []float64{5, 1, 3, 2, 4}
	y := []float64{2, 4, 1, 5, 3}

	d, _ := KSTwoSample(x, y)
	assert.Zero(t, d, "inputs must be sorted internally before the statistic")
	// Inputs must not be reordered in place.
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, x)
}

func TestKSAgainstHistogramCDF(t *testing.T) {
	ref := normalSample(1000, 0, 1)
	edges := QuantileEdges(ref, 16)
	weights := BinCounts(ref, edges)
	cdf := HistogramCDF(edges, weights)

	// The fitted CDF should be close to the true one over the bulk.
	assert.InDelta(t, 0.5, cdf(0), 0.05)
	assert.InDelta(t, 0.16, cdf(-1), 0.05)

	dSame, pSame := KSAgainstCDF(normalSample(300, 0, 1), cdf)
	assert.Less(t, dSame, 0.1)
	assert.Greater(t, pSame, 0.05)

	dShift, pShift := KSAgainstCDF(normalSample(300, 3, 1), cdf)
	assert.Greater(t, dShift, 0.5)
	assert.Less(t, pShift, 0.01)
}

func TestHistogramCDFBounds(t *testing.T) {
	ref := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	edges := QuantileEdges(ref, 4)
	cdf := HistogramCDF(edges, BinCounts(ref, edges))

	assert.Equal(t, 0.0, cdf(-100))
	assert.Equal(t, 1.0, cdf(100))
	for v := -10.0; v <= 10; v += 0.25 {
		require.GreaterOrEqual(t, cdf(v+0.25), cdf(v), "CDF must be monotone at %g", v)
	}
}
