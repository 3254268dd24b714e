package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ChiSquaredResult is the outcome of the 2xK independence test.
type ChiSquaredResult struct {
	Statistic float64
	PValue    float64
	DoF       int
}

// ChiSquaredIndependence runs the chi-squared test of independence on a 2xK
// contingency table of window counts vs reference counts over the union of
// observed categories. Categories with zero count on both sides are dropped;
// if fewer than two non-degenerate categories remain the test is skipped and
// ok is false — a misleading statistic is worse than none.
func ChiSquaredIndependence(window map[string]float64, ref map[string]float64) (ChiSquaredResult, bool) {
	cats := make([]string, 0, len(window)+len(ref))
	seen := make(map[string]struct{}, len(window)+len(ref))
	for c := range window {
		seen[c] = struct{}{}
		cats = append(cats, c)
	}
	for c := range ref {
		if _, ok := seen[c]; !ok {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)

	var wRow, rRow []float64
	for _, c := range cats {
		w, r := window[c], ref[c]
		if w == 0 && r == 0 {
			continue
		}
		wRow = append(wRow, w)
		rRow = append(rRow, r)
	}
	k := len(wRow)
	if k < 2 {
		return ChiSquaredResult{}, false
	}

	var wTotal, rTotal float64
	for i := range wRow {
		wTotal += wRow[i]
		rTotal += rRow[i]
	}
	grand := wTotal + rTotal
	if wTotal == 0 || rTotal == 0 {
		return ChiSquaredResult{}, false
	}

	var statistic float64
	for i := range wRow {
		colTotal := wRow[i] + rRow[i]
		ew := colTotal * wTotal / grand
		er := colTotal * rTotal / grand
		dw := wRow[i] - ew
		dr := rRow[i] - er
		statistic += dw * dw / ew
		statistic += dr * dr / er
	}

	dof := k - 1
	dist := distuv.ChiSquared{K: float64(dof)}
	return ChiSquaredResult{
		Statistic: statistic,
		PValue:    dist.Survival(statistic),
		DoF:       dof,
	}, true
}
