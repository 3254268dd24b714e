// Package changepoint segments a derived scalar series to flag abrupt regime
// shifts independent of any window-pair comparison.
package changepoint

// Segment runs PELT (pruned exact linear time) over the series with an L2
// cost: each segment is charged its within-segment sum of squared deviations
// from the segment mean, plus penalty per additional segment. Returns the
// change-point indices (the start of each new segment, excluding 0) in
// ascending order. Larger penalties yield fewer, larger segments.
//
// The dynamic program is exact; pruning only removes candidates that can
// never be optimal, so two runs over the same data and penalty return the
// same boundaries.
func Segment(series []float64, penalty float64, minSegLen int) []int {
	n := len(series)
	if minSegLen < 1 {
		minSegLen = 1
	}
	if n < 2*minSegLen {
		return nil
	}

	// Prefix sums for O(1) segment cost.
	sum := make([]float64, n+1)
	sumSq := make([]float64, n+1)
	for i, v := range series {
		sum[i+1] = sum[i] + v
		sumSq[i+1] = sumSq[i] + v*v
	}
	cost := func(a, b int) float64 { // cost of segment [a, b)
		len_ := float64(b - a)
		s := sum[b] - sum[a]
		return (sumSq[b] - sumSq[a]) - s*s/len_
	}

	f := make([]float64, n+1)
	prev := make([]int, n+1)
	f[0] = -penalty
	candidates := []int{0}

	for t := minSegLen; t <= n; t++ {
		bestCost := 0.0
		bestTau := -1
		for _, tau := range candidates {
			if t-tau < minSegLen {
				continue
			}
			c := f[tau] + cost(tau, t) + penalty
			if bestTau < 0 || c < bestCost {
				bestCost = c
				bestTau = tau
			}
		}
		f[t] = bestCost
		prev[t] = bestTau

		// Prune candidates that can no longer start an optimal segment.
		kept := candidates[:0]
		for _, tau := range candidates {
			if t-tau < minSegLen || f[tau]+cost(tau, t) <= f[t] {
				kept = append(kept, tau)
			}
		}
		candidates = append(kept, t)
	}

	var breaks []int
	for t := n; t > 0; t = prev[t] {
		if prev[t] > 0 {
			breaks = append(breaks, prev[t])
		}
	}
	// Reverse into ascending order.
	for i, j := 0, len(breaks)-1; i < j; i, j = i+1, j-1 {
		breaks[i], breaks[j] = breaks[j], breaks[i]
	}
	return breaks
}
