package changepoint

import (
	"fmt"
	"math"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
)

// SignalCount is the built-in signal name: the per-window sample count.
const SignalCount = "count"

const minSegmentLen = 2

// Detector accumulates one scalar per sealed window over a rolling horizon
// and re-segments the horizon from scratch after each window. Boundaries are
// deduplicated by absolute window sequence, so a historical shift is reported
// once even though every later run sees it again.
type Detector struct {
	signal  string
	horizon int
	penalty float64

	series   []float64
	seqs     []int64
	starts   []int64 // window start, unix nanos, parallel to series
	reported map[int64]struct{}
}

// NewDetector builds a detector for the named signal. signal is either
// SignalCount or the name of a numeric feature, in which case the window's
// mean for that feature is used.
func NewDetector(signal string, horizon int, penalty float64) (*Detector, error) {
	if signal == "" {
		signal = SignalCount
	}
	if horizon < 2*minSegmentLen {
		return nil, fmt.Errorf("change-point horizon must be >= %d, got %d", 2*minSegmentLen, horizon)
	}
	if penalty <= 0 {
		return nil, fmt.Errorf("change-point penalty must be > 0, got %g", penalty)
	}
	return &Detector{
		signal:   signal,
		horizon:  horizon,
		penalty:  penalty,
		reported: make(map[int64]struct{}),
	}, nil
}

// Observe folds one sealed window into the horizon, re-runs the segmentation,
// and returns only boundaries not reported by a previous run.
func (d *Detector) Observe(w *domain.Window) []domain.ChangePoint {
	v, ok := d.extract(w)
	if !ok {
		return nil
	}

	d.series = append(d.series, v)
	d.seqs = append(d.seqs, w.Seq)
	d.starts = append(d.starts, w.Start.UnixNano())
	if len(d.series) > d.horizon {
		drop := len(d.series) - d.horizon
		for _, seq := range d.seqs[:drop] {
			delete(d.reported, seq)
		}
		d.series = d.series[drop:]
		d.seqs = d.seqs[drop:]
		d.starts = d.starts[drop:]
	}

	breaks := Segment(d.series, d.penalty, minSegmentLen)
	var points []domain.ChangePoint
	for i, idx := range breaks {
		// A boundary close to the tail can still migrate as the new regime
		// accumulates data; hold it back until enough windows follow it,
		// otherwise the migrating boundary would be reported twice under
		// two different window indices.
		if len(d.series)-idx < 2*minSegmentLen {
			continue
		}
		seq := d.seqs[idx]
		if _, seen := d.reported[seq]; seen {
			continue
		}
		d.reported[seq] = struct{}{}

		lo := 0
		if i > 0 {
			lo = breaks[i-1]
		}
		hi := len(d.series)
		if i+1 < len(breaks) {
			hi = breaks[i+1]
		}
		points = append(points, domain.ChangePoint{
			Signal:    d.signal,
			WindowSeq: seq,
			At:        time.Unix(0, d.starts[idx]).UTC(),
			Penalty:   d.penalty,
			Shift:     math.Abs(mean(d.series[idx:hi]) - mean(d.series[lo:idx])),
		})
	}
	return points
}

func (d *Detector) extract(w *domain.Window) (float64, bool) {
	if d.signal == SignalCount {
		return float64(w.Count), true
	}
	s, ok := w.Stats[d.signal]
	if !ok || s.Count == 0 {
		return 0, false
	}
	return s.Mean, true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
