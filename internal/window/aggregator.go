// Package window groups samples into fixed time buckets and seals them once
// the watermark passes their upper boundary.
package window

import (
	"fmt"
	"sort"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
)

// Alignment controls where bucket boundaries fall. Calendar alignment
// truncates to multiples of the bucket size since the Unix epoch (UTC), so
// reruns over the same data produce the same windows. First-sample alignment
// anchors bucket k at origin + k*size where origin is the first observed
// timestamp.
type Alignment string

const (
	AlignCalendar    Alignment = "calendar"
	AlignFirstSample Alignment = "first_sample"
)

// Outcome classifies what happened to one ingested sample.
type Outcome int

const (
	Accepted Outcome = iota
	Late
)

// Aggregator owns the open windows. It is not safe for concurrent use; the
// intake stage is its single caller.
type Aggregator struct {
	size    time.Duration
	grace   time.Duration
	align   Alignment
	maxOpen int

	origin    time.Time // first-sample alignment anchor
	hasOrigin bool
	watermark time.Time
	open      map[int64]*domain.Window
	nextSeq   int64
}

func NewAggregator(size, grace time.Duration, align Alignment, maxOpen int) (*Aggregator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be > 0, got %s", size)
	}
	if grace < 0 {
		return nil, fmt.Errorf("grace period must be >= 0, got %s", grace)
	}
	if maxOpen < 1 {
		return nil, fmt.Errorf("max open windows must be >= 1, got %d", maxOpen)
	}
	switch align {
	case AlignCalendar, AlignFirstSample:
	default:
		return nil, fmt.Errorf("unknown window alignment %q", align)
	}
	return &Aggregator{
		size:    size,
		grace:   grace,
		align:   align,
		maxOpen: maxOpen,
		open:    make(map[int64]*domain.Window),
	}, nil
}

// Watermark is the largest event timestamp observed so far (possibly advanced
// further by AdvanceWatermark).
func (a *Aggregator) Watermark() time.Time { return a.watermark }

// OpenCount returns the number of unsealed buckets currently held.
func (a *Aggregator) OpenCount() int { return len(a.open) }

// Ingest routes the sample into the bucket covering its timestamp. Samples
// whose bucket has already passed the watermark-minus-grace boundary are
// dropped as late. If routing opens a bucket beyond the maxOpen bound, the
// oldest buckets are force-sealed and returned so memory stays bounded under
// bursty or stalled-watermark streams.
func (a *Aggregator) Ingest(s *domain.Sample) ([]*domain.Window, Outcome) {
	ts := s.Timestamp
	if !a.hasOrigin {
		a.origin = ts
		a.hasOrigin = true
	}
	if ts.After(a.watermark) {
		a.watermark = ts
	}

	idx := a.bucketIndex(ts)
	start, end := a.bucketBounds(idx)

	// A bucket whose end already lies behind the sealing horizon has either
	// been sealed or never existed; accepting the sample would reopen history.
	if !a.watermark.IsZero() && !end.After(a.sealHorizon()) {
		return nil, Late
	}

	w, ok := a.open[idx]
	if !ok {
		w = domain.NewWindow(start, end)
		a.open[idx] = w
	}
	w.Add(s)

	var forced []*domain.Window
	for len(a.open) > a.maxOpen {
		oldest := a.oldestOpen()
		oldest.ForceSealed = true
		forced = append(forced, a.seal(oldest))
	}
	return forced, Accepted
}

// AdvanceWatermark lets a wall-clock ticker move the watermark forward when
// the stream itself has stalled.
func (a *Aggregator) AdvanceWatermark(now time.Time) {
	if now.After(a.watermark) {
		a.watermark = now
	}
}

// SealReady seals and returns, in start order, every bucket whose end
// boundary is at or before watermark - grace.
func (a *Aggregator) SealReady() []*domain.Window {
	if a.watermark.IsZero() {
		return nil
	}
	horizon := a.sealHorizon()
	var ready []*domain.Window
	for _, w := range a.open {
		if !w.End.After(horizon) {
			ready = append(ready, w)
		}
	}
	return a.sealAll(ready)
}

// FlushAll seals every remaining open bucket regardless of the watermark.
// Used on shutdown so in-flight data drains to completion.
func (a *Aggregator) FlushAll() []*domain.Window {
	ready := make([]*domain.Window, 0, len(a.open))
	for _, w := range a.open {
		ready = append(ready, w)
	}
	return a.sealAll(ready)
}

func (a *Aggregator) sealAll(ready []*domain.Window) []*domain.Window {
	if len(ready) == 0 {
		return nil
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Start.Before(ready[j].Start) })
	out := make([]*domain.Window, 0, len(ready))
	for _, w := range ready {
		out = append(out, a.seal(w))
	}
	return out
}

func (a *Aggregator) seal(w *domain.Window) *domain.Window {
	delete(a.open, a.bucketIndex(w.Start))
	a.nextSeq++
	w.Seal(a.nextSeq)
	return w
}

func (a *Aggregator) sealHorizon() time.Time {
	return a.watermark.Add(-a.grace)
}

func (a *Aggregator) bucketIndex(ts time.Time) int64 {
	anchor := time.Unix(0, 0).UTC()
	if a.align == AlignFirstSample {
		anchor = a.origin
	}
	d := ts.Sub(anchor)
	idx := int64(d / a.size)
	if d < 0 && d%a.size != 0 {
		idx--
	}
	return idx
}

func (a *Aggregator) bucketBounds(idx int64) (time.Time, time.Time) {
	anchor := time.Unix(0, 0).UTC()
	if a.align == AlignFirstSample {
		anchor = a.origin
	}
	start := anchor.Add(time.Duration(idx) * a.size)
	return start, start.Add(a.size)
}

func (a *Aggregator) oldestOpen() *domain.Window {
	var oldest *domain.Window
	for _, w := range a.open {
		if oldest == nil || w.Start.Before(oldest.Start) {
			oldest = w
		}
	}
	return oldest
}
