// Package ingest validates and normalizes raw observations into domain
// samples. One malformed record never aborts the stream: the caller drops the
// record, counts it, and moves on.
package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
)

// ValidationError describes why a single record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid sample: %s", e.Reason)
	}
	return fmt.Sprintf("invalid sample: field %q: %s", e.Field, e.Reason)
}

// Record is the raw input shape delivered by the (external) parsing layer.
type Record struct {
	Timestamp   time.Time
	Numeric     map[string]float64
	Categorical map[string]string
	SourceID    string
}

// Ingestor turns Records into immutable domain Samples.
type Ingestor struct {
	maxFuture time.Duration // reject timestamps this far past the wall clock; 0 disables
	now       func() time.Time
}

func New(maxFuture time.Duration, now func() time.Time) *Ingestor {
	if now == nil {
		now = time.Now
	}
	return &Ingestor{maxFuture: maxFuture, now: now}
}

// Normalize validates one record and returns the internal sample. Maps are
// copied so later mutation of the caller's record cannot leak into sealed
// windows.
func (i *Ingestor) Normalize(r Record) (*domain.Sample, error) {
	if r.Timestamp.IsZero() {
		return nil, &ValidationError{Field: "timestamp", Reason: "missing"}
	}
	if i.maxFuture > 0 && r.Timestamp.After(i.now().Add(i.maxFuture)) {
		return nil, &ValidationError{Field: "timestamp", Reason: "too far in the future"}
	}
	for name, v := range r.Numeric {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ValidationError{Field: name, Reason: "non-numeric value"}
		}
	}
	for name, v := range r.Categorical {
		if v == "" {
			return nil, &ValidationError{Field: name, Reason: "empty category"}
		}
	}

	s := &domain.Sample{
		Timestamp: r.Timestamp.UTC(),
		SourceID:  r.SourceID,
	}
	if len(r.Numeric) > 0 {
		s.Numeric = make(map[string]float64, len(r.Numeric))
		for k, v := range r.Numeric {
			s.Numeric[k] = v
		}
	}
	if len(r.Categorical) > 0 {
		s.Categorical = make(map[string]string, len(r.Categorical))
		for k, v := range r.Categorical {
			s.Categorical[k] = v
		}
	}
	return s, nil
}
