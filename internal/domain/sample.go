package domain

import "time"

// Sample is one observation on the monitored stream: numeric feature values,
// optional categorical labels, and the event timestamp. Immutable once built.
type Sample struct {
	Timestamp   time.Time          `json:"ts"`
	Numeric     map[string]float64 `json:"numeric,omitempty"`
	Categorical map[string]string  `json:"categorical,omitempty"`
	SourceID    string             `json:"source_id,omitempty"`
}
