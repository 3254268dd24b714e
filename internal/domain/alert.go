package domain

import "time"

// Severity of an emitted alert.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so escalation checks read naturally.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	}
	return 0
}

// Alert is a terminal record: once emitted it is dispatched (with bounded
// retries) and never mutated.
type Alert struct {
	ID        string     `json:"id"`
	Severity  Severity   `json:"severity"`
	Feature   string     `json:"feature"`
	Kind      MetricKind `json:"kind"`
	Value     float64    `json:"value"`
	Threshold float64    `json:"threshold"`
	WindowSeq int64      `json:"window_seq"`
	Timestamp time.Time  `json:"ts"`
}
