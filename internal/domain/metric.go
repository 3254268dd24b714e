package domain

import "time"

// MetricKind identifies which statistical test produced a DriftMetric.
type MetricKind string

const (
	MetricJSDivergence MetricKind = "js_divergence"
	MetricKSStatistic  MetricKind = "ks_statistic"
	MetricChiSquared   MetricKind = "chi_squared"
	MetricChangePoint  MetricKind = "change_point"
)

// DriftMetric is the result of one statistical test for one feature in one
// window-vs-reference comparison. Created fresh per evaluation, never mutated.
type DriftMetric struct {
	Feature     string     `json:"feature"`
	Kind        MetricKind `json:"kind"`
	Value       float64    `json:"value"`
	PValue      float64    `json:"p_value,omitempty"` // NaN when the test has no p-value
	WindowSeq   int64      `json:"window_seq"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	ReferenceID string     `json:"reference_id"`
}

// ChangePoint marks an abrupt regime shift detected in a derived scalar
// series, independent of any single window-vs-reference comparison.
type ChangePoint struct {
	Signal    string    `json:"signal"`
	WindowSeq int64     `json:"window_seq"`
	At        time.Time `json:"at"`
	Penalty   float64   `json:"penalty"`
	Shift     float64   `json:"shift"` // absolute mean shift across the boundary
}
