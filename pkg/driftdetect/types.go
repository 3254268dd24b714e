package driftdetect

import (
	"errors"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
)

// ErrQueueFull indicates the intake buffer rejected the sample under the
// "drop" backpressure policy.
var ErrQueueFull = errors.New("driftdetect: queue full")

// ErrNotRunning is returned by Observe before Start or after Shutdown.
var ErrNotRunning = errors.New("driftdetect: monitor not running")

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("driftdetect: channel sink closed")

// Severity of an alert.
type Severity = domain.Severity

const (
	SeverityWarning  = domain.SeverityWarning
	SeverityCritical = domain.SeverityCritical
)

// MetricKind identifies the statistical test behind a metric or alert.
type MetricKind = domain.MetricKind

const (
	MetricJSDivergence = domain.MetricJSDivergence
	MetricKSStatistic  = domain.MetricKSStatistic
	MetricChiSquared   = domain.MetricChiSquared
	MetricChangePoint  = domain.MetricChangePoint
)

// Sample mirrors the internal record shape and is the engine's import
// contract with the (external) parsing layer.
type Sample struct {
	Timestamp   time.Time
	Numeric     map[string]float64
	Categorical map[string]string
	SourceID    string
}

// Alert mirrors the internal alert record but is safe for external callers.
type Alert struct {
	ID        string
	Severity  Severity
	Feature   string
	Kind      MetricKind
	Value     float64
	Threshold float64
	WindowSeq int64
	Timestamp time.Time
}

// DriftMetric is the introspection record for one statistical test result.
type DriftMetric = domain.DriftMetric

// ChangePoint is the introspection record for one detected regime shift.
type ChangePoint = domain.ChangePoint

// AlertBatchSink is invoked with ordered batches of emitted alerts.
type AlertBatchSink func([]Alert) error

func alertFromDomain(a *domain.Alert) Alert {
	return Alert{
		ID:        a.ID,
		Severity:  a.Severity,
		Feature:   a.Feature,
		Kind:      a.Kind,
		Value:     a.Value,
		Threshold: a.Threshold,
		WindowSeq: a.WindowSeq,
		Timestamp: a.Timestamp,
	}
}

func convertAlertBatch(alerts []*domain.Alert) []Alert {
	if len(alerts) == 0 {
		return nil
	}
	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = alertFromDomain(a)
	}
	return out
}
