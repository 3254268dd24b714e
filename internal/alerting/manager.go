// Package alerting turns drift metrics and change points into rate-limited
// alerts via a per-key state machine.
package alerting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/espirado/model-drift-detection/internal/domain"
)

// Direction says which side of a bound is "worse". Statistics like JS
// divergence grow with drift; p-values shrink.
type Direction string

const (
	DirAbove Direction = "above"
	DirBelow Direction = "below"
)

// Bound holds the warning and critical thresholds for one (feature, kind).
type Bound struct {
	Warning   float64
	Critical  float64
	Direction Direction // default DirAbove
}

func (b Bound) validate() error {
	switch b.Direction {
	case "", DirAbove:
		if b.Critical < b.Warning {
			return fmt.Errorf("critical bound %g below warning bound %g", b.Critical, b.Warning)
		}
	case DirBelow:
		if b.Critical > b.Warning {
			return fmt.Errorf("critical bound %g above warning bound %g for smaller-is-worse metric", b.Critical, b.Warning)
		}
	default:
		return fmt.Errorf("unknown threshold direction %q", b.Direction)
	}
	return nil
}

func (b Bound) severityFor(value float64) (domain.Severity, float64, bool) {
	below := b.Direction == DirBelow
	crossed := func(bound float64) bool {
		if below {
			return value <= bound
		}
		return value >= bound
	}
	switch {
	case crossed(b.Critical):
		return domain.SeverityCritical, b.Critical, true
	case crossed(b.Warning):
		return domain.SeverityWarning, b.Warning, true
	}
	return "", 0, false
}

// Thresholds maps feature -> metric kind -> bound.
type Thresholds map[string]map[domain.MetricKind]Bound

func (t Thresholds) Validate() error {
	for feature, kinds := range t {
		for kind, bound := range kinds {
			switch kind {
			case domain.MetricJSDivergence, domain.MetricKSStatistic, domain.MetricChiSquared, domain.MetricChangePoint:
			default:
				return fmt.Errorf("feature %q: unknown metric kind %q", feature, kind)
			}
			if err := bound.validate(); err != nil {
				return fmt.Errorf("feature %q, kind %q: %w", feature, kind, err)
			}
		}
	}
	return nil
}

// State of one (feature, metric kind) key.
type State int

const (
	StateNormal State = iota
	StateWarned
	StateAlerted
)

// Outcome classifies what Evaluate did with one metric.
type Outcome int

const (
	OutcomeNone       Outcome = iota // under the warning bound, or no threshold configured
	OutcomeEmitted                   // upward transition, alert returned
	OutcomeSuppressed                // crossing swallowed by an active cooldown
	OutcomeRecovered                 // fell back under the warning bound
)

type key struct {
	feature string
	kind    domain.MetricKind
}

type keyState struct {
	state         State
	lastEmitted   domain.Severity
	cooldownUntil time.Time
}

// Manager evaluates metrics for each key strictly in window order. Not safe
// for concurrent use; the evaluation stage is its single caller.
type Manager struct {
	thresholds Thresholds
	cooldown   time.Duration
	now        func() time.Time
	states     map[key]*keyState
}

func NewManager(thresholds Thresholds, cooldown time.Duration, now func() time.Time) (*Manager, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("cooldown must be >= 0, got %s", cooldown)
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		thresholds: thresholds,
		cooldown:   cooldown,
		now:        now,
		states:     make(map[key]*keyState),
	}, nil
}

// Evaluate runs one metric through its key's state machine. An alert is
// returned only on an upward transition outside cooldown, or on a strictly
// higher severity than the last emitted one, which bypasses cooldown.
func (m *Manager) Evaluate(metric domain.DriftMetric) (*domain.Alert, Outcome) {
	return m.evaluate(metric.Feature, metric.Kind, metric.Value, metric.WindowSeq, metric.WindowEnd)
}

// EvaluateChangePoint maps a change point onto the same machinery, keyed by
// (signal, change_point) with the mean shift as the value.
func (m *Manager) EvaluateChangePoint(cp domain.ChangePoint) (*domain.Alert, Outcome) {
	return m.evaluate(cp.Signal, domain.MetricChangePoint, cp.Shift, cp.WindowSeq, cp.At)
}

func (m *Manager) evaluate(feature string, kind domain.MetricKind, value float64, seq int64, at time.Time) (*domain.Alert, Outcome) {
	bound, ok := m.thresholds[feature][kind]
	if !ok {
		return nil, OutcomeNone
	}
	k := key{feature, kind}
	ks := m.states[k]
	if ks == nil {
		ks = &keyState{}
		m.states[k] = ks
	}

	severity, threshold, crossed := bound.severityFor(value)
	if !crossed {
		prev := ks.state
		ks.state = StateNormal
		if prev != StateNormal {
			return nil, OutcomeRecovered
		}
		return nil, OutcomeNone
	}

	target := StateWarned
	if severity == domain.SeverityCritical {
		target = StateAlerted
	}
	prev := ks.state
	ks.state = target

	// De-escalation that still crosses the warning bound lowers the state
	// without emitting; alerts on recovery or decline would be noise.
	if target < prev {
		return nil, OutcomeNone
	}

	// Cooldown gates repeat emissions for a persistently drifting key; only
	// a strictly higher severity than the last emitted one bypasses it.
	now := m.now()
	if now.Before(ks.cooldownUntil) && severity.Rank() <= ks.lastEmitted.Rank() {
		return nil, OutcomeSuppressed
	}

	ks.lastEmitted = severity
	ks.cooldownUntil = now.Add(m.cooldown)
	return &domain.Alert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Feature:   feature,
		Kind:      kind,
		Value:     value,
		Threshold: threshold,
		WindowSeq: seq,
		Timestamp: at,
	}, OutcomeEmitted
}
