package ports

import "github.com/espirado/model-drift-detection/internal/domain"

// Observability is the sink for logs, counters, and gauges emitted across the
// pipeline. Implementations must be safe for concurrent use; every stage logs
// and counts through the same instance.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	// IncCounter and SetGauge address metrics by their registered name;
	// unknown names are ignored rather than panicking mid-pipeline.
	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)

	// RecordDroppedAlert is called when dispatch exhausts its retries and
	// abandons an alert. The alert is logged in full so nothing is silently lost.
	RecordDroppedAlert(a *domain.Alert, err error)
}

// Field is one structured log attribute.
type Field struct {
	Key   string
	Value any
}
