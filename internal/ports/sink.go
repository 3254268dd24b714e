package ports

import "github.com/espirado/model-drift-detection/internal/domain"

// AlertSink receives emitted alerts. Dispatch retries failed writes with
// backoff up to a bounded attempt count.
type AlertSink interface {
	WriteAlerts(alerts []*domain.Alert) error
	Name() string
}

// RecordsSink receives every DriftMetric and ChangePoint, alert-worthy or
// not, for downstream plotting and dashboards. Best-effort: write failures
// are logged and counted, never retried.
type RecordsSink interface {
	WriteMetrics(metrics []domain.DriftMetric) error
	WriteChangePoints(points []domain.ChangePoint) error
	Name() string
}
