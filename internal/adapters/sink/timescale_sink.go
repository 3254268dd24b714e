package sink

import (
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
)

// TimescaleSink persists alerts and introspection records (drift metrics,
// change points) so downstream dashboards can plot them.
type TimescaleSink struct {
	db           *sql.DB
	alertsTable  string
	metricsTable string
}

func NewTimescaleSink(db *sql.DB, alertsTable, metricsTable string) *TimescaleSink {
	return &TimescaleSink{db: db, alertsTable: alertsTable, metricsTable: metricsTable}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteAlerts(alerts []*domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.alertsTable)
	b.WriteString(" (id, severity, feature, kind, value, threshold, window_seq, ts) VALUES ")

	args := make([]any, 0, len(alerts)*8)
	for i, a := range alerts {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(placeholders(len(args), 8))
		args = append(args,
			a.ID,
			string(a.Severity),
			a.Feature,
			string(a.Kind),
			a.Value,
			a.Threshold,
			a.WindowSeq,
			a.Timestamp,
		)
	}

	b.WriteString(" ON CONFLICT (id) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

func (t *TimescaleSink) WriteMetrics(metrics []domain.DriftMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.metricsTable)
	b.WriteString(" (feature, kind, value, p_value, window_seq, window_start, window_end, reference_id) VALUES ")

	args := make([]any, 0, len(metrics)*8)
	for i, m := range metrics {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(placeholders(len(args), 8))
		var pValue any
		if !math.IsNaN(m.PValue) {
			pValue = m.PValue
		}
		args = append(args,
			m.Feature,
			string(m.Kind),
			m.Value,
			pValue,
			m.WindowSeq,
			m.WindowStart,
			m.WindowEnd,
			m.ReferenceID,
		)
	}

	b.WriteString(" ON CONFLICT (feature, kind, window_seq) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

func (t *TimescaleSink) WriteChangePoints(points []domain.ChangePoint) error {
	if len(points) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.metricsTable)
	b.WriteString(" (feature, kind, value, window_seq, window_start, window_end, reference_id) VALUES ")

	args := make([]any, 0, len(points)*7)
	for i, cp := range points {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(placeholders(len(args), 7))
		args = append(args,
			cp.Signal,
			string(domain.MetricChangePoint),
			cp.Shift,
			cp.WindowSeq,
			cp.At,
			cp.At,
			"",
		)
	}

	b.WriteString(" ON CONFLICT (feature, kind, window_seq) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

func placeholders(offset, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

var (
	_ ports.AlertSink   = (*TimescaleSink)(nil)
	_ ports.RecordsSink = (*TimescaleSink)(nil)
)
