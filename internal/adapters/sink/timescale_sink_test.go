package sink

import (
	"math"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/espirado/model-drift-detection/internal/domain"
)

var ts = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newMockSink(t *testing.T) (*TimescaleSink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTimescaleSink(db, "drift_alerts", "drift_metrics"), mock
}

func TestWriteAlertsBatchInsert(t *testing.T) {
	s, mock := newMockSink(t)

	mock.ExpectExec("INSERT INTO drift_alerts").
		WithArgs(
			"a1", "CRITICAL", "latency", "js_divergence", 0.42, 0.2, int64(7), ts,
			"a2", "WARNING", "latency", "ks_statistic", 0.3, 0.25, int64(7), ts,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := s.WriteAlerts([]*domain.Alert{
		{ID: "a1", Severity: domain.SeverityCritical, Feature: "latency", Kind: domain.MetricJSDivergence, Value: 0.42, Threshold: 0.2, WindowSeq: 7, Timestamp: ts},
		{ID: "a2", Severity: domain.SeverityWarning, Feature: "latency", Kind: domain.MetricKSStatistic, Value: 0.3, Threshold: 0.25, WindowSeq: 7, Timestamp: ts},
	})
	if err != nil {
		t.Fatalf("WriteAlerts: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWriteAlertsEmptyBatchNoQuery(t *testing.T) {
	s, mock := newMockSink(t)

	if err := s.WriteAlerts(nil); err != nil {
		t.Fatalf("WriteAlerts(nil): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("empty batch must not touch the database: %v", err)
	}
}

func TestWriteMetricsNaNPValueAsNull(t *testing.T) {
	s, mock := newMockSink(t)

	mock.ExpectExec("INSERT INTO drift_metrics").
		WithArgs("latency", "js_divergence", 0.05, nil, int64(3), ts, ts.Add(5*time.Minute), "ref-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.WriteMetrics([]domain.DriftMetric{
		{
			Feature:     "latency",
			Kind:        domain.MetricJSDivergence,
			Value:       0.05,
			PValue:      math.NaN(),
			WindowSeq:   3,
			WindowStart: ts,
			WindowEnd:   ts.Add(5 * time.Minute),
			ReferenceID: "ref-1",
		},
	})
	if err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWriteChangePoints(t *testing.T) {
	s, mock := newMockSink(t)

	mock.ExpectExec("INSERT INTO drift_metrics").
		WithArgs("count", "change_point", 300.0, int64(11), ts, ts, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.WriteChangePoints([]domain.ChangePoint{
		{Signal: "count", WindowSeq: 11, At: ts, Penalty: 10, Shift: 300},
	})
	if err != nil {
		t.Fatalf("WriteChangePoints: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWriteAlertsPropagatesError(t *testing.T) {
	s, mock := newMockSink(t)

	mock.ExpectExec("INSERT INTO drift_alerts").
		WillReturnError(sqlmock.ErrCancelled)

	err := s.WriteAlerts([]*domain.Alert{{ID: "a1", Timestamp: ts}})
	if err == nil {
		t.Fatalf("expected the database error to surface")
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(0, 3); got != "($1,$2,$3)" {
		t.Fatalf("placeholders(0,3) = %q", got)
	}
	if got := placeholders(8, 2); got != "($9,$10)" {
		t.Fatalf("placeholders(8,2) = %q", got)
	}
}
