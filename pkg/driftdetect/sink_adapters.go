package driftdetect

import (
	"fmt"
	"sync"

	"github.com/espirado/model-drift-detection/internal/domain"
)

// NewCallbackSink adapts an AlertBatchSink into a full alert sink so callers
// can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn AlertBatchSink) AlertSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes alert batches via a channel; it returns the sink,
// the read-only channel, and a close function the caller should invoke
// during shutdown.
func NewChannelSink(name string, buffer int) (AlertSink, <-chan []Alert, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Alert, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   AlertBatchSink
}

func (s *callbackSink) WriteAlerts(alerts []*domain.Alert) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(alerts) == 0 {
		return nil
	}
	return s.fn(convertAlertBatch(alerts))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Alert
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteAlerts(alerts []*domain.Alert) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(alerts) == 0 {
		return nil
	}

	batch := convertAlertBatch(alerts)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

// NewRecordsCallbackSink builds a records sink from two callbacks, either of
// which may be nil to ignore that record type.
func NewRecordsCallbackSink(name string, onMetrics func([]DriftMetric) error, onChangePoints func([]ChangePoint) error) RecordsSink {
	if name == "" {
		name = "records-callback"
	}
	return &recordsCallbackSink{name: name, onMetrics: onMetrics, onChangePoints: onChangePoints}
}

type recordsCallbackSink struct {
	name           string
	onMetrics      func([]DriftMetric) error
	onChangePoints func([]ChangePoint) error
}

func (s *recordsCallbackSink) WriteMetrics(metrics []domain.DriftMetric) error {
	if s.onMetrics == nil {
		return nil
	}
	return s.onMetrics(metrics)
}

func (s *recordsCallbackSink) WriteChangePoints(points []domain.ChangePoint) error {
	if s.onChangePoints == nil {
		return nil
	}
	return s.onChangePoints(points)
}

func (s *recordsCallbackSink) Name() string { return s.name }
