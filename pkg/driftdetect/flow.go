package driftdetect

import (
	"context"
	"fmt"
	"time"
)

// Flow is a convenience builder that lets callers say Conf → Watch → Notify
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []MonitorOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// WatchOption configures the intake side of the pipeline (queues, journal,
// observability, clock).
type WatchOption func(*Flow)

// NotifyOption configures the delivery side of the pipeline (alert and
// records sinks).
type NotifyOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a monitor.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw MonitorOption values to the builder for advanced scenarios.
func (f *Flow) Options(opts ...MonitorOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Watch records intake-side overrides (window queue, journal, observability, clock).
func (f *Flow) Watch(opts ...WatchOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Notify records delivery-side overrides and builds a Monitor ready to run.
func (f *Flow) Notify(opts ...NotifyOption) (*Monitor, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewMonitor(f.cfg, f.opts...)
}

// Run is a shortcut for Notify + monitor.Run.
func (f *Flow) Run(ctx context.Context, opts ...NotifyOption) error {
	m, err := f.Notify(opts...)
	if err != nil {
		return err
	}
	return m.Run(ctx)
}

// WithFlowOptions appends MonitorOption values during Conf.
func WithFlowOptions(opts ...MonitorOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// WatchQueue swaps the in-memory sealed-window queue for a caller-provided implementation.
func WatchQueue(q WindowQueue) WatchOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithWindowQueue(q))
		}
	}
}

// WatchJournal lets callers bring their own alert journal implementation.
func WatchJournal(j Journal) WatchOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithJournal(j))
		}
	}
}

// WatchObservability overrides the default Prometheus-based observability stack.
func WatchObservability(obs Observability) WatchOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// WatchClock overrides the wall clock used for watermarks and cooldowns.
func WatchClock(now func() time.Time) WatchOption {
	return func(f *Flow) {
		if f != nil && now != nil {
			f.appendOptions(WithClock(now))
		}
	}
}

// NotifySink injects a custom alert sink implementation.
func NotifySink(s AlertSink) NotifyOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithAlertSink(s))
		}
	}
}

// NotifyRecords streams every drift metric and change point to the given sink.
func NotifyRecords(s RecordsSink) NotifyOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithRecordsSink(s))
		}
	}
}

// NotifyCallback installs an alert sink built from a simple callback function.
func NotifyCallback(name string, fn AlertBatchSink) NotifyOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithAlertSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...MonitorOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
