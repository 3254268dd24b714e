package driftdetection

import (
	"time"

	base "github.com/espirado/model-drift-detection/pkg/driftdetect"
)

// Re-exported errors for convenience.
var (
	ErrQueueFull         = base.ErrQueueFull
	ErrNotRunning        = base.ErrNotRunning
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/espirado/model-drift-detection directly.
type (
	Config            = base.Config
	Policy            = base.Policy
	WindowConfig      = base.WindowConfig
	ReferenceConfig   = base.ReferenceConfig
	ComparatorConfig  = base.ComparatorConfig
	ChangePointConfig = base.ChangePointConfig
	ThresholdsConfig  = base.ThresholdsConfig
	ThresholdBound    = base.ThresholdBound
	AlertingConfig    = base.AlertingConfig
	MetricsConfig     = base.MetricsConfig
	TimescaleConfig   = base.TimescaleConfig
	JournalConfig     = base.JournalConfig
	Flow              = base.Flow
	FlowOption        = base.FlowOption
	WatchOption       = base.WatchOption
	NotifyOption      = base.NotifyOption
	Monitor           = base.Monitor
	MonitorOption     = base.MonitorOption
	Sample            = base.Sample
	Alert             = base.Alert
	Severity          = base.Severity
	MetricKind        = base.MetricKind
	DriftMetric       = base.DriftMetric
	ChangePoint       = base.ChangePoint
	AlertBatchSink    = base.AlertBatchSink
	AlertSink         = base.AlertSink
	RecordsSink       = base.RecordsSink
	WindowQueue       = base.WindowQueue
	AlertQueue        = base.AlertQueue
	Journal           = base.Journal
	JournalEntryID    = base.JournalEntryID
	JournalStats      = base.JournalStats
	Observability     = base.Observability
	Field             = base.Field
	ReferenceSet      = base.ReferenceSet
)

// Severity and metric kind constants.
const (
	SeverityWarning  = base.SeverityWarning
	SeverityCritical = base.SeverityCritical

	MetricJSDivergence = base.MetricJSDivergence
	MetricKSStatistic  = base.MetricKSStatistic
	MetricChiSquared   = base.MetricChiSquared
	MetricChangePoint  = base.MetricChangePoint
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...MonitorOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func WatchQueue(q WindowQueue) WatchOption {
	return base.WatchQueue(q)
}

func WatchJournal(j Journal) WatchOption {
	return base.WatchJournal(j)
}

func WatchObservability(obs Observability) WatchOption {
	return base.WatchObservability(obs)
}

func WatchClock(now func() time.Time) WatchOption {
	return base.WatchClock(now)
}

func NotifySink(s AlertSink) NotifyOption {
	return base.NotifySink(s)
}

func NotifyRecords(s RecordsSink) NotifyOption {
	return base.NotifyRecords(s)
}

func NotifyCallback(name string, fn AlertBatchSink) NotifyOption {
	return base.NotifyCallback(name, fn)
}

// Monitor and options.
func NewMonitor(cfg *Config, opts ...MonitorOption) (*Monitor, error) {
	return base.NewMonitor(cfg, opts...)
}

func WithObservability(obs Observability) MonitorOption {
	return base.WithObservability(obs)
}

func WithWindowQueue(q WindowQueue) MonitorOption {
	return base.WithWindowQueue(q)
}

func WithAlertQueue(q AlertQueue) MonitorOption {
	return base.WithAlertQueue(q)
}

func WithAlertSink(s AlertSink) MonitorOption {
	return base.WithAlertSink(s)
}

func WithRecordsSink(s RecordsSink) MonitorOption {
	return base.WithRecordsSink(s)
}

func WithJournal(j Journal) MonitorOption {
	return base.WithJournal(j)
}

func WithTickInterval(d time.Duration) MonitorOption {
	return base.WithTickInterval(d)
}

func WithClock(now func() time.Time) MonitorOption {
	return base.WithClock(now)
}

// Sink adapters.
func NewCallbackSink(name string, fn AlertBatchSink) AlertSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (AlertSink, <-chan []Alert, func()) {
	return base.NewChannelSink(name, buffer)
}
