package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/espirado/model-drift-detection/internal/alerting"
	"github.com/espirado/model-drift-detection/internal/changepoint"
	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
	"github.com/espirado/model-drift-detection/internal/reference"
	"github.com/espirado/model-drift-detection/internal/window"
)

// Config is the root configuration. Loaded once at startup; a validation
// failure stops the process before any data is processed.
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Policy      ports.Policy      `yaml:"policy"`
	Reference   ReferenceConfig   `yaml:"reference"`
	Comparator  ComparatorConfig  `yaml:"comparator"`
	ChangePoint ChangePointConfig `yaml:"changepoint"`
	Thresholds  ThresholdsConfig  `yaml:"thresholds"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Timescale   TimescaleConfig   `yaml:"timescale"`
	Journal     JournalConfig     `yaml:"journal"`
}

type WindowConfig struct {
	Size        time.Duration `yaml:"size"`
	Alignment   string        `yaml:"alignment"` // "calendar" or "first_sample"
	GracePeriod time.Duration `yaml:"grace_period"`
	MaxOpen     int           `yaml:"max_open"`
	MinSamples  int           `yaml:"min_samples"`
}

type ReferenceConfig struct {
	Policy      string  `yaml:"policy"` // "manual" or "rolling"
	WindowCount int     `yaml:"window_count"`
	Decay       float64 `yaml:"decay"`
	MinSamples  int     `yaml:"min_samples"`
}

type ComparatorConfig struct {
	Bins int `yaml:"bins"`
}

type ChangePointConfig struct {
	Horizon int     `yaml:"horizon"`
	Penalty float64 `yaml:"penalty"`
	Signal  string  `yaml:"signal"` // "count" or a numeric feature name
}

// ThresholdBound is one warning/critical pair in the YAML file.
type ThresholdBound struct {
	Warning   float64 `yaml:"warning"`
	Critical  float64 `yaml:"critical"`
	Direction string  `yaml:"direction"` // "above" (default) or "below"
}

// ThresholdsConfig maps feature -> metric kind -> bound.
type ThresholdsConfig map[string]map[string]ThresholdBound

type AlertingConfig struct {
	Cooldown         time.Duration `yaml:"cooldown"`
	DispatchAttempts int           `yaml:"dispatch_attempts"`
	DispatchBackoff  time.Duration `yaml:"dispatch_backoff"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type TimescaleConfig struct {
	ConnString   string `yaml:"conn_string"`
	AlertsTable  string `yaml:"alerts_table"`
	MetricsTable string `yaml:"metrics_table"`
}

type JournalConfig struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Window.Size == 0 {
		c.Window.Size = 5 * time.Minute
	}
	if c.Window.Alignment == "" {
		c.Window.Alignment = string(window.AlignCalendar)
	}
	if c.Window.MaxOpen == 0 {
		c.Window.MaxOpen = 16
	}
	if c.Window.MinSamples == 0 {
		c.Window.MinSamples = 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 256
	}
	if c.Policy.MaxJournalBytes == 0 {
		c.Policy.MaxJournalBytes = 256 << 20
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 64
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnJournalFull == "" {
		c.Policy.OnJournalFull = "block"
	}
	if c.Reference.Policy == "" {
		c.Reference.Policy = string(reference.PolicyRolling)
	}
	if c.Reference.WindowCount == 0 {
		c.Reference.WindowCount = 12
	}
	if c.Reference.MinSamples == 0 {
		c.Reference.MinSamples = 100
	}
	if c.Comparator.Bins == 0 {
		c.Comparator.Bins = 16
	}
	if c.ChangePoint.Horizon == 0 {
		c.ChangePoint.Horizon = 48
	}
	if c.ChangePoint.Penalty == 0 {
		c.ChangePoint.Penalty = 10
	}
	if c.ChangePoint.Signal == "" {
		c.ChangePoint.Signal = changepoint.SignalCount
	}
	if c.Alerting.Cooldown == 0 {
		c.Alerting.Cooldown = 10 * time.Minute
	}
	if c.Alerting.DispatchAttempts == 0 {
		c.Alerting.DispatchAttempts = 5
	}
	if c.Alerting.DispatchBackoff == 0 {
		c.Alerting.DispatchBackoff = 250 * time.Millisecond
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Timescale.AlertsTable == "" {
		c.Timescale.AlertsTable = "drift_alerts"
	}
	if c.Timescale.MetricsTable == "" {
		c.Timescale.MetricsTable = "drift_metrics"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}
}

func (c *Config) Validate() error {
	if c.Window.Size <= 0 {
		return fmt.Errorf("window.size must be > 0")
	}
	if c.Window.GracePeriod < 0 {
		return fmt.Errorf("window.grace_period must be >= 0")
	}
	switch window.Alignment(c.Window.Alignment) {
	case window.AlignCalendar, window.AlignFirstSample:
	default:
		return fmt.Errorf("window.alignment: unknown value %q", c.Window.Alignment)
	}
	if c.Window.MaxOpen < 1 {
		return fmt.Errorf("window.max_open must be >= 1")
	}
	if c.Window.MinSamples < 1 {
		return fmt.Errorf("window.min_samples must be >= 1")
	}
	switch c.Policy.OnQueueFull {
	case "block", "drop":
	default:
		return fmt.Errorf("policy.on_queue_full: unknown value %q", c.Policy.OnQueueFull)
	}
	switch c.Policy.OnJournalFull {
	case "block", "drop":
	default:
		return fmt.Errorf("policy.on_journal_full: unknown value %q", c.Policy.OnJournalFull)
	}
	if err := (&reference.Config{
		Policy:      reference.Policy(c.Reference.Policy),
		WindowCount: c.Reference.WindowCount,
		Decay:       c.Reference.Decay,
		Bins:        c.Comparator.Bins,
		MinSamples:  c.Reference.MinSamples,
	}).Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if c.ChangePoint.Penalty <= 0 {
		return fmt.Errorf("changepoint.penalty must be > 0")
	}
	if c.ChangePoint.Horizon < 4 {
		return fmt.Errorf("changepoint.horizon must be >= 4")
	}
	if err := c.AlertThresholds().Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown must be >= 0")
	}
	if c.Alerting.DispatchAttempts < 1 {
		return fmt.Errorf("alerting.dispatch_attempts must be >= 1")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.Journal.Dir == "" {
		return fmt.Errorf("journal.dir is required")
	}
	return nil
}

// AlertThresholds converts the YAML threshold map into the alerting package's
// typed form.
func (c *Config) AlertThresholds() alerting.Thresholds {
	out := make(alerting.Thresholds, len(c.Thresholds))
	for feature, kinds := range c.Thresholds {
		m := make(map[domain.MetricKind]alerting.Bound, len(kinds))
		for kind, b := range kinds {
			m[domain.MetricKind(kind)] = alerting.Bound{
				Warning:   b.Warning,
				Critical:  b.Critical,
				Direction: alerting.Direction(b.Direction),
			}
		}
		out[feature] = m
	}
	return out
}
