package driftdetect

import (
	"github.com/espirado/model-drift-detection/internal/app/config"
	"github.com/espirado/model-drift-detection/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls queue/journal thresholds and backpressure behavior.
	Policy = ports.Policy
	// WindowConfig controls bucket size, alignment, and grace period.
	WindowConfig = config.WindowConfig
	// ReferenceConfig selects the baseline policy.
	ReferenceConfig = config.ReferenceConfig
	// ComparatorConfig tunes the discretization used for JS divergence.
	ComparatorConfig = config.ComparatorConfig
	// ChangePointConfig tunes the PELT horizon and penalty.
	ChangePointConfig = config.ChangePointConfig
	// ThresholdsConfig maps feature -> metric kind -> warning/critical bounds.
	ThresholdsConfig = config.ThresholdsConfig
	// ThresholdBound is one warning/critical pair.
	ThresholdBound = config.ThresholdBound
	// AlertingConfig sets the cooldown and dispatch retry budget.
	AlertingConfig = config.AlertingConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// TimescaleConfig configures the optional persistence sink.
	TimescaleConfig = config.TimescaleConfig
	// JournalConfig configures the on-disk alert journal.
	JournalConfig = config.JournalConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
