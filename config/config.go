// Package config carries the engine's tunables. Defaults are sane for an
// interactive profiling session; Load overlays a yaml file on top of them.
// Validation rejects misconfiguration outright rather than silently
// coercing values back to defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Leak     LeakConfig     `yaml:"leak"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Suggest  SuggestConfig  `yaml:"suggestions"`
	Report   ReportConfig   `yaml:"report"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type SnapshotConfig struct {
	Interval     time.Duration `yaml:"interval"`
	MaxSnapshots int           `yaml:"max_snapshots"`
}

type LeakConfig struct {
	AgeThreshold  time.Duration `yaml:"age_threshold"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

type AnalysisConfig struct {
	Interval time.Duration `yaml:"interval"`
	Window   time.Duration `yaml:"window"`
}

type SuggestConfig struct {
	GrowthRateThreshold      float64 `yaml:"growth_rate_threshold"`
	CategoryShareThreshold   float64 `yaml:"category_share_threshold"`
	FragmentationThreshold   float64 `yaml:"fragmentation_threshold"`
	AllocationCountThreshold uint64  `yaml:"allocation_count_threshold"`
}

type ReportConfig struct {
	HistoryLimit int    `yaml:"history_limit"`
	Path         string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func Default() Config {
	return Config{
		Snapshot: SnapshotConfig{
			Interval:     10 * time.Second,
			MaxSnapshots: 1000,
		},
		Leak: LeakConfig{
			AgeThreshold:  5 * time.Minute,
			CheckInterval: 30 * time.Second,
		},
		Analysis: AnalysisConfig{
			Interval: time.Minute,
			Window:   15 * time.Minute,
		},
		Suggest: SuggestConfig{
			GrowthRateThreshold:      0.10,
			CategoryShareThreshold:   0.70,
			FragmentationThreshold:   0.30,
			AllocationCountThreshold: 100_000,
		},
		Report: ReportConfig{
			HistoryLimit: 100,
		},
		Metrics: MetricsConfig{
			Addr: ":9270",
		},
	}
}

// Load reads a yaml config file over the defaults. Keys absent from the
// file keep their default; keys present are taken as written and validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	for name, d := range map[string]time.Duration{
		"snapshot.interval":   c.Snapshot.Interval,
		"leak.age_threshold":  c.Leak.AgeThreshold,
		"leak.check_interval": c.Leak.CheckInterval,
		"analysis.interval":   c.Analysis.Interval,
		"analysis.window":     c.Analysis.Window,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", name, d)
		}
	}
	if c.Snapshot.MaxSnapshots <= 0 {
		return fmt.Errorf("config: snapshot.max_snapshots must be positive, got %d", c.Snapshot.MaxSnapshots)
	}
	if c.Report.HistoryLimit <= 0 {
		return fmt.Errorf("config: report.history_limit must be positive, got %d", c.Report.HistoryLimit)
	}
	if c.Suggest.GrowthRateThreshold <= 0 {
		return fmt.Errorf("config: suggestions.growth_rate_threshold must be positive, got %v", c.Suggest.GrowthRateThreshold)
	}
	for name, frac := range map[string]float64{
		"suggestions.category_share_threshold": c.Suggest.CategoryShareThreshold,
		"suggestions.fragmentation_threshold":  c.Suggest.FragmentationThreshold,
	} {
		if frac <= 0 || frac > 1 {
			return fmt.Errorf("config: %s must be in (0,1], got %v", name, frac)
		}
	}
	if c.Suggest.AllocationCountThreshold == 0 {
		return fmt.Errorf("config: suggestions.allocation_count_threshold must be positive")
	}
	return nil
}
