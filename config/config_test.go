package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memtrace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
snapshot:
  interval: 2s
leak:
  age_threshold: 10m
suggestions:
  growth_rate_threshold: 0.25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Snapshot.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Leak.AgeThreshold)
	assert.Equal(t, 0.25, cfg.Suggest.GrowthRateThreshold)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Leak.CheckInterval)
	assert.Equal(t, 1000, cfg.Snapshot.MaxSnapshots)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsMisconfiguration(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero snapshot interval", func(c *Config) { c.Snapshot.Interval = 0 }},
		{"negative age threshold", func(c *Config) { c.Leak.AgeThreshold = -time.Second }},
		{"zero check interval", func(c *Config) { c.Leak.CheckInterval = 0 }},
		{"zero analysis window", func(c *Config) { c.Analysis.Window = 0 }},
		{"zero max snapshots", func(c *Config) { c.Snapshot.MaxSnapshots = 0 }},
		{"zero history limit", func(c *Config) { c.Report.HistoryLimit = 0 }},
		{"zero growth threshold", func(c *Config) { c.Suggest.GrowthRateThreshold = 0 }},
		{"category share above 1", func(c *Config) { c.Suggest.CategoryShareThreshold = 1.2 }},
		{"negative fragmentation threshold", func(c *Config) { c.Suggest.FragmentationThreshold = -0.1 }},
		{"zero allocation count threshold", func(c *Config) { c.Suggest.AllocationCountThreshold = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate(), "misconfiguration must be rejected, not coerced")
		})
	}
}

func TestLoadRejectsExplicitBadValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snapshot:\n  interval: 0s\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "an explicit zero must not silently fall back to the default")
}
