// Package suggest turns the latest snapshot and trend into prioritized,
// actionable optimization suggestions. Every rule is a heuristic; the
// estimated savings are proportional guesses, not measured recoverable
// memory.
package suggest

import (
	"fmt"
	"sort"

	"github.com/memtrace/memtrace/internal/core/models"
)

const (
	DefaultGrowthRateThreshold      = 0.10
	DefaultCategoryShareThreshold   = 0.70
	DefaultFragmentationThreshold   = 0.30
	DefaultAllocationCountThreshold = 100_000
)

// Config holds the rule thresholds. Fractions must sit in (0,1]; the
// allocation count threshold must be positive.
type Config struct {
	GrowthRateThreshold      float64
	CategoryShareThreshold   float64
	FragmentationThreshold   float64
	AllocationCountThreshold uint64
}

func DefaultConfig() Config {
	return Config{
		GrowthRateThreshold:      DefaultGrowthRateThreshold,
		CategoryShareThreshold:   DefaultCategoryShareThreshold,
		FragmentationThreshold:   DefaultFragmentationThreshold,
		AllocationCountThreshold: DefaultAllocationCountThreshold,
	}
}

// Engine is stateless: Generate is a pure function of its inputs, so
// identical inputs always yield the identical suggestion list.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.GrowthRateThreshold <= 0 {
		return nil, fmt.Errorf("suggest: growth rate threshold must be positive, got %v", cfg.GrowthRateThreshold)
	}
	for name, frac := range map[string]float64{
		"category share": cfg.CategoryShareThreshold,
		"fragmentation":  cfg.FragmentationThreshold,
	} {
		if frac <= 0 || frac > 1 {
			return nil, fmt.Errorf("suggest: %s threshold must be in (0,1], got %v", name, frac)
		}
	}
	if cfg.AllocationCountThreshold == 0 {
		return nil, fmt.Errorf("suggest: allocation count threshold must be positive")
	}
	return &Engine{cfg: cfg}, nil
}

// Generate evaluates every rule against the snapshot and trend and returns
// the concatenated results sorted by priority, highest first. A sentinel
// snapshot (Valid=false) disables the snapshot-based rules; the growth rule
// still runs off the trend.
func (e *Engine) Generate(snap models.MemorySnapshot, trend models.MemoryTrend) []models.OptimizationSuggestion {
	var out []models.OptimizationSuggestion

	if trend.Samples > 0 && trend.GrowthRate > e.cfg.GrowthRateThreshold {
		grown := trend.PeakUsage - trend.MinimumUsage
		out = append(out, models.OptimizationSuggestion{
			Category: "Memory Growth",
			Description: fmt.Sprintf("memory usage grew %.1f%% over the analysis window",
				trend.GrowthRate*100),
			RecommendedAction:     "look for unbounded caches or collections that grow with load",
			Priority:              models.PriorityHigh,
			EstimatedSavingsBytes: grown / 2,
		})
	}

	if snap.Valid {
		out = append(out, e.categoryRules(snap)...)

		if snap.FragmentationRatio > e.cfg.FragmentationThreshold {
			out = append(out, models.OptimizationSuggestion{
				Category: "Memory Fragmentation",
				Description: fmt.Sprintf("fragmentation ratio is %.0f%%",
					snap.FragmentationRatio*100),
				RecommendedAction:     "pool similarly-sized objects or batch allocations to reduce fragmentation",
				Priority:              models.PriorityMedium,
				EstimatedSavingsBytes: uint64(float64(snap.TotalMemory) * snap.FragmentationRatio / 4),
			})
		}

		if snap.ActiveAllocationCount > e.cfg.AllocationCountThreshold {
			out = append(out, models.OptimizationSuggestion{
				Category: "Object Count",
				Description: fmt.Sprintf("%d tracked allocations are live",
					snap.ActiveAllocationCount),
				RecommendedAction:     "merge small allocations or reuse objects to cut per-object overhead",
				Priority:              models.PriorityMedium,
				EstimatedSavingsBytes: (snap.ActiveAllocationCount - e.cfg.AllocationCountThreshold) * 64,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// categoryRules flags every category holding more than the configured share
// of total memory. Categories are visited in name order so the output is
// deterministic.
func (e *Engine) categoryRules(snap models.MemorySnapshot) []models.OptimizationSuggestion {
	if snap.TotalMemory == 0 {
		return nil
	}
	names := make([]string, 0, len(snap.CategoryBreakdown))
	for name := range snap.CategoryBreakdown {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []models.OptimizationSuggestion
	for _, name := range names {
		bytes := snap.CategoryBreakdown[name]
		share := float64(bytes) / float64(snap.TotalMemory)
		if share <= e.cfg.CategoryShareThreshold {
			continue
		}
		out = append(out, models.OptimizationSuggestion{
			Category: "Category Concentration",
			Description: fmt.Sprintf("category %q holds %.0f%% of total memory",
				name, share*100),
			RecommendedAction:     fmt.Sprintf("audit %q usage; a single dominant category usually hides redundant data", name),
			Priority:              models.PriorityCritical,
			EstimatedSavingsBytes: bytes / 4,
		})
	}
	return out
}
