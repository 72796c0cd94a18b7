// Package memtrace is an opt-in memory allocation tracking, leak detection
// and profiling engine. Application code reports allocations and
// deallocations it cares about; background schedules sample memory usage,
// flag long-lived allocations as leak candidates and derive optimization
// suggestions from usage trends.
//
// It is not an allocator and hooks nothing automatically: call sites decide
// what to track, and leak candidates are heuristic signals to corroborate,
// not proof.
package memtrace

import (
	"github.com/memtrace/memtrace/config"
	"github.com/memtrace/memtrace/internal/app"
	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/report"
)

// Engine is the assembled profiling engine. Construct one with New and
// share it by reference; there is deliberately no package-level instance.
type Engine = app.Engine

// Re-exported data types.
type (
	Config                 = config.Config
	MemoryStats            = models.MemoryStats
	MemorySnapshot         = models.MemorySnapshot
	MemoryTrend            = models.MemoryTrend
	AllocationRecord       = models.AllocationRecord
	SourceLocation         = models.SourceLocation
	OptimizationSuggestion = models.OptimizationSuggestion
	Event                  = models.Event
	Format                 = report.Format
)

const (
	FormatJSON = report.FormatJSON
	FormatText = report.FormatText
)

// Option configures a new Engine.
type Option = app.Option

var (
	WithLogger = app.WithLogger
	WithProbe  = app.WithProbe
)

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return config.Default()
}

// New builds an engine from the given configuration.
func New(cfg Config, opts ...Option) (*Engine, error) {
	return app.New(cfg, opts...)
}
