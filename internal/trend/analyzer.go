// Package trend computes aggregate statistics over a sliding window of the
// snapshot history.
package trend

import (
	"time"

	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/snapshot"
)

const DefaultWindow = 15 * time.Minute

type Analyzer struct {
	store *snapshot.Store
	now   func() time.Time
}

type Option func(*Analyzer)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func NewAnalyzer(store *snapshot.Store, opts ...Option) *Analyzer {
	a := &Analyzer{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze derives a trend from the valid snapshots newer than now-window.
// An empty window yields a zero trend; early in a session that is the
// normal state, not an error. Sentinel snapshots are skipped.
func (a *Analyzer) Analyze(window time.Duration) models.MemoryTrend {
	cutoff := a.now().Add(-window)

	var selected []models.MemorySnapshot
	for _, snap := range a.store.History(0) {
		if snap.Valid && !snap.Timestamp.Before(cutoff) {
			selected = append(selected, snap)
		}
	}
	if len(selected) == 0 {
		return models.MemoryTrend{}
	}

	first, last := selected[0], selected[len(selected)-1]
	t := models.MemoryTrend{
		PeakUsage:    first.TotalMemory,
		MinimumUsage: first.TotalMemory,
		Samples:      len(selected),
	}

	var sum float64
	for _, snap := range selected {
		sum += float64(snap.TotalMemory)
		if snap.TotalMemory > t.PeakUsage {
			t.PeakUsage = snap.TotalMemory
		}
		if snap.TotalMemory < t.MinimumUsage {
			t.MinimumUsage = snap.TotalMemory
		}
	}
	t.AverageUsage = sum / float64(len(selected))

	if first.TotalMemory > 0 {
		t.GrowthRate = (float64(last.TotalMemory) - float64(first.TotalMemory)) / float64(first.TotalMemory)
	}

	t.AllocationRate, t.DeallocationRate = churnRates(selected)
	return t
}

// churnRates estimates allocation and deallocation rates per minute from
// the active-count movement between consecutive snapshots. Approximations;
// the exact counters live in the registry's MemoryStats.
func churnRates(snaps []models.MemorySnapshot) (allocs, deallocs float64) {
	elapsed := snaps[len(snaps)-1].Timestamp.Sub(snaps[0].Timestamp).Minutes()
	if elapsed <= 0 {
		return 0, 0
	}
	var up, down float64
	for i := 1; i < len(snaps); i++ {
		delta := int64(snaps[i].ActiveAllocationCount) - int64(snaps[i-1].ActiveAllocationCount)
		if delta > 0 {
			up += float64(delta)
		} else {
			down += float64(-delta)
		}
	}
	return up / elapsed, down / elapsed
}
