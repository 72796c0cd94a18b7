// Package registry is the engine's allocation bookkeeping: a thread-safe
// map of live allocations plus aggregate counters. It is the hot path,
// invoked on every tracked allocation and deallocation, so the critical
// section is a single O(1) map operation plus counter updates. Scanning is
// left to the leak scanner, which works on copies.
package registry

import (
	"sync"
	"time"

	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/core/ports"
)

type Registry struct {
	mu      sync.RWMutex
	records map[uintptr]models.AllocationRecord

	totalAllocations      uint64
	totalDeallocations    uint64
	totalBytesAllocated   uint64
	currentBytesAllocated uint64
	peakBytesAllocated    uint64

	doubleRegisters uint64
	unknownFrees    uint64

	events ports.EventSink
	now    func() time.Time
}

type Option func(*Registry)

// WithEventSink routes anomaly events to the given sink.
func WithEventSink(sink ports.EventSink) Option {
	return func(r *Registry) { r.events = sink }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		records: make(map[uintptr]models.AllocationRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordAllocation registers a live allocation at addr. Registering an
// address that is already live overwrites the prior record: the displaced
// record counts as deallocated so byte counters stay balanced, and a
// double-register anomaly is published. Never fails; hot-path safe.
func (r *Registry) RecordAllocation(addr uintptr, size uint64, source *models.SourceLocation) {
	rec := models.AllocationRecord{
		Address:   addr,
		Size:      size,
		Source:    source,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	prev, collided := r.records[addr]
	r.records[addr] = rec

	r.totalAllocations++
	r.totalBytesAllocated += size
	r.currentBytesAllocated += size
	if collided {
		r.totalDeallocations++
		r.currentBytesAllocated -= prev.Size
		r.doubleRegisters++
	}
	if r.currentBytesAllocated > r.peakBytesAllocated {
		r.peakBytesAllocated = r.currentBytesAllocated
	}
	r.mu.Unlock()

	if collided {
		r.publishAnomaly(models.AnomalyDoubleRegister, addr)
	}
}

// RecordDeallocation removes the live record at addr. Deallocating an
// address that is not live leaves all counters untouched and publishes an
// unknown-free anomaly. Never fails; hot-path safe.
func (r *Registry) RecordDeallocation(addr uintptr) {
	r.mu.Lock()
	rec, ok := r.records[addr]
	if ok {
		delete(r.records, addr)
		r.totalDeallocations++
		r.currentBytesAllocated -= rec.Size
	} else {
		r.unknownFrees++
	}
	r.mu.Unlock()

	if !ok {
		r.publishAnomaly(models.AnomalyUnknownFree, addr)
	}
}

// Stats returns a consistent point-in-time copy of the aggregate counters.
func (r *Registry) Stats() models.MemoryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.MemoryStats{
		TotalAllocations:      r.totalAllocations,
		TotalDeallocations:    r.totalDeallocations,
		CurrentAllocations:    uint64(len(r.records)),
		TotalBytesAllocated:   r.totalBytesAllocated,
		CurrentBytesAllocated: r.currentBytesAllocated,
		PeakBytesAllocated:    r.peakBytesAllocated,
	}
}

// AnomalyCounts returns the running anomaly tallies.
func (r *Registry) AnomalyCounts() models.AnomalyCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.AnomalyCounts{
		DoubleRegister: r.doubleRegisters,
		UnknownFree:    r.unknownFrees,
	}
}

// LiveRecords returns a copy of every live allocation record.
func (r *Registry) LiveRecords() []models.AllocationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AllocationRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out
}

// Reset clears the registry and all counters. Test isolation only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[uintptr]models.AllocationRecord)
	r.totalAllocations = 0
	r.totalDeallocations = 0
	r.totalBytesAllocated = 0
	r.currentBytesAllocated = 0
	r.peakBytesAllocated = 0
	r.doubleRegisters = 0
	r.unknownFrees = 0
}

func (r *Registry) publishAnomaly(kind models.AnomalyKind, addr uintptr) {
	if r.events == nil {
		return
	}
	ev := models.NewEvent(models.EventAnomaly, r.now())
	ev.Anomaly = &models.Anomaly{Kind: kind, Address: addr}
	r.events.Publish(ev)
}
