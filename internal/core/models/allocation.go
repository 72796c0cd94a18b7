package models

import "time"

// SourceLocation identifies the call site that performed an allocation.
type SourceLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// AllocationRecord is one live tracked allocation. Identity is the address;
// the registry holds at most one live record per address.
type AllocationRecord struct {
	Address   uintptr         `json:"address"`
	Size      uint64          `json:"size"`
	Source    *SourceLocation `json:"source,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Age returns how long the allocation has been live as of now.
func (r AllocationRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// MemoryStats are the registry's aggregate counters. CurrentAllocations and
// CurrentBytesAllocated rise and fall; everything else is non-decreasing.
type MemoryStats struct {
	TotalAllocations      uint64 `json:"total_allocations"`
	TotalDeallocations    uint64 `json:"total_deallocations"`
	CurrentAllocations    uint64 `json:"current_allocations"`
	TotalBytesAllocated   uint64 `json:"total_bytes_allocated"`
	CurrentBytesAllocated uint64 `json:"current_bytes_allocated"`
	PeakBytesAllocated    uint64 `json:"peak_bytes_allocated"`
}

// AnomalyCounts tallies non-fatal bookkeeping anomalies seen by the registry.
type AnomalyCounts struct {
	DoubleRegister uint64 `json:"double_register"`
	UnknownFree    uint64 `json:"unknown_free"`
}
