package models

import "time"

// ProbeResult is what a memory-usage probe reports for one sample.
type ProbeResult struct {
	TotalMemory       uint64
	HeapMemory        uint64
	CategoryBreakdown map[string]uint64
}

// MemorySnapshot is an immutable point-in-time sample of memory usage.
// A snapshot with Valid=false is a sentinel recorded when the probe failed;
// consumers must treat it as "no data", not as zero usage.
type MemorySnapshot struct {
	Timestamp             time.Time         `json:"timestamp"`
	TotalMemory           uint64            `json:"total_memory"`
	HeapMemory            uint64            `json:"heap_memory"`
	CategoryBreakdown     map[string]uint64 `json:"category_breakdown,omitempty"`
	ActiveAllocationCount uint64            `json:"active_allocation_count"`
	// FragmentationRatio is the allocator-overhead share of mapped memory,
	// (TotalMemory-HeapMemory)/TotalMemory clamped to [0,1]. A heuristic,
	// not a precise measurement.
	FragmentationRatio float64 `json:"fragmentation_ratio"`
	Valid              bool    `json:"valid"`
}
