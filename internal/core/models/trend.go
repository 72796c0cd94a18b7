package models

// MemoryTrend is derived on demand from the snapshots inside an analysis
// window. A zero trend with Samples == 0 means the window held no data.
type MemoryTrend struct {
	AverageUsage float64 `json:"average_usage"`
	PeakUsage    uint64  `json:"peak_usage"`
	MinimumUsage uint64  `json:"minimum_usage"`
	// GrowthRate is the fractional change of TotalMemory over the window:
	// (last-first)/first, 0 when the first sample reports 0.
	GrowthRate       float64 `json:"growth_rate"`
	AllocationRate   float64 `json:"allocation_rate"`   // allocations per minute, estimated
	DeallocationRate float64 `json:"deallocation_rate"` // deallocations per minute, estimated
	Samples          int     `json:"samples"`
}
