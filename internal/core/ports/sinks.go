package ports

import "github.com/memtrace/memtrace/internal/core/models"

// EventSink receives diagnostic events. Publish must never block; slow
// consumers are the sink's problem, not the publisher's.
type EventSink interface {
	Publish(event models.Event)
}

// StatsSource exposes the registry's aggregate counters to components that
// must not reach into its internal storage.
type StatsSource interface {
	Stats() models.MemoryStats
}

// RecordSource exposes the set of live allocations for scanning.
type RecordSource interface {
	LiveRecords() []models.AllocationRecord
}

// ReportSink is where the host application directs exported reports.
type ReportSink interface {
	Write(data []byte) error
}
