package ports

import "github.com/memtrace/memtrace/internal/core/models"

// MemoryProbe supplies process memory usage for one sample. Implementations
// are platform-specific and injected so the engine is testable with a fake.
type MemoryProbe interface {
	Probe() (models.ProbeResult, error)
}
