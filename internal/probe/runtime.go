// Package probe supplies platform memory-usage probes for the sampler.
package probe

import (
	"runtime"

	"github.com/memtrace/memtrace/internal/core/models"
)

// Category names reported by the runtime probe. The breakdown is
// platform-dependent; consumers must not assume a fixed key set.
const (
	CategoryHeap     = "heap"
	CategoryStack    = "stack"
	CategoryGC       = "gc"
	CategoryRuntime  = "runtime"
	CategoryReleased = "released"
)

// Runtime reads the Go runtime's memory statistics. It never fails; it
// exists behind the MemoryProbe interface so tests and other platforms can
// substitute their own source.
type Runtime struct{}

func NewRuntime() Runtime {
	return Runtime{}
}

func (Runtime) Probe() (models.ProbeResult, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return models.ProbeResult{
		TotalMemory: m.Sys,
		HeapMemory:  m.HeapInuse,
		CategoryBreakdown: map[string]uint64{
			CategoryHeap:     m.HeapInuse,
			CategoryStack:    m.StackInuse,
			CategoryGC:       m.GCSys,
			CategoryRuntime:  m.MSpanInuse + m.MCacheInuse + m.OtherSys,
			CategoryReleased: m.HeapReleased,
		},
	}, nil
}
