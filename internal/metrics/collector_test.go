package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/registry"
	"github.com/memtrace/memtrace/internal/snapshot"
)

func TestCollectorGather(t *testing.T) {
	reg := registry.New()
	store := snapshot.NewStore(10)
	collector := NewCollector(reg, store)

	promReg := prometheus.NewPedanticRegistry()
	require.NoError(t, promReg.Register(collector))

	reg.RecordAllocation(0x1, 2048, nil)
	reg.RecordAllocation(0x2, 1024, nil)
	reg.RecordDeallocation(0x2)
	reg.RecordDeallocation(0xbad)
	store.Push(models.MemorySnapshot{
		Timestamp:          time.Now(),
		TotalMemory:        1000,
		FragmentationRatio: 0.25,
		Valid:              true,
	})

	expected := `
# HELP memtrace_live_allocations Currently live tracked allocations.
# TYPE memtrace_live_allocations gauge
memtrace_live_allocations 1
# HELP memtrace_live_bytes Bytes held by live tracked allocations.
# TYPE memtrace_live_bytes gauge
memtrace_live_bytes 2048
# HELP memtrace_peak_bytes High-water mark of live tracked bytes.
# TYPE memtrace_peak_bytes gauge
memtrace_peak_bytes 3072
# HELP memtrace_fragmentation_ratio Fragmentation ratio of the latest valid snapshot.
# TYPE memtrace_fragmentation_ratio gauge
memtrace_fragmentation_ratio 0.25
`
	err := testutil.GatherAndCompare(promReg, strings.NewReader(expected),
		"memtrace_live_allocations", "memtrace_live_bytes",
		"memtrace_peak_bytes", "memtrace_fragmentation_ratio")
	assert.NoError(t, err)

	count := testutil.CollectAndCount(collector)
	assert.Equal(t, 10, count, "all metric series present with a valid snapshot")
}

func TestCollectorWithoutSnapshots(t *testing.T) {
	reg := registry.New()
	store := snapshot.NewStore(10)
	collector := NewCollector(reg, store)

	// No fragmentation series until a valid snapshot exists.
	count := testutil.CollectAndCount(collector)
	assert.Equal(t, 9, count)

	store.Push(models.MemorySnapshot{Timestamp: time.Now(), Valid: false})
	assert.Equal(t, 9, testutil.CollectAndCount(collector))
}
