package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeProbe(t *testing.T) {
	result, err := NewRuntime().Probe()
	require.NoError(t, err)

	assert.Greater(t, result.TotalMemory, uint64(0))
	assert.Greater(t, result.HeapMemory, uint64(0))
	assert.LessOrEqual(t, result.HeapMemory, result.TotalMemory)

	for _, category := range []string{CategoryHeap, CategoryStack, CategoryGC, CategoryRuntime, CategoryReleased} {
		_, ok := result.CategoryBreakdown[category]
		assert.True(t, ok, "breakdown must report %q", category)
	}
	assert.Equal(t, result.HeapMemory, result.CategoryBreakdown[CategoryHeap])
}
