package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memtrace/memtrace/internal/core/models"
)

func snapAt(sec int, total uint64) models.MemorySnapshot {
	return models.MemorySnapshot{
		Timestamp:   time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC),
		TotalMemory: total,
		Valid:       true,
	}
}

func TestStoreEviction(t *testing.T) {
	t.Run("evicts oldest beyond capacity", func(t *testing.T) {
		s := NewStore(2)
		s.Push(snapAt(0, 100)) // A
		s.Push(snapAt(1, 150)) // B
		s.Push(snapAt(2, 200)) // C

		history := s.History(0)
		assert.Len(t, history, 2)
		assert.Equal(t, uint64(150), history[0].TotalMemory)
		assert.Equal(t, uint64(200), history[1].TotalMemory)
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		s := NewStore(5)
		for i := 0; i < 50; i++ {
			s.Push(snapAt(i, uint64(i)))
		}
		assert.Equal(t, 5, s.Len())
		history := s.History(0)
		assert.Equal(t, uint64(45), history[0].TotalMemory)
		assert.Equal(t, uint64(49), history[4].TotalMemory)
	})
}

func TestStoreHistoryOrderAndLimit(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 6; i++ {
		s.Push(snapAt(i, uint64(i*100)))
	}

	all := s.History(0)
	assert.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].Timestamp.After(all[i-1].Timestamp), "history must be oldest to newest")
	}

	capped := s.History(2)
	assert.Len(t, capped, 2)
	assert.Equal(t, uint64(400), capped[0].TotalMemory)
	assert.Equal(t, uint64(500), capped[1].TotalMemory)

	// A limit beyond the size returns everything.
	assert.Len(t, s.History(100), 6)
}

func TestStoreLatest(t *testing.T) {
	s := NewStore(3)

	_, ok := s.Latest()
	assert.False(t, ok)

	s.Push(snapAt(0, 1))
	s.Push(snapAt(1, 2))
	latest, ok := s.Latest()
	assert.True(t, ok)
	assert.Equal(t, uint64(2), latest.TotalMemory)
}

func TestStoreClear(t *testing.T) {
	s := NewStore(3)
	s.Push(snapAt(0, 1))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.History(0))
	assert.Equal(t, 3, s.Capacity())
}
