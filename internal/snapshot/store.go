// Package snapshot holds the bounded snapshot history and the periodic
// sampler that fills it.
package snapshot

import (
	"sync"

	"github.com/memtrace/memtrace/internal/core/models"
)

const DefaultMaxSnapshots = 1000

// Store is a bounded, time-ordered ring of memory snapshots. The sampler is
// the only writer; trend analysis, suggestions and report export read
// concurrently.
type Store struct {
	mu        sync.RWMutex
	snapshots []models.MemorySnapshot
	capacity  int
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultMaxSnapshots
	}
	return &Store{
		snapshots: make([]models.MemorySnapshot, 0, capacity),
		capacity:  capacity,
	}
}

// Push appends a snapshot, evicting the oldest entry once at capacity.
// Never fails on a full store.
func (s *Store) Push(snap models.MemorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == s.capacity {
		copy(s.snapshots, s.snapshots[1:])
		s.snapshots = s.snapshots[:len(s.snapshots)-1]
	}
	s.snapshots = append(s.snapshots, snap)
}

// Latest returns the most recent snapshot, if any.
func (s *Store) Latest() (models.MemorySnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshots) == 0 {
		return models.MemorySnapshot{}, false
	}
	return s.snapshots[len(s.snapshots)-1], true
}

// History returns snapshots ordered oldest to newest. A positive limit caps
// the result to the most recent entries.
func (s *Store) History(limit int) []models.MemorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.snapshots)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.MemorySnapshot, n)
	copy(out, s.snapshots[len(s.snapshots)-n:])
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = s.snapshots[:0]
}
