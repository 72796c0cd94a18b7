package leak

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/registry"
)

type captureSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (c *captureSink) Publish(ev models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestScannerValidation(t *testing.T) {
	reg := registry.New()

	_, err := NewScanner(nil, ScannerConfig{AgeThreshold: time.Minute, CheckInterval: time.Second})
	assert.Error(t, err)

	_, err = NewScanner(reg, ScannerConfig{AgeThreshold: 0, CheckInterval: time.Second})
	assert.Error(t, err)

	_, err = NewScanner(reg, ScannerConfig{AgeThreshold: time.Minute, CheckInterval: -time.Second})
	assert.Error(t, err)
}

func TestScanNowAgeThreshold(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	now := t0
	clock := func() time.Time { return now }

	reg := registry.New(registry.WithClock(clock))
	sink := &captureSink{}
	scanner, err := NewScanner(reg, ScannerConfig{
		AgeThreshold:  5 * time.Minute,
		CheckInterval: 30 * time.Second,
		Events:        sink,
		Clock:         clock,
	})
	require.NoError(t, err)

	reg.RecordAllocation(0xabc, 4096, nil)

	t.Run("young allocation is not a candidate", func(t *testing.T) {
		now = t0.Add(time.Minute)
		assert.Empty(t, scanner.ScanNow())
		assert.Zero(t, sink.count(), "no event for an empty candidate set")
	})

	t.Run("allocation past the threshold is reported", func(t *testing.T) {
		now = t0.Add(6 * time.Minute)
		candidates := scanner.ScanNow()
		require.Len(t, candidates, 1)
		assert.Equal(t, uintptr(0xabc), candidates[0].Address)
		assert.Equal(t, uint64(4096), candidates[0].Size)
		assert.Equal(t, 1, sink.count())
	})

	t.Run("still-live candidate reappears on every scan", func(t *testing.T) {
		now = t0.Add(7 * time.Minute)
		candidates := scanner.ScanNow()
		require.Len(t, candidates, 1)
		assert.Equal(t, 2, sink.count(), "level-triggered: one event per non-empty scan")
	})

	t.Run("deallocated candidate disappears", func(t *testing.T) {
		reg.RecordDeallocation(0xabc)
		now = t0.Add(8 * time.Minute)
		assert.Empty(t, scanner.ScanNow())
	})
}

func TestScannerEventPayload(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	now := t0
	clock := func() time.Time { return now }

	reg := registry.New(registry.WithClock(clock))
	sink := &captureSink{}
	scanner, err := NewScanner(reg, ScannerConfig{
		AgeThreshold:  time.Minute,
		CheckInterval: time.Second,
		Events:        sink,
		Clock:         clock,
	})
	require.NoError(t, err)

	reg.RecordAllocation(0x1, 10, nil)
	reg.RecordAllocation(0x2, 20, nil)
	now = t0.Add(2 * time.Minute)
	scanner.ScanNow()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, models.EventLeakCandidates, ev.Kind)
	assert.NotEmpty(t, ev.ID)
	assert.Len(t, ev.Leaks, 2)
}

func TestScannerStartStop(t *testing.T) {
	reg := registry.New()
	scanner, err := NewScanner(reg, ScannerConfig{
		AgeThreshold:  time.Minute,
		CheckInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	scanner.Start()
	scanner.Start() // idempotent
	time.Sleep(20 * time.Millisecond)
	scanner.Stop()
	scanner.Stop() // idempotent

	// Restartable after a stop.
	scanner.Start()
	scanner.Stop()
}
