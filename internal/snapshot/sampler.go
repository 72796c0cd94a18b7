package snapshot

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/core/ports"
)

const DefaultSampleInterval = 10 * time.Second

// SamplerConfig controls the periodic sampling schedule.
type SamplerConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
	// Stats supplies the active allocation count folded into each
	// snapshot. Optional; the count stays 0 without it.
	Stats ports.StatsSource
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Sampler periodically queries the injected memory probe and pushes the
// resulting snapshot into the store. One logical writer: snapshots enter
// the store in timestamp order.
type Sampler struct {
	store  *Store
	probe  ports.MemoryProbe
	stats  ports.StatsSource
	logger *zap.Logger
	now    func() time.Time

	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewSampler(store *Store, probe ports.MemoryProbe, cfg SamplerConfig) (*Sampler, error) {
	if store == nil {
		return nil, fmt.Errorf("sampler: store is required")
	}
	if probe == nil {
		return nil, fmt.Errorf("sampler: probe is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sampler: interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Sampler{
		store:    store,
		probe:    probe,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
		now:      cfg.Clock,
		interval: cfg.Interval,
	}, nil
}

// Start launches the periodic schedule. Idempotent.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	s.logger.Info("snapshot sampler started", zap.Duration("interval", s.interval))
}

// Stop halts the schedule and waits for any in-flight sample to finish.
// Idempotent; no tick fires after Stop returns.
func (s *Sampler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.logger.Info("snapshot sampler stopped")
}

func (s *Sampler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.TakeSnapshotNow()
		}
	}
}

// TakeSnapshotNow performs one sample synchronously, independent of the
// schedule. A failing probe yields a sentinel snapshot so the cadence the
// trend analyzer depends on stays regular.
func (s *Sampler) TakeSnapshotNow() models.MemorySnapshot {
	snap := s.sample()
	s.store.Push(snap)
	return snap
}

func (s *Sampler) sample() models.MemorySnapshot {
	ts := s.now()
	result, err := s.probe.Probe()
	if err != nil {
		s.logger.Warn("memory probe failed, recording sentinel snapshot", zap.Error(err))
		return models.MemorySnapshot{Timestamp: ts, Valid: false}
	}

	snap := models.MemorySnapshot{
		Timestamp:          ts,
		TotalMemory:        result.TotalMemory,
		HeapMemory:         result.HeapMemory,
		CategoryBreakdown:  result.CategoryBreakdown,
		FragmentationRatio: fragmentationRatio(result),
		Valid:              true,
	}
	if s.stats != nil {
		snap.ActiveAllocationCount = s.stats.Stats().CurrentAllocations
	}
	return snap
}

// fragmentationRatio estimates allocator overhead as the share of mapped
// memory not occupied by the heap, clamped to [0,1]. Best-effort heuristic.
func fragmentationRatio(r models.ProbeResult) float64 {
	if r.TotalMemory == 0 || r.HeapMemory > r.TotalMemory {
		return 0
	}
	return float64(r.TotalMemory-r.HeapMemory) / float64(r.TotalMemory)
}
