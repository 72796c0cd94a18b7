// Package leak flags long-lived allocations as leak candidates. An old
// allocation is a heuristic signal, not a proven leak; long-lived caches
// trip it by design and callers must corroborate.
package leak

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/core/ports"
)

const (
	DefaultAgeThreshold  = 5 * time.Minute
	DefaultCheckInterval = 30 * time.Second
)

// ScannerConfig controls the age heuristic and the periodic schedule. The
// check interval should be well below the age threshold so several checks
// happen before an allocation can first be reported.
type ScannerConfig struct {
	AgeThreshold  time.Duration
	CheckInterval time.Duration
	Logger        *zap.Logger
	Events        ports.EventSink
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Scanner periodically walks the live allocation set and reports every
// record older than the age threshold. Reporting is level-triggered: each
// scan emits the full candidate set, and a still-live candidate appears in
// every subsequent scan. Callers needing edge-triggered alerts de-duplicate
// by address.
type Scanner struct {
	records ports.RecordSource
	logger  *zap.Logger
	events  ports.EventSink
	now     func() time.Time

	ageThreshold  time.Duration
	checkInterval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewScanner(records ports.RecordSource, cfg ScannerConfig) (*Scanner, error) {
	if records == nil {
		return nil, fmt.Errorf("leak scanner: record source is required")
	}
	if cfg.AgeThreshold <= 0 {
		return nil, fmt.Errorf("leak scanner: age threshold must be positive, got %s", cfg.AgeThreshold)
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("leak scanner: check interval must be positive, got %s", cfg.CheckInterval)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Scanner{
		records:       records,
		logger:        cfg.Logger,
		events:        cfg.Events,
		now:           cfg.Clock,
		ageThreshold:  cfg.AgeThreshold,
		checkInterval: cfg.CheckInterval,
	}, nil
}

// Start launches the periodic scan schedule. Idempotent.
func (s *Scanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	s.logger.Info("leak scanner started",
		zap.Duration("age_threshold", s.ageThreshold),
		zap.Duration("check_interval", s.checkInterval))
}

// Stop halts the schedule and waits for any in-flight scan to finish.
// Idempotent; no tick fires after Stop returns.
func (s *Scanner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	s.logger.Info("leak scanner stopped")
}

func (s *Scanner) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.ScanNow()
		}
	}
}

// ScanNow scans synchronously, independent of the schedule, and returns the
// current candidate set. A leak-candidates event is published only when the
// set is non-empty.
func (s *Scanner) ScanNow() []models.AllocationRecord {
	now := s.now()
	var candidates []models.AllocationRecord
	for _, rec := range s.records.LiveRecords() {
		if rec.Age(now) > s.ageThreshold {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	s.logger.Warn("leak candidates detected",
		zap.Int("count", len(candidates)),
		zap.Duration("age_threshold", s.ageThreshold))
	if s.events != nil {
		ev := models.NewEvent(models.EventLeakCandidates, now)
		ev.Leaks = candidates
		s.events.Publish(ev)
	}
	return candidates
}
