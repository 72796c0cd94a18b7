// Package app wires the profiling engine together: allocation registry,
// leak scanner, snapshot sampler and store, trend analyzer, suggestion
// engine and report exporter, all driven by their own schedules. An Engine
// is constructed explicitly and passed around; there is no process-wide
// instance.
package app

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memtrace/memtrace/config"
	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/core/ports"
	"github.com/memtrace/memtrace/internal/event"
	"github.com/memtrace/memtrace/internal/leak"
	"github.com/memtrace/memtrace/internal/metrics"
	"github.com/memtrace/memtrace/internal/probe"
	"github.com/memtrace/memtrace/internal/registry"
	"github.com/memtrace/memtrace/internal/report"
	"github.com/memtrace/memtrace/internal/snapshot"
	"github.com/memtrace/memtrace/internal/suggest"
	"github.com/memtrace/memtrace/internal/trend"
)

type Engine struct {
	cfg    config.Config
	logger *zap.Logger
	now    func() time.Time

	bus       *event.Bus
	registry  *registry.Registry
	store     *snapshot.Store
	sampler   *snapshot.Sampler
	scanner   *leak.Scanner
	analyzer  *trend.Analyzer
	suggester *suggest.Engine
	exporter  *report.Exporter

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

type Option func(*options)

type options struct {
	logger *zap.Logger
	probe  ports.MemoryProbe
	clock  func() time.Time
}

// WithLogger sets the engine's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProbe substitutes the memory-usage probe. Defaults to the Go runtime
// probe.
func WithProbe(p ports.MemoryProbe) Option {
	return func(o *options) { o.probe = p }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger: zap.NewNop(),
		probe:  probe.NewRuntime(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	bus := event.NewBus()
	reg := registry.New(
		registry.WithEventSink(bus),
		registry.WithClock(o.clock),
	)
	store := snapshot.NewStore(cfg.Snapshot.MaxSnapshots)

	sampler, err := snapshot.NewSampler(store, o.probe, snapshot.SamplerConfig{
		Interval: cfg.Snapshot.Interval,
		Logger:   o.logger.Named("sampler"),
		Stats:    reg,
		Clock:    o.clock,
	})
	if err != nil {
		return nil, err
	}

	scanner, err := leak.NewScanner(reg, leak.ScannerConfig{
		AgeThreshold:  cfg.Leak.AgeThreshold,
		CheckInterval: cfg.Leak.CheckInterval,
		Logger:        o.logger.Named("leak"),
		Events:        bus,
		Clock:         o.clock,
	})
	if err != nil {
		return nil, err
	}

	analyzer := trend.NewAnalyzer(store, trend.WithClock(o.clock))

	suggester, err := suggest.NewEngine(suggest.Config{
		GrowthRateThreshold:      cfg.Suggest.GrowthRateThreshold,
		CategoryShareThreshold:   cfg.Suggest.CategoryShareThreshold,
		FragmentationThreshold:   cfg.Suggest.FragmentationThreshold,
		AllocationCountThreshold: cfg.Suggest.AllocationCountThreshold,
	})
	if err != nil {
		return nil, err
	}

	exporter, err := report.NewExporter(reg, store, analyzer, suggester, report.ExporterConfig{
		Window:       cfg.Analysis.Window,
		HistoryLimit: cfg.Report.HistoryLimit,
		Clock:        o.clock,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		logger:    o.logger,
		now:       o.clock,
		bus:       bus,
		registry:  reg,
		store:     store,
		sampler:   sampler,
		scanner:   scanner,
		analyzer:  analyzer,
		suggester: suggester,
		exporter:  exporter,
	}, nil
}

// Start launches the sampler, the leak scanner and the analysis loop.
// Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		return
	}
	e.sampler.Start()
	e.scanner.Start()
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.analysisLoop(e.stop, e.done)
	e.logger.Info("engine started")
}

// Stop halts all schedules and drains in-flight work before returning, so
// shared stores are safe to release afterwards. Idempotent; the event bus
// stays open until Close.
func (e *Engine) Stop() {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	e.scanner.Stop()
	e.sampler.Stop()
	e.logger.Info("engine stopped")
}

// Close stops the engine and tears down the event bus.
func (e *Engine) Close() {
	e.Stop()
	e.bus.Close()
}

func (e *Engine) analysisLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.cfg.Analysis.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.analyzeOnce()
		}
	}
}

func (e *Engine) analyzeOnce() {
	latest, ok := e.store.Latest()
	if !ok {
		return
	}
	tr := e.analyzer.Analyze(e.cfg.Analysis.Window)
	suggestions := e.suggester.Generate(latest, tr)
	if len(suggestions) == 0 {
		return
	}
	e.logger.Info("optimization suggestions generated",
		zap.Int("count", len(suggestions)),
		zap.Float64("growth_rate", tr.GrowthRate))
	ev := models.NewEvent(models.EventSuggestions, e.now())
	ev.Suggestions = suggestions
	e.bus.Publish(ev)
}

// RecordAllocation tracks a live allocation. Safe from any goroutine; never
// fails.
func (e *Engine) RecordAllocation(addr uintptr, size uint64, source *models.SourceLocation) {
	e.registry.RecordAllocation(addr, size, source)
}

// RecordDeallocation releases a tracked allocation. Safe from any
// goroutine; never fails.
func (e *Engine) RecordDeallocation(addr uintptr) {
	e.registry.RecordDeallocation(addr)
}

// Stats returns a consistent copy of the aggregate counters.
func (e *Engine) Stats() models.MemoryStats {
	return e.registry.Stats()
}

// AnomalyCounts returns the running anomaly tallies.
func (e *Engine) AnomalyCounts() models.AnomalyCounts {
	return e.registry.AnomalyCounts()
}

// ScanNow runs one synchronous leak scan.
func (e *Engine) ScanNow() []models.AllocationRecord {
	return e.scanner.ScanNow()
}

// TakeSnapshotNow records one synchronous memory snapshot.
func (e *Engine) TakeSnapshotNow() models.MemorySnapshot {
	return e.sampler.TakeSnapshotNow()
}

// Analyze computes a trend over the given window.
func (e *Engine) Analyze(window time.Duration) models.MemoryTrend {
	return e.analyzer.Analyze(window)
}

// Export renders the engine's aggregate state.
func (e *Engine) Export(format report.Format) ([]byte, error) {
	return e.exporter.Export(format)
}

// Subscribe registers a diagnostic event subscriber.
func (e *Engine) Subscribe(buffer int) (<-chan models.Event, func()) {
	return e.bus.Subscribe(buffer)
}

// Collector returns a prometheus collector over the engine's state.
func (e *Engine) Collector() *metrics.Collector {
	return metrics.NewCollector(e.registry, e.store)
}

// Reset clears the registry and snapshot history. Test isolation only.
func (e *Engine) Reset() {
	e.registry.Reset()
	e.store.Clear()
}

var _ fmt.Stringer = (*Engine)(nil)

func (e *Engine) String() string {
	stats := e.registry.Stats()
	return fmt.Sprintf("Engine{live=%d, bytes=%d, snapshots=%d}",
		stats.CurrentAllocations, stats.CurrentBytesAllocated, e.store.Len())
}
