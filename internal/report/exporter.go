// Package report serializes the engine's aggregate state into a structured
// or human-readable artifact. Export is read-only composition over the
// other components; where the bytes go is the host application's choice.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/memtrace/memtrace/internal/core/models"
	"github.com/memtrace/memtrace/internal/snapshot"
	"github.com/memtrace/memtrace/internal/suggest"
	"github.com/memtrace/memtrace/internal/trend"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

const DefaultHistoryLimit = 100

// StatsProvider is the registry-facing slice the exporter needs.
type StatsProvider interface {
	Stats() models.MemoryStats
	AnomalyCounts() models.AnomalyCounts
}

type Exporter struct {
	stats     StatsProvider
	store     *snapshot.Store
	analyzer  *trend.Analyzer
	suggester *suggest.Engine

	window       time.Duration
	historyLimit int
	now          func() time.Time
}

type ExporterConfig struct {
	// Window is the trend window baked into every report.
	Window time.Duration
	// HistoryLimit caps how many snapshots a report embeds.
	HistoryLimit int
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

func NewExporter(stats StatsProvider, store *snapshot.Store, analyzer *trend.Analyzer, suggester *suggest.Engine, cfg ExporterConfig) (*Exporter, error) {
	if stats == nil || store == nil || analyzer == nil || suggester == nil {
		return nil, fmt.Errorf("report: all dependencies are required")
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("report: window must be positive, got %s", cfg.Window)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("report: history limit must be positive, got %d", cfg.HistoryLimit)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Exporter{
		stats:        stats,
		store:        store,
		analyzer:     analyzer,
		suggester:    suggester,
		window:       cfg.Window,
		historyLimit: cfg.HistoryLimit,
		now:          cfg.Clock,
	}, nil
}

// document is the structured report shape.
type document struct {
	GeneratedAt time.Time                       `json:"generated_at"`
	Stats       models.MemoryStats              `json:"stats"`
	Anomalies   models.AnomalyCounts            `json:"anomalies"`
	Snapshots   []models.MemorySnapshot         `json:"snapshots"`
	Trend       models.MemoryTrend              `json:"trend"`
	Suggestions []models.OptimizationSuggestion `json:"suggestions"`
}

func (e *Exporter) compose() document {
	doc := document{
		GeneratedAt: e.now(),
		Stats:       e.stats.Stats(),
		Anomalies:   e.stats.AnomalyCounts(),
		Snapshots:   e.store.History(e.historyLimit),
		Trend:       e.analyzer.Analyze(e.window),
	}
	if latest, ok := e.store.Latest(); ok {
		doc.Suggestions = e.suggester.Generate(latest, doc.Trend)
	}
	if doc.Snapshots == nil {
		doc.Snapshots = []models.MemorySnapshot{}
	}
	if doc.Suggestions == nil {
		doc.Suggestions = []models.OptimizationSuggestion{}
	}
	return doc
}

// Export renders the current aggregate state in the requested format. The
// only error cases are an unknown format or a marshalling failure; an
// engine with no data yet exports an empty, valid report.
func (e *Exporter) Export(format Format) ([]byte, error) {
	doc := e.compose()
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatText:
		return []byte(renderText(doc)), nil
	default:
		return nil, fmt.Errorf("report: unknown format %q", format)
	}
}

// Field extracts one value from a JSON report without decoding the whole
// document, e.g. Field(doc, "stats.peak_bytes_allocated").
func Field(doc []byte, path string) gjson.Result {
	return gjson.GetBytes(doc, path)
}

func renderText(doc document) string {
	var b strings.Builder

	b.WriteString("# Report\r\n")
	writeSection(&b, map[string]string{
		"generated_at": doc.GeneratedAt.Format(time.RFC3339),
	})

	b.WriteString("# Stats\r\n")
	writeSection(&b, map[string]string{
		"total_allocations":       fmt.Sprintf("%d", doc.Stats.TotalAllocations),
		"total_deallocations":     fmt.Sprintf("%d", doc.Stats.TotalDeallocations),
		"current_allocations":     fmt.Sprintf("%d", doc.Stats.CurrentAllocations),
		"total_bytes_allocated":   fmt.Sprintf("%d", doc.Stats.TotalBytesAllocated),
		"current_bytes_allocated": fmt.Sprintf("%d", doc.Stats.CurrentBytesAllocated),
		"peak_bytes_allocated":    fmt.Sprintf("%d", doc.Stats.PeakBytesAllocated),
		"anomaly_double_register": fmt.Sprintf("%d", doc.Anomalies.DoubleRegister),
		"anomaly_unknown_free":    fmt.Sprintf("%d", doc.Anomalies.UnknownFree),
	})

	b.WriteString("# Trend\r\n")
	writeSection(&b, map[string]string{
		"samples":           fmt.Sprintf("%d", doc.Trend.Samples),
		"average_usage":     fmt.Sprintf("%.0f", doc.Trend.AverageUsage),
		"peak_usage":        fmt.Sprintf("%d", doc.Trend.PeakUsage),
		"minimum_usage":     fmt.Sprintf("%d", doc.Trend.MinimumUsage),
		"growth_rate":       fmt.Sprintf("%.4f", doc.Trend.GrowthRate),
		"allocation_rate":   fmt.Sprintf("%.2f", doc.Trend.AllocationRate),
		"deallocation_rate": fmt.Sprintf("%.2f", doc.Trend.DeallocationRate),
	})

	b.WriteString("# Snapshots\r\n")
	writeSection(&b, map[string]string{
		"count": fmt.Sprintf("%d", len(doc.Snapshots)),
	})
	for _, snap := range doc.Snapshots {
		if !snap.Valid {
			fmt.Fprintf(&b, "%s no data\r\n", snap.Timestamp.Format(time.RFC3339))
			continue
		}
		fmt.Fprintf(&b, "%s total=%d heap=%d allocs=%d frag=%.2f\r\n",
			snap.Timestamp.Format(time.RFC3339), snap.TotalMemory,
			snap.HeapMemory, snap.ActiveAllocationCount, snap.FragmentationRatio)
	}

	b.WriteString("# Suggestions\r\n")
	if len(doc.Suggestions) == 0 {
		b.WriteString("none\r\n")
	}
	for _, s := range doc.Suggestions {
		fmt.Fprintf(&b, "[P%d] %s: %s (est. savings %d bytes)\r\n  action: %s\r\n",
			s.Priority, s.Category, s.Description, s.EstimatedSavingsBytes, s.RecommendedAction)
	}
	return b.String()
}

// writeSection renders key:value lines in sorted key order.
func writeSection(b *strings.Builder, kv map[string]string) {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(kv[k])
		b.WriteString("\r\n")
	}
}
