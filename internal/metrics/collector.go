// Package metrics exposes the engine's state to Prometheus. The collector
// reads the registry and snapshot store at scrape time, so no extra
// bookkeeping runs between scrapes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/memtrace/memtrace/internal/report"
	"github.com/memtrace/memtrace/internal/snapshot"
)

const namespace = "memtrace"

type Collector struct {
	stats statsProvider
	store *snapshot.Store

	totalAllocations   *prometheus.Desc
	totalDeallocations *prometheus.Desc
	currentAllocations *prometheus.Desc
	currentBytes       *prometheus.Desc
	peakBytes          *prometheus.Desc
	totalBytes         *prometheus.Desc
	anomalies          *prometheus.Desc
	snapshotDepth      *prometheus.Desc
	fragmentation      *prometheus.Desc
}

type statsProvider = report.StatsProvider

func NewCollector(stats statsProvider, store *snapshot.Store) *Collector {
	return &Collector{
		stats: stats,
		store: store,
		totalAllocations: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "allocations_total"),
			"Lifetime tracked allocations.", nil, nil),
		totalDeallocations: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "deallocations_total"),
			"Lifetime tracked deallocations.", nil, nil),
		currentAllocations: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_allocations"),
			"Currently live tracked allocations.", nil, nil),
		currentBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_bytes"),
			"Bytes held by live tracked allocations.", nil, nil),
		peakBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "peak_bytes"),
			"High-water mark of live tracked bytes.", nil, nil),
		totalBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "allocated_bytes_total"),
			"Lifetime tracked bytes allocated.", nil, nil),
		anomalies: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "anomalies_total"),
			"Bookkeeping anomalies by kind.", []string{"kind"}, nil),
		snapshotDepth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snapshots"),
			"Snapshots currently held in the history ring.", nil, nil),
		fragmentation: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "fragmentation_ratio"),
			"Fragmentation ratio of the latest valid snapshot.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalAllocations
	ch <- c.totalDeallocations
	ch <- c.currentAllocations
	ch <- c.currentBytes
	ch <- c.peakBytes
	ch <- c.totalBytes
	ch <- c.anomalies
	ch <- c.snapshotDepth
	ch <- c.fragmentation
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.stats.Stats()
	ch <- prometheus.MustNewConstMetric(c.totalAllocations, prometheus.CounterValue, float64(stats.TotalAllocations))
	ch <- prometheus.MustNewConstMetric(c.totalDeallocations, prometheus.CounterValue, float64(stats.TotalDeallocations))
	ch <- prometheus.MustNewConstMetric(c.currentAllocations, prometheus.GaugeValue, float64(stats.CurrentAllocations))
	ch <- prometheus.MustNewConstMetric(c.currentBytes, prometheus.GaugeValue, float64(stats.CurrentBytesAllocated))
	ch <- prometheus.MustNewConstMetric(c.peakBytes, prometheus.GaugeValue, float64(stats.PeakBytesAllocated))
	ch <- prometheus.MustNewConstMetric(c.totalBytes, prometheus.CounterValue, float64(stats.TotalBytesAllocated))

	anomalies := c.stats.AnomalyCounts()
	ch <- prometheus.MustNewConstMetric(c.anomalies, prometheus.CounterValue, float64(anomalies.DoubleRegister), "double_register")
	ch <- prometheus.MustNewConstMetric(c.anomalies, prometheus.CounterValue, float64(anomalies.UnknownFree), "unknown_free")

	ch <- prometheus.MustNewConstMetric(c.snapshotDepth, prometheus.GaugeValue, float64(c.store.Len()))
	if latest, ok := c.store.Latest(); ok && latest.Valid {
		ch <- prometheus.MustNewConstMetric(c.fragmentation, prometheus.GaugeValue, latest.FragmentationRatio)
	}
}
