package archive

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes the pebble internals of an archive store. Register
// it per store; descriptors are constant so duplicate registration of
// two stores needs two registries.
type Collector struct {
	store *Store

	compactionCount *prometheus.Desc
	compactionDebt  *prometheus.Desc
	memtableSize    *prometheus.Desc
	memtableCount   *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesWritten *prometheus.Desc
	diskUsage       *prometheus.Desc
}

func NewCollector(store *Store) *Collector {
	return &Collector{
		store: store,

		compactionCount: prometheus.NewDesc(
			"decksync_archive_compaction_count_total",
			"Total number of compactions performed by the archive store",
			nil, nil,
		),
		compactionDebt: prometheus.NewDesc(
			"decksync_archive_compaction_estimated_debt_bytes",
			"Estimated number of bytes to compact to reach a stable state",
			nil, nil,
		),
		memtableSize: prometheus.NewDesc(
			"decksync_archive_memtable_size_bytes",
			"Current size of the archive memtables",
			nil, nil,
		),
		memtableCount: prometheus.NewDesc(
			"decksync_archive_memtable_count",
			"Number of active archive memtables",
			nil, nil,
		),
		walSize: prometheus.NewDesc(
			"decksync_archive_wal_size_bytes",
			"Current size of the archive write-ahead log",
			nil, nil,
		),
		walBytesWritten: prometheus.NewDesc(
			"decksync_archive_wal_bytes_written_total",
			"Total number of bytes written to the archive write-ahead log",
			nil, nil,
		),
		diskUsage: prometheus.NewDesc(
			"decksync_archive_disk_usage_bytes",
			"Total disk space used by the archive store",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.compactionCount
	ch <- c.compactionDebt
	ch <- c.memtableSize
	ch <- c.memtableCount
	ch <- c.walSize
	ch <- c.walBytesWritten
	ch <- c.diskUsage
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	metrics := c.store.db.Metrics()

	ch <- prometheus.MustNewConstMetric(
		c.compactionCount,
		prometheus.CounterValue,
		float64(metrics.Compact.Count),
	)
	ch <- prometheus.MustNewConstMetric(
		c.compactionDebt,
		prometheus.GaugeValue,
		float64(metrics.Compact.EstimatedDebt),
	)
	ch <- prometheus.MustNewConstMetric(
		c.memtableSize,
		prometheus.GaugeValue,
		float64(metrics.MemTable.Size),
	)
	ch <- prometheus.MustNewConstMetric(
		c.memtableCount,
		prometheus.GaugeValue,
		float64(metrics.MemTable.Count),
	)
	ch <- prometheus.MustNewConstMetric(
		c.walSize,
		prometheus.GaugeValue,
		float64(metrics.WAL.Size),
	)
	ch <- prometheus.MustNewConstMetric(
		c.walBytesWritten,
		prometheus.CounterValue,
		float64(metrics.WAL.BytesWritten),
	)
	ch <- prometheus.MustNewConstMetric(
		c.diskUsage,
		prometheus.GaugeValue,
		float64(metrics.DiskSpaceUsage()),
	)
}
