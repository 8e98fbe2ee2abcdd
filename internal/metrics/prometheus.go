package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the document node
type Metrics struct {
	// Section operation metrics
	UploadsTotal        prometheus.Counter
	UploadFailuresTotal prometheus.Counter
	UploadDuration      prometheus.Histogram
	DeletesTotal        prometheus.Counter
	DeleteFailuresTotal prometheus.Counter
	DeleteDuration      prometheus.Histogram
	DownloadsTotal      prometheus.Counter
	UploadBytes         prometheus.Histogram

	// Action log metrics
	ActionAppendsTotal prometheus.Counter
	ActionCommitsTotal prometheus.Counter

	// Sweeper metrics
	SweepRunsTotal     prometheus.Counter
	SweepSkippedTotal  prometheus.Counter
	SweepDuration      prometheus.Histogram
	SweepBacklog       prometheus.Gauge
	CompensationsTotal *prometheus.CounterVec
	ActionsProcessedTotal prometheus.Counter
	ActionsPrunedTotal    prometheus.Counter

	// System metrics
	DiskUsageBytes     prometheus.Gauge
	DiskAvailableBytes prometheus.Gauge
	MemoryUsageBytes   prometheus.Gauge
	GoroutinesTotal    prometheus.Gauge
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics(nodeID string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, nodeID)
}

// NewMetricsWith creates all metrics on the given registerer. Tests use a
// fresh registry per instance to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer, nodeID string) *Metrics {
	labels := prometheus.Labels{"node_id": nodeID}
	factory := promauto.With(reg)

	return &Metrics{
		// Section operation metrics
		UploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "uploads_total",
			Help:        "Total number of section uploads attempted",
			ConstLabels: labels,
		}),
		UploadFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "upload_failures_total",
			Help:        "Total number of section uploads that failed",
			ConstLabels: labels,
		}),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "upload_duration_seconds",
			Help:        "Histogram of section upload durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		DeletesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "deletes_total",
			Help:        "Total number of section deletes attempted",
			ConstLabels: labels,
		}),
		DeleteFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "delete_failures_total",
			Help:        "Total number of section deletes that failed",
			ConstLabels: labels,
		}),
		DeleteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "delete_duration_seconds",
			Help:        "Histogram of section delete durations",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		DownloadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "downloads_total",
			Help:        "Total number of section downloads",
			ConstLabels: labels,
		}),
		UploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "docnode",
			Subsystem:   "sections",
			Name:        "upload_bytes",
			Help:        "Histogram of uploaded section sizes in bytes",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1024, 4, 8), // 1KB to 16MB
		}),

		// Action log metrics
		ActionAppendsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "actionlog",
			Name:        "appends_total",
			Help:        "Total number of action records appended",
			ConstLabels: labels,
		}),
		ActionCommitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "actionlog",
			Name:        "commits_total",
			Help:        "Total number of action records marked committed",
			ConstLabels: labels,
		}),

		// Sweeper metrics
		SweepRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sweeper",
			Name:        "runs_total",
			Help:        "Total number of sweep runs completed",
			ConstLabels: labels,
		}),
		SweepSkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sweeper",
			Name:        "skipped_total",
			Help:        "Total number of sweep ticks skipped because a sweep was in flight",
			ConstLabels: labels,
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "docnode",
			Subsystem:   "sweeper",
			Name:        "duration_seconds",
			Help:        "Histogram of sweep durations",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		SweepBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "docnode",
			Subsystem:   "sweeper",
			Name:        "backlog",
			Help:        "Unprocessed action records after the latest sweep",
			ConstLabels: labels,
		}),
		CompensationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sweeper",
			Name:        "compensations_total",
			Help:        "Compensating file-store operations by action type and outcome",
			ConstLabels: labels,
		}, []string{"action_type", "outcome"}),
		ActionsProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sweeper",
			Name:        "actions_processed_total",
			Help:        "Total number of action records marked processed",
			ConstLabels: labels,
		}),
		ActionsPrunedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "docnode",
			Subsystem:   "sweeper",
			Name:        "actions_pruned_total",
			Help:        "Total number of processed action records pruned by retention",
			ConstLabels: labels,
		}),

		// System metrics
		DiskUsageBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "docnode",
			Subsystem:   "system",
			Name:        "disk_usage_bytes",
			Help:        "Disk space used on the storage volume",
			ConstLabels: labels,
		}),
		DiskAvailableBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "docnode",
			Subsystem:   "system",
			Name:        "disk_available_bytes",
			Help:        "Disk space available on the storage volume",
			ConstLabels: labels,
		}),
		MemoryUsageBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "docnode",
			Subsystem:   "system",
			Name:        "memory_usage_bytes",
			Help:        "Current heap allocation",
			ConstLabels: labels,
		}),
		GoroutinesTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "docnode",
			Subsystem:   "system",
			Name:        "goroutines_total",
			Help:        "Current number of goroutines",
			ConstLabels: labels,
		}),
	}
}

// UpdateSystemStats refreshes the system-level gauges.
func (m *Metrics) UpdateSystemStats(diskUsed, diskAvailable, heapBytes int64, goroutines int) {
	m.DiskUsageBytes.Set(float64(diskUsed))
	m.DiskAvailableBytes.Set(float64(diskAvailable))
	m.MemoryUsageBytes.Set(float64(heapBytes))
	m.GoroutinesTotal.Set(float64(goroutines))
}
