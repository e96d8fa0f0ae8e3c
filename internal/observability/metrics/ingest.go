package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for ingestion runs
type IngestMetrics struct {
	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	cameraFolders     *prometheus.CounterVec
	filesTotal        *prometheus.CounterVec
	positionRowsTotal *prometheus.CounterVec
	warningsTotal     *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewIngestMetrics creates and registers new ingestion metrics
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IngestMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"status"},
	)

	m.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Wall time of an ingestion run",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12), // 100ms to ~3.5min
		},
	)

	m.cameraFolders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_camera_folders_total",
			Help: "Camera folders processed, by camera",
		},
		[]string{"camera"},
	)

	m.filesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_files_total",
			Help: "Image files registered, by kind (raw, jpg)",
		},
		[]string{"kind"},
	)

	m.positionRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_position_rows_total",
			Help: "Position file rows, by result (applied, unmatched)",
		},
		[]string{"result"},
	)

	m.warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_warnings_total",
			Help: "Non-fatal ingestion conditions, by kind",
		},
		[]string{"kind"},
	)

	m.collectors = []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.cameraFolders,
		m.filesTotal,
		m.positionRowsTotal,
		m.warningsTotal,
	}
}

// Describe implements the Collector interface
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordRun records a finished ingestion run
func (m *IngestMetrics) RecordRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// RecordCameraFolder counts a processed camera folder
func (m *IngestMetrics) RecordCameraFolder(camera string) {
	if m == nil {
		return
	}
	m.cameraFolders.WithLabelValues(camera).Inc()
}

// RecordFiles adds n registered files of the given kind
func (m *IngestMetrics) RecordFiles(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.filesTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordPositionRows adds applied, unmatched and unaligned position rows
func (m *IngestMetrics) RecordPositionRows(applied, unmatched, unaligned int) {
	if m == nil {
		return
	}
	m.positionRowsTotal.WithLabelValues("applied").Add(float64(applied))
	m.positionRowsTotal.WithLabelValues("unmatched").Add(float64(unmatched))
	m.positionRowsTotal.WithLabelValues("unaligned").Add(float64(unaligned))
}

// RecordWarning counts a non-fatal ingestion condition
func (m *IngestMetrics) RecordWarning(kind string) {
	if m == nil {
		return
	}
	m.warningsTotal.WithLabelValues(kind).Inc()
}
