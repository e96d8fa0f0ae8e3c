package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics contains Prometheus metrics for catalog storage and lookups
type CatalogMetrics struct {
	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	cacheOperationsTotal   *prometheus.CounterVec
	tableRowsGauge         *prometheus.GaugeVec

	collectors []prometheus.Collector
}

// NewCatalogMetrics creates and registers new catalog metrics
func NewCatalogMetrics(registry *prometheus.Registry) (*CatalogMetrics, error) {
	m := &CatalogMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CatalogMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_db_operations_total",
			Help: "Total number of catalog database operations",
		},
		[]string{"operation", "table", "status"},
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_db_operation_duration_seconds",
			Help:    "Time taken for catalog database operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"operation", "table"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_db_operation_errors_total",
			Help: "Total number of catalog database operation errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	m.cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_operations_total",
			Help: "Lookup cache hits and misses",
		},
		[]string{"cache", "result"},
	)

	m.tableRowsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_table_rows",
			Help: "Number of rows per catalog table after the last ingestion",
		},
		[]string{"table"},
	)

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.cacheOperationsTotal,
		m.tableRowsGauge,
	}
}

// Describe implements the Collector interface
func (m *CatalogMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *CatalogMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordDbOperation records a database operation and its duration. A nil receiver is a no-op.
func (m *CatalogMetrics) RecordDbOperation(operation, table, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dbOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.dbOperationDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordDbOperationError records a database operation error
func (m *CatalogMetrics) RecordDbOperationError(operation, table, errorType string) {
	if m == nil {
		return
	}
	m.dbOperationErrorsTotal.WithLabelValues(operation, table, errorType).Inc()
}

// RecordCache records a lookup cache hit or miss
func (m *CatalogMetrics) RecordCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheOperationsTotal.WithLabelValues(cache, result).Inc()
}

// SetTableRows updates the row count gauge of a table
func (m *CatalogMetrics) SetTableRows(table string, rows int64) {
	if m == nil {
		return
	}
	m.tableRowsGauge.WithLabelValues(table).Set(float64(rows))
}
