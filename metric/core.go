package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the bridge's core metrics
type Metrics struct {
	// Schema metrics
	SchemasDerived  *prometheus.CounterVec
	DeriveFailures  *prometheus.CounterVec

	// Materialization metrics
	RowsMaterialized    *prometheus.CounterVec
	PartitionsProcessed *prometheus.CounterVec
	MaterializeDuration *prometheus.HistogramVec

	// Catalog metrics
	TablesRegistered prometheus.Gauge

	// Storage metrics
	StoreOperations *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SchemasDerived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark",
				Subsystem: "schema",
				Name:      "derived_total",
				Help:      "Total number of schemas derived, by record type",
			},
			[]string{"type"},
		),

		DeriveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark",
				Subsystem: "schema",
				Name:      "derive_failures_total",
				Help:      "Total number of failed schema derivations",
			},
			[]string{"type", "reason"},
		),

		RowsMaterialized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark",
				Subsystem: "row",
				Name:      "materialized_total",
				Help:      "Total number of rows materialized, by record type",
			},
			[]string{"type"},
		),

		PartitionsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark",
				Subsystem: "row",
				Name:      "partitions_total",
				Help:      "Total number of partitions processed, by outcome",
			},
			[]string{"type", "status"},
		),

		MaterializeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "spark",
				Subsystem: "row",
				Name:      "materialize_duration_seconds",
				Help:      "Per-partition materialization duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),

		TablesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "spark",
				Subsystem: "catalog",
				Name:      "tables",
				Help:      "Number of tables currently registered in the catalog",
			},
		),

		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark",
				Subsystem: "storage",
				Name:      "operations_total",
				Help:      "Total store operations, by operation and outcome",
			},
			[]string{"operation", "status"},
		),
	}
}

// ObserveMaterialize records one partition's materialization duration
func (m *Metrics) ObserveMaterialize(typeName string, d time.Duration) {
	m.MaterializeDuration.WithLabelValues(typeName).Observe(d.Seconds())
}

// collectors returns every core collector for bulk registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SchemasDerived,
		m.DeriveFailures,
		m.RowsMaterialized,
		m.PartitionsProcessed,
		m.MaterializeDuration,
		m.TablesRegistered,
		m.StoreOperations,
	}
}
