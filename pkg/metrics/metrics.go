// Package metrics exposes Prometheus instrumentation for ingestion and
// reporting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors used across the application. Register them
// once per process; tests pass their own registry.
type Metrics struct {
	RowsImported     prometheus.Counter
	RowsSkipped      prometheus.Counter
	RowsFailed       prometheus.Counter
	ImportDuration   prometheus.Histogram
	CatalogSyncs     prometheus.Counter
	ReportsGenerated prometheus.Counter
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aduana",
			Subsystem: "import",
			Name:      "rows_imported_total",
			Help:      "Declaration rows persisted successfully.",
		}),
		RowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aduana",
			Subsystem: "import",
			Name:      "rows_skipped_total",
			Help:      "Source rows skipped for missing identifying columns.",
		}),
		RowsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aduana",
			Subsystem: "import",
			Name:      "rows_failed_total",
			Help:      "Source rows that failed to parse or persist.",
		}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aduana",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Wall time of a full file import.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		CatalogSyncs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aduana",
			Subsystem: "catalog",
			Name:      "syncs_total",
			Help:      "Completed tariff catalog synchronizations.",
		}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aduana",
			Subsystem: "report",
			Name:      "generated_total",
			Help:      "Excel reports generated.",
		}),
	}
}
