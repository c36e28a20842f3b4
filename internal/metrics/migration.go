package metrics

import "github.com/prometheus/client_golang/prometheus"

// Migration and index service metrics.
var (
	DocumentsProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents the target index reported as processed",
		},
	)

	DocumentsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_failed_total",
			Help:      "Documents that could not be migrated",
		},
		[]string{"reason"}, // "enrich" / "upload" / "page"
	)

	PagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Exported pages by paging mode",
		},
		[]string{"mode"}, // "cursor" / "bounded"
	)

	PageDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time to enrich and upload one page",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	IndexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_requests_total",
			Help:      "Requests to the index service",
		},
		[]string{"backend", "op", "status"},
	)

	IndexRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_request_duration_seconds",
			Help:      "Index service request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "op"},
	)

	TriggerRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_records_total",
			Help:      "Embedding trigger records by outcome",
		},
		[]string{"kind", "outcome"},
	)
)

var migrationMetricsRegistered bool

// RegisterMigrationMetrics registers migration, index and trigger metrics. Must be called once from main.
func RegisterMigrationMetrics() {
	if migrationMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocumentsProcessedTotal)
	prometheus.MustRegister(DocumentsFailedTotal)
	prometheus.MustRegister(PagesTotal)
	prometheus.MustRegister(PageDuration)
	prometheus.MustRegister(IndexRequestsTotal)
	prometheus.MustRegister(IndexRequestDuration)
	prometheus.MustRegister(TriggerRecordsTotal)
	migrationMetricsRegistered = true
}
