package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_ingest_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_ingest_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Ingestion metrics
var (
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_ingestions_total",
			Help: "Total number of ingestions by operation (create/replace) and outcome",
		},
		[]string{"operation", "status"},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_ingest_ingestion_duration_seconds",
			Help:    "End-to-end ingestion duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	IngestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_ingestions_in_flight",
			Help: "Number of ingestions currently decoding or deriving",
		},
	)

	IngestBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_ingest_ingested_bytes_total",
			Help: "Total raw image bytes accepted for ingestion",
		},
	)

	DecodeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_decode_total",
			Help: "Image decodes by format and decoder (imaging/vips)",
		},
		[]string{"format", "decoder"},
	)
)

// Derivation metrics
var (
	DerivationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_derivations_total",
			Help: "Derivation stage results by stage and outcome (ok/empty/error)",
		},
		[]string{"stage", "status"},
	)

	DerivationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_ingest_derivation_duration_seconds",
			Help:    "Derivation stage duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"},
	)

	ClassifierRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_classifier_requests_total",
			Help: "Genre classifier requests by outcome",
		},
		[]string{"status"},
	)
)

// Backfill metrics
var (
	BackfillRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_ingest_backfill_runs_total",
			Help: "Total number of backfill runs",
		},
	)

	BackfillIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_backfill_running",
			Help: "Whether a backfill run is in progress (1 = running, 0 = idle)",
		},
	)

	BackfillLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_backfill_last_run_timestamp",
			Help: "Timestamp of the last completed backfill run",
		},
	)

	BackfillLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_backfill_last_run_duration_seconds",
			Help: "Duration of the last backfill run in seconds",
		},
	)

	BackfillRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_backfill_records_total",
			Help: "Backfill records by result (updated/skipped/failed)",
		},
		[]string{"result"},
	)
)

// Storage metrics
var (
	SourceOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_source_operations_total",
			Help: "Source store operations by scheme, operation (put/fetch/delete) and status",
		},
		[]string{"scheme", "operation", "status"},
	)

	SourceOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_ingest_source_operation_duration_seconds",
			Help:    "Source store operation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"scheme", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after stale NFS handles",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	StatusStoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_ingest_status_store_operations_total",
			Help: "Upload status store operations by backend, operation and outcome",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the soft memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_ingest_memory_paused",
			Help: "Whether new decodes are held back for memory (1 = paused, 0 = running)",
		},
	)
)

// Library metrics
var (
	AssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_ingest_assets",
			Help: "Number of stored assets by processing status",
		},
		[]string{"status"},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_ingest_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
