package metrics

// Label values pre-populated by InitializeMetrics.
var (
	IngestOperations   = []string{"create", "replace"}
	IngestStatuses     = []string{"completed", "invalid", "failed"}
	DerivationStages   = []string{"fingerprint", "perceptual_hash", "placeholder", "histogram", "exif"}
	DerivationStatuses = []string{"ok", "empty", "error"}
	BackfillResults    = []string{"updated", "skipped", "failed"}
	SourceSchemes      = []string{"file", "s3", "http"}
	SourceOperations   = []string{"put", "fetch", "delete"}
	AssetStatuses      = []string{"processing", "completed", "failed"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics() {
	for _, op := range IngestOperations {
		IngestDuration.WithLabelValues(op)
		for _, status := range IngestStatuses {
			IngestTotal.WithLabelValues(op, status)
		}
	}

	for _, stage := range DerivationStages {
		DerivationDuration.WithLabelValues(stage)
		for _, status := range DerivationStatuses {
			DerivationTotal.WithLabelValues(stage, status)
		}
	}

	for _, result := range BackfillResults {
		BackfillRecordsTotal.WithLabelValues(result)
	}

	for _, scheme := range SourceSchemes {
		for _, op := range SourceOperations {
			SourceOperationDuration.WithLabelValues(scheme, op)
			for _, status := range []string{"ok", "not_found", "error"} {
				SourceOperationsTotal.WithLabelValues(scheme, op, status)
			}
		}
	}

	for _, op := range []string{"open", "write", "remove"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}

	for _, status := range AssetStatuses {
		AssetsTotal.WithLabelValues(status)
	}

	for _, backend := range []string{"memory", "redis"} {
		for _, op := range []string{"set", "get"} {
			for _, status := range []string{"success", "error"} {
				StatusStoreOperationsTotal.WithLabelValues(backend, op, status)
			}
		}
	}

	for _, status := range []string{"ok", "low_confidence", "error"} {
		ClassifierRequestsTotal.WithLabelValues(status)
	}
}
