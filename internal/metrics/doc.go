// Package metrics provides Prometheus instrumentation for the ingestion
// service. All metrics are prefixed with "media_ingest_".
//
// # Metric Categories
//
//   - HTTP: request counts, durations and in-flight requests
//   - Database: query counts and durations by operation, open connections
//   - Ingestion: outcomes by operation (create/replace), end-to-end duration,
//     decodes by format and decoder
//   - Derivation: per-stage outcome (ok/empty/error) and duration for the
//     fingerprint, perceptual hash, placeholder, histogram and EXIF stages
//   - Backfill: runs, running flag, last run time and duration, records by
//     result (updated/skipped/failed)
//   - Storage: source store put/fetch/delete by scheme, NFS retries,
//     status store operations
//   - Library: assets by status, refreshed by [Collector]
//
// Metrics are registered with the default registry via promauto. Mount
// promhttp.Handler() to expose them:
//
//	r.Handle("/metrics", promhttp.Handler())
//
// Example queries:
//
// Derivation degradation rate by stage:
//
//	sum(rate(media_ingest_derivations_total{status="error"}[15m])) by (stage)
//
// Backfill progress:
//
//	increase(media_ingest_backfill_records_total[1h])
package metrics
