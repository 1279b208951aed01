// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// A .env file in the working directory is read first; real environment
// variables take precedence over it.
//
//   - PORT: HTTP server port (default: 8080)
//   - DATABASE_DIR: Directory holding media.db (default: /database)
//   - STORAGE_DIR: Local store for original bytes when S3 is not configured (default: /storage)
//   - S3_ENDPOINT, S3_BUCKET, S3_ACCESS_KEY, S3_SECRET_KEY, S3_USE_SSL: MinIO/S3 object storage
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: Redis upload status store (in-memory when unset)
//   - STATUS_TTL: Lifetime of an upload status entry (default: 24h)
//   - CLASSIFIER_URL, CLASSIFIER_TIMEOUT: Optional genre classifier (default timeout: 10s)
//   - FETCH_TIMEOUT: Timeout for http(s) source fetches (default: 30s)
//   - MAX_UPLOAD_MB: Multipart upload limit (default: 50)
//   - INGEST_WORKERS: Concurrent ingestions admitted (default: CPU count)
//   - BACKFILL_PAGE_SIZE: Records per keyset page (default: 100)
//   - BACKFILL_INTERVAL: Periodic backfill interval, 0 disables (default: 0)
//   - VIPS_ENABLED: Use libvips for oversize decodes (default: true)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
package startup
