// Package main is the entry point for the media ingest service.
//
// The service accepts image uploads, derives metadata from the bytes
// (content and perceptual hashes, a placeholder, a histogram and EXIF
// capture settings), fuses it with caller-supplied fields and stores one
// asset record per image in SQLite. Original bytes live in a local
// directory or an S3 compatible bucket.
//
// # Application Lifecycle
//
//  1. Configuration: .env file, environment variables and directory checks
//  2. Memory: GOMEMLIMIT from the environment or cgroup, plus a monitor that
//     holds back decodes under pressure
//  3. Metrics and libvips initialization
//  4. Database: opens SQLite and runs migrations
//  5. Components:
//     - Source store: local files or S3, with http(s) fetchers for remote
//       originals
//     - Status store: in memory or Redis
//     - Ingest pipeline with an optional external classifier
//     - Backfill reprocessor, periodic when BACKFILL_INTERVAL is set
//     - Metrics collector
//  6. HTTP server with correlation ids, request logging and metrics
//  7. Graceful shutdown on SIGINT/SIGTERM
//
// # HTTP API
//
//	GET    /api/assets                  list assets (after, limit, contentHash)
//	POST   /api/assets                  upload an image (multipart)
//	GET    /api/assets/{id}             fetch one asset
//	PATCH  /api/assets/{id}             edit caller fields
//	DELETE /api/assets/{id}             delete an asset and its bytes
//	PUT    /api/assets/{id}/image       replace the image, keeping edits
//	GET    /api/uploads/{correlationId} upload status
//	POST   /api/backfill                start a backfill run
//	GET    /api/backfill                backfill progress and last summary
//
// Health endpoints are /health, /healthz, /livez and /readyz. Prometheus
// metrics are served at /metrics.
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests (30s timeout)
//  2. Stop the backfill scheduler; a running pass stops between records
//  3. Stop the metrics collector and memory monitor
//  4. Close Redis and shut down libvips
//  5. Close the database
//
// # Build Requirements
//
// CGO is required for SQLite and libvips.
//
// See the cmd/backfill command for running a backfill in the foreground.
package main
