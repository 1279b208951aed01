// Package logging provides the leveled logger used across the ingestion
// service.
//
// Levels, lowest to highest:
//   - DEBUG: per-stage timings and derivation detail
//   - INFO: uploads, replaces, backfill progress
//   - WARN: degraded derivations and skipped records
//   - ERROR: persistence and storage failures
//   - FATAL: startup errors that terminate the process
//
// The level comes from DEBUG or LOG_LEVEL and is resolved once. Components
// obtain a prefixed logger with For, e.g. logging.For("backfill").
package logging
