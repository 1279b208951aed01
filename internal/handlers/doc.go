// Package handlers provides the HTTP API of the ingestion service.
//
// It includes handlers for:
//   - Multipart uploads and image replacement, run through the ingest pipeline
//   - Reading, listing, editing and deleting asset records
//   - Polling upload status by correlation id
//   - Triggering and inspecting backfill runs
//   - Health, readiness, version and Prometheus metrics
//
// Errors are returned as {"error": "..."} with a status derived from the
// sentinel error: invalid images map to 400, unknown assets to 404.
package handlers
