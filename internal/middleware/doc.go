// Package middleware provides HTTP middleware for the ingestion API:
// correlation ids, W3C-style request logging and Prometheus request metrics.
package middleware
