package handlers

import (
	"context"
	"time"

	"media-ingest/internal/backfill"
	"media-ingest/internal/database"
	"media-ingest/internal/ingest"
	"media-ingest/internal/logging"
	"media-ingest/internal/source"
)

var log = logging.For("http")

// DefaultMaxUploadBytes bounds multipart uploads when no limit is configured.
const DefaultMaxUploadBytes = 50 << 20

// pinger is implemented by status stores that depend on a remote server.
type pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the HTTP API.
type Handlers struct {
	db        *database.Database
	pipeline  *ingest.Pipeline
	sources   source.Store
	backfill  *backfill.Reprocessor
	maxUpload int64
	startTime time.Time
}

// New wires the handlers. A non-positive maxUpload uses
// DefaultMaxUploadBytes.
func New(db *database.Database, pipeline *ingest.Pipeline, sources source.Store, rep *backfill.Reprocessor, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handlers{
		db:        db,
		pipeline:  pipeline,
		sources:   sources,
		backfill:  rep,
		maxUpload: maxUpload,
		startTime: time.Now(),
	}
}
