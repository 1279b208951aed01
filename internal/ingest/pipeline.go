// Package ingest turns raw image bytes into a fused, persisted asset.
//
// A run decodes and validates the bytes, fans the four derivation stages
// out concurrently, fuses their results with caller input and any existing
// record, then writes the asset once. Only a decode failure or a
// persistence failure fails the run; derivation failures leave fields
// empty.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-ingest/internal/database"
	"media-ingest/internal/fusion"
	"media-ingest/internal/logging"
	"media-ingest/internal/media"
	"media-ingest/internal/mediatypes"
	"media-ingest/internal/metrics"
	"media-ingest/internal/workers"

	"github.com/google/uuid"
)

var log = logging.For("ingest")

// Store persists assets.
type Store interface {
	InsertAsset(ctx context.Context, a *database.Asset) error
	UpdateAsset(ctx context.Context, a *database.Asset) error
	GetAsset(ctx context.Context, id string) (*database.Asset, error)
}

// Classifier suggests a genre for an image.
type Classifier interface {
	Classify(ctx context.Context, data []byte, contentType string) (string, error)
}

// MemoryGate holds back decodes while memory is critical.
type MemoryGate interface {
	Wait(ctx context.Context) error
}

// Config wires a Pipeline.
type Config struct {
	Store  Store
	Status StatusStore
	// Classifier is optional. It is consulted only when no genre was
	// supplied, persisted or derived.
	Classifier Classifier
	// Workers bounds concurrent runs. Zero uses workers.ForCPU.
	Workers int
	// Memory is optional.
	Memory MemoryGate
}

// Pipeline runs ingestions.
type Pipeline struct {
	store      Store
	status     StatusStore
	classifier Classifier
	limiter    *workers.Limiter
	memory     MemoryGate
}

// New returns a Pipeline. A nil status store is replaced by an in-memory
// one.
func New(cfg Config) *Pipeline {
	n := cfg.Workers
	if n <= 0 {
		n = workers.ForCPU(0)
	}
	status := cfg.Status
	if status == nil {
		status = NewMemoryStatusStore(DefaultStatusTTL)
	}
	return &Pipeline{
		store:      cfg.Store,
		status:     status,
		classifier: cfg.Classifier,
		limiter:    workers.NewLimiter(n),
		memory:     cfg.Memory,
	}
}

// StatusStore returns the store that tracks run status.
func (p *Pipeline) StatusStore() StatusStore {
	return p.status
}

// Request is one ingestion.
type Request struct {
	// ID names a new asset. Empty generates one. Ignored by Replace.
	ID   string
	Data []byte
	// SourceURL is where the caller stored Data.
	SourceURL   string
	Title       string
	Description string
	// Fields are caller-supplied metadata values, nil when none.
	Fields *database.Metadata
	// CorrelationID keys the status entry. Empty generates one.
	CorrelationID string
}

// Ingest creates a new asset from req.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*database.Asset, error) {
	return p.run(ctx, fusion.ModeCreate, nil, req)
}

// Replace swaps the image of asset id for req.Data and re-derives every
// content field. Curated values keep their precedence.
func (p *Pipeline) Replace(ctx context.Context, id string, req Request) (*database.Asset, error) {
	existing, err := p.store.GetAsset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", id, err)
	}
	return p.run(ctx, fusion.ModeReplace, existing, req)
}

func (p *Pipeline) run(ctx context.Context, mode fusion.Mode, existing *database.Asset, req Request) (*database.Asset, error) {
	op := mode.String()
	start := time.Now()
	defer func() {
		metrics.IngestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	p.setStatus(ctx, req.CorrelationID, database.StatusProcessing)

	if p.memory != nil {
		if err := p.memory.Wait(ctx); err != nil {
			p.fail(ctx, op, req.CorrelationID, "failed")
			return nil, fmt.Errorf("waiting for memory: %w", err)
		}
	}
	if err := p.limiter.Acquire(ctx); err != nil {
		p.fail(ctx, op, req.CorrelationID, "failed")
		return nil, fmt.Errorf("waiting for ingest slot: %w", err)
	}
	metrics.IngestInFlight.Inc()
	asset, err := p.derive(ctx, mode, existing, req)
	metrics.IngestInFlight.Dec()
	p.limiter.Release()

	if err != nil {
		outcome := "failed"
		if errors.Is(err, media.ErrInvalidImage) {
			outcome = "invalid"
		}
		p.fail(ctx, op, req.CorrelationID, outcome)
		return nil, err
	}

	if existing == nil {
		err = p.store.InsertAsset(ctx, asset)
	} else {
		err = p.store.UpdateAsset(ctx, asset)
	}
	if err != nil {
		p.fail(ctx, op, req.CorrelationID, "failed")
		return nil, fmt.Errorf("persist asset %s: %w", asset.ID, err)
	}

	metrics.IngestTotal.WithLabelValues(op, "completed").Inc()
	metrics.IngestBytes.Add(float64(len(req.Data)))
	p.setStatus(ctx, req.CorrelationID, database.StatusCompleted)
	log.Info("%s %s completed (%d bytes, %dx%d) in %v",
		op, asset.ID, len(req.Data), asset.Width, asset.Height, time.Since(start))
	return asset, nil
}

// derive validates the bytes and builds the fused asset without persisting
// it.
func (p *Pipeline) derive(ctx context.Context, mode fusion.Mode, existing *database.Asset, req Request) (*database.Asset, error) {
	decoded, err := media.Decode(req.Data)
	if err != nil {
		return nil, err
	}

	d, err := Derive(ctx, req.Data, decoded.Image, AllStages)
	if err != nil {
		return nil, err
	}

	in := fusion.Input{
		Mode:          mode,
		Derived:       d.Derived,
		Status:        database.StatusCompleted,
		CorrelationID: req.CorrelationID,
	}
	if req.Fields != nil {
		explicit := fusion.Canonicalize(*req.Fields)
		in.Explicit = &explicit
	}

	asset := &database.Asset{ID: req.ID}
	if existing != nil {
		*asset = *existing
		in.Existing = &existing.Metadata
	} else if asset.ID == "" {
		asset.ID = uuid.NewString()
	}

	res := fusion.Fuse(in)
	asset.Metadata = res.Metadata
	asset.Width, asset.Height = decoded.Width, decoded.Height
	asset.Title = firstNonBlank(req.Title, asset.Title)
	var exifDescription string
	if d.Exif != nil {
		exifDescription = d.Exif.Description
	}
	asset.Description = firstNonBlank(req.Description, asset.Description, exifDescription)
	if req.SourceURL != "" {
		asset.SourceURL = req.SourceURL
	}

	if database.IsBlank(asset.Metadata.Genre) && p.classifier != nil {
		asset.Metadata.Genre = p.classify(ctx, req.Data, decoded.Format)
	}

	log.Debug("%s %s fused, changed fields: %v", mode, asset.ID, res.Changed)
	return asset, nil
}

func (p *Pipeline) classify(ctx context.Context, data []byte, format string) string {
	genre, err := p.classifier.Classify(ctx, data, mediatypes.MimeTypeForFormat(format))
	if err != nil {
		log.Warn("classifier unavailable: %v", err)
		return ""
	}
	return genre
}

func (p *Pipeline) fail(ctx context.Context, op, correlationID, outcome string) {
	metrics.IngestTotal.WithLabelValues(op, outcome).Inc()
	p.setStatus(ctx, correlationID, database.StatusFailed)
}

// setStatus records status without failing the run; polling is best
// effort.
func (p *Pipeline) setStatus(ctx context.Context, correlationID string, status database.Status) {
	if err := p.status.Set(context.WithoutCancel(ctx), correlationID, status); err != nil {
		log.Warn("failed to record status %s for %s: %v", status, correlationID, err)
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if !database.IsBlank(v) {
			return v
		}
	}
	return ""
}
