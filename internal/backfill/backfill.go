package backfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"media-ingest/internal/database"
	"media-ingest/internal/fusion"
	"media-ingest/internal/ingest"
	"media-ingest/internal/logging"
	"media-ingest/internal/media"
	"media-ingest/internal/metrics"
)

var log = logging.For("backfill")

// DefaultPageSize is the number of records read per keyset page.
const DefaultPageSize = 100

// ErrAlreadyRunning is returned when a run is requested while another is in
// progress.
var ErrAlreadyRunning = errors.New("backfill already running")

// Store is the persistence the reprocessor walks and writes.
type Store interface {
	ListAssets(ctx context.Context, afterID string, limit int) ([]database.Asset, error)
	GetAsset(ctx context.Context, id string) (*database.Asset, error)
	UpdateAsset(ctx context.Context, a *database.Asset) error
	SetLastBackfillRun(ctx context.Context, t time.Time, summary string) error
}

// Fetcher returns the original bytes stored at a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MemoryGate holds back decodes while memory is critical.
type MemoryGate interface {
	Wait(ctx context.Context) error
}

// Result is the outcome for one record.
type Result string

// Record outcomes.
const (
	ResultUpdated Result = "updated"
	ResultSkipped Result = "skipped"
	ResultFailed  Result = "failed"
)

// Summary counts the records a run visited.
type Summary struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (s *Summary) add(r Result) {
	s.Total++
	switch r {
	case ResultUpdated:
		s.Updated++
	case ResultSkipped:
		s.Skipped++
	case ResultFailed:
		s.Failed++
	}
}

// Options narrow a run.
type Options struct {
	// Stages limits which derivations may run. Empty allows all of them.
	Stages []ingest.Stage
	// PageSize overrides the reprocessor's page size when positive.
	PageSize int
	// OnRecord is called after each record, from the run's goroutine.
	OnRecord func(id string, r Result, s Summary)
}

// Progress is a snapshot of the current or last run.
type Progress struct {
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	Summary   Summary   `json:"summary"`
}

// Reprocessor fills missing derived fields on stored assets, one record at
// a time.
type Reprocessor struct {
	store    Store
	fetcher  Fetcher
	memory   MemoryGate
	pageSize int
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once

	runMu       sync.Mutex
	isRunning   bool
	lastRunTime time.Time
	lastSummary *Summary

	progress atomic.Value
}

// New creates a Reprocessor. A zero interval disables periodic runs.
func New(store Store, fetcher Fetcher, pageSize int, interval time.Duration) *Reprocessor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	r := &Reprocessor{
		store:    store,
		fetcher:  fetcher,
		pageSize: pageSize,
		interval: interval,
		stopChan: make(chan struct{}),
	}
	r.progress.Store(Progress{})
	return r
}

// SetMemoryGate makes each record wait for g before decoding.
func (r *Reprocessor) SetMemoryGate(g MemoryGate) {
	r.memory = g
}

// Start launches the periodic scheduler when an interval is configured.
func (r *Reprocessor) Start() {
	if r.interval <= 0 {
		log.Info("Periodic backfill disabled")
		return
	}
	log.Info("Periodic backfill every %v", r.interval)
	go r.periodicRun()
}

// Stop ends the scheduler and cancels a run between records.
func (r *Reprocessor) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Run reprocesses every stored asset and returns the counts. It fails with
// ErrAlreadyRunning when another run holds the reprocessor, and with the
// context error when ctx ends; records processed before that stay written.
func (r *Reprocessor) Run(ctx context.Context, opts Options) (Summary, error) {
	if !r.tryStartRun() {
		return Summary{}, ErrAlreadyRunning
	}
	defer r.finishRun()
	return r.run(ctx, opts)
}

// Trigger starts a run in the background. It returns ErrAlreadyRunning
// instead of queueing a second run.
func (r *Reprocessor) Trigger(opts Options) error {
	if !r.tryStartRun() {
		return ErrAlreadyRunning
	}
	go func() {
		defer r.finishRun()
		ctx, cancel := r.stopContext()
		defer cancel()
		if _, err := r.run(ctx, opts); err != nil {
			log.Error("triggered backfill failed: %v", err)
		}
	}()
	return nil
}

// IsRunning reports whether a run is in progress.
func (r *Reprocessor) IsRunning() bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.isRunning
}

// LastRun returns when the last run finished and its summary, nil if no
// run has finished since startup.
func (r *Reprocessor) LastRun() (time.Time, *Summary) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.lastSummary == nil {
		return r.lastRunTime, nil
	}
	s := *r.lastSummary
	return r.lastRunTime, &s
}

// GetProgress returns the progress of the current or last run.
func (r *Reprocessor) GetProgress() Progress {
	if p, ok := r.progress.Load().(Progress); ok {
		return p
	}
	return Progress{}
}

func (r *Reprocessor) tryStartRun() bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.isRunning {
		return false
	}
	r.isRunning = true
	return true
}

func (r *Reprocessor) finishRun() {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	r.isRunning = false
}

// stopContext returns a context cancelled by Stop.
func (r *Reprocessor) stopContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-r.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (r *Reprocessor) periodicRun() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Debug("Periodic backfill triggered")
			ctx, cancel := r.stopContext()
			_, err := r.Run(ctx, Options{})
			cancel()
			switch {
			case errors.Is(err, ErrAlreadyRunning):
				log.Info("Backfill already in progress, skipping...")
			case err != nil:
				log.Error("periodic backfill failed: %v", err)
			}
		case <-r.stopChan:
			return
		}
	}
}

func (r *Reprocessor) run(ctx context.Context, opts Options) (Summary, error) {
	metrics.BackfillIsRunning.Set(1)
	defer metrics.BackfillIsRunning.Set(0)
	metrics.BackfillRunsTotal.Inc()

	allowed := opts.Stages
	if len(allowed) == 0 {
		allowed = ingest.AllStages
	}
	pageSize := r.pageSize
	if opts.PageSize > 0 {
		pageSize = opts.PageSize
	}
	if pageSize > database.MaxListLimit {
		pageSize = database.MaxListLimit
	}

	startTime := time.Now()
	log.Info("Starting backfill (stages %v, page size %d)", allowed, pageSize)

	var summary Summary
	r.progress.Store(Progress{Running: true, StartedAt: startTime})

	var runErr error
	after := ""
pages:
	for {
		page, err := r.store.ListAssets(ctx, after, pageSize)
		if err != nil {
			runErr = fmt.Errorf("list assets after %q: %w", after, err)
			break
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			if err := ctx.Err(); err != nil {
				runErr = err
				break pages
			}

			asset := &page[i]
			result := r.processRecord(ctx, asset, allowed)
			summary.add(result)
			metrics.BackfillRecordsTotal.WithLabelValues(string(result)).Inc()
			r.progress.Store(Progress{Running: true, StartedAt: startTime, Summary: summary})
			if opts.OnRecord != nil {
				opts.OnRecord(asset.ID, result, summary)
			}
		}

		after = page[len(page)-1].ID
		if len(page) < pageSize {
			break
		}
	}

	r.finalizeRun(startTime, summary)
	return summary, runErr
}

func (r *Reprocessor) finalizeRun(startTime time.Time, summary Summary) {
	duration := time.Since(startTime)
	now := time.Now()

	r.runMu.Lock()
	r.lastRunTime = now
	r.lastSummary = &summary
	r.runMu.Unlock()

	r.progress.Store(Progress{StartedAt: startTime, Summary: summary})

	metrics.BackfillLastRunTimestamp.Set(float64(now.Unix()))
	metrics.BackfillLastRunDuration.Set(duration.Seconds())

	encoded, err := json.Marshal(summary)
	if err == nil {
		err = r.store.SetLastBackfillRun(context.Background(), now, string(encoded))
	}
	if err != nil {
		log.Warn("failed to record backfill summary: %v", err)
	}

	log.Info("Backfill complete: %d records, %d updated, %d skipped, %d failed in %v",
		summary.Total, summary.Updated, summary.Skipped, summary.Failed, duration)
}

// processRecord derives only what asset is missing and writes it back if
// anything changed. The derivation is fused against a copy re-read after
// the fetch, so edits made while the bytes were in flight survive. Errors
// are logged and folded into the result.
func (r *Reprocessor) processRecord(ctx context.Context, asset *database.Asset, allowed []ingest.Stage) Result {
	stages := MissingStages(asset.Metadata, allowed)
	needSize := asset.Metadata.FileSize == nil
	needDims := asset.Width == 0 || asset.Height == 0
	if len(stages) == 0 && !needSize && !needDims {
		return ResultSkipped
	}

	if asset.SourceURL == "" {
		log.Warn("asset %s has no source url", asset.ID)
		return ResultFailed
	}
	data, err := r.fetcher.Fetch(ctx, asset.SourceURL)
	if err != nil {
		log.Warn("fetch %s for asset %s failed: %v", asset.SourceURL, asset.ID, err)
		return ResultFailed
	}

	var decoded *media.Decoded
	if ingest.NeedsDecode(stages) || needDims {
		if r.memory != nil {
			if err := r.memory.Wait(ctx); err != nil {
				log.Warn("asset %s: %v", asset.ID, err)
				return ResultFailed
			}
		}
		decoded, err = media.Decode(data)
		if err != nil {
			log.Warn("asset %s: %v", asset.ID, err)
			return ResultFailed
		}
	}

	var img image.Image
	if decoded != nil {
		img = decoded.Image
	}
	d, err := ingest.Derive(ctx, data, img, stages)
	if err != nil {
		log.Warn("asset %s: derivation interrupted: %v", asset.ID, err)
		return ResultFailed
	}
	if !needSize {
		d.FileSize = nil
	}

	fresh, err := r.store.GetAsset(ctx, asset.ID)
	if errors.Is(err, database.ErrNotFound) {
		log.Debug("asset %s deleted during backfill", asset.ID)
		return ResultSkipped
	}
	if err != nil {
		log.Warn("reload asset %s failed: %v", asset.ID, err)
		return ResultFailed
	}

	res := fusion.Fuse(fusion.Input{
		Mode:     fusion.ModeBackfill,
		Existing: &fresh.Metadata,
		Derived:  d.Derived,
	})
	changed := res.HasChanges()

	if database.IsBlank(fresh.Description) && d.Exif != nil && !database.IsBlank(d.Exif.Description) {
		fresh.Description = d.Exif.Description
		changed = true
	}
	if decoded != nil && (fresh.Width == 0 || fresh.Height == 0) {
		fresh.Width, fresh.Height = decoded.Width, decoded.Height
		changed = true
	}
	if !changed {
		return ResultSkipped
	}

	fresh.Metadata = res.Metadata
	if err := r.store.UpdateAsset(ctx, fresh); err != nil {
		log.Warn("persist asset %s failed: %v", asset.ID, err)
		return ResultFailed
	}
	*asset = *fresh
	log.Debug("asset %s updated: %v", asset.ID, res.Changed)
	return ResultUpdated
}
