package ingest

import (
	"context"
	"fmt"
	"image"
	"time"

	"media-ingest/internal/database"
	"media-ingest/internal/exifmeta"
	"media-ingest/internal/fingerprint"
	"media-ingest/internal/fusion"
	"media-ingest/internal/histogram"
	"media-ingest/internal/metrics"
	"media-ingest/internal/placeholder"

	"golang.org/x/sync/errgroup"
)

// Stage is one independent derivation over the image bytes.
type Stage string

// Derivation stages.
const (
	StageFingerprint Stage = "fingerprint"
	StagePlaceholder Stage = "placeholder"
	StageHistogram   Stage = "histogram"
	StageExif        Stage = "exif"
)

// AllStages lists every derivation stage.
var AllStages = []Stage{StageFingerprint, StagePlaceholder, StageHistogram, StageExif}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range AllStages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// NeedsDecode reports whether any of stages works on decoded pixels.
func NeedsDecode(stages []Stage) bool {
	for _, st := range stages {
		if st != StageExif {
			return true
		}
	}
	return false
}

// Derivation is the combined output of the derivation stages. Stages
// that fail leave their fields empty.
type Derivation struct {
	fusion.Derived
	// Exif is the normalized tag set, nil when the image carries none.
	Exif *exifmeta.Fields
}

// Derive runs stages concurrently over data and its decoded image img. img
// may be nil when only StageExif is requested. Each stage writes its own
// result, so the stages share no state. A stage failure is logged and
// counted but never returned; the error is non-nil only when ctx is done.
func Derive(ctx context.Context, data []byte, img image.Image, stages []Stage) (*Derivation, error) {
	var (
		contentHash    string
		perceptualHash string
		thumb          string
		hist           *database.Histogram
		exifFields     *exifmeta.Fields
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range stages {
		var task func()
		switch st {
		case StageFingerprint:
			task = func() {
				contentHash = timed("fingerprint", func() (string, error) {
					return fingerprint.ContentHash(data), nil
				})
				perceptualHash = timed("perceptual_hash", func() (string, error) {
					return fingerprint.PerceptualHash(img)
				})
			}
		case StagePlaceholder:
			task = func() {
				thumb = timed("placeholder", func() (string, error) {
					return placeholder.Encode(img)
				})
			}
		case StageHistogram:
			task = func() {
				start := time.Now()
				hist = histogram.Compute(img)
				observe("histogram", start, hist != nil, nil)
			}
		case StageExif:
			task = func() {
				exifFields = extractExif(data)
			}
		default:
			return nil, fmt.Errorf("unknown stage %q", st)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			task()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := int64(len(data))
	return &Derivation{
		Derived: fusion.Derived{
			ContentHash:    contentHash,
			PerceptualHash: perceptualHash,
			Placeholder:    thumb,
			Histogram:      hist,
			FileSize:       &size,
			Exif:           fusion.FromExif(exifFields),
		},
		Exif: exifFields,
	}, nil
}

// timed runs produce and records its duration and outcome under stage.
func timed(stage string, produce func() (string, error)) string {
	start := time.Now()
	out, err := produce()
	observe(stage, start, out != "", err)
	if err != nil {
		log.Debug("%s skipped: %v", stage, err)
		return ""
	}
	return out
}

func observe(stage string, start time.Time, ok bool, err error) {
	metrics.DerivationDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case !ok:
		status = "empty"
	}
	metrics.DerivationTotal.WithLabelValues(stage, status).Inc()
}

func extractExif(data []byte) *exifmeta.Fields {
	start := time.Now()
	f, err := exifmeta.Extract(data)
	if err != nil {
		// Missing EXIF is normal and not an error.
		observe("exif", start, false, nil)
		log.Debug("no exif: %v", err)
		return nil
	}
	observe("exif", start, !f.Empty(), nil)
	return f
}
