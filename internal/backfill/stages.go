package backfill

import (
	"slices"

	"media-ingest/internal/database"
	"media-ingest/internal/ingest"
)

// MissingStages returns the stages in allowed whose output is absent from m.
// The EXIF stage is due when any of the core capture fields is empty; GPS,
// lens and the secondary exposure fields are filled opportunistically when
// it runs.
func MissingStages(m database.Metadata, allowed []ingest.Stage) []ingest.Stage {
	var stages []ingest.Stage
	for _, st := range ingest.AllStages {
		if !slices.Contains(allowed, st) {
			continue
		}
		if stageMissing(m, st) {
			stages = append(stages, st)
		}
	}
	return stages
}

func stageMissing(m database.Metadata, st ingest.Stage) bool {
	switch st {
	case ingest.StageFingerprint:
		return database.IsBlank(m.ContentHash) || database.IsBlank(m.PerceptualHash)
	case ingest.StagePlaceholder:
		return database.IsBlank(m.Placeholder)
	case ingest.StageHistogram:
		return !validHistogram(m.Histogram)
	case ingest.StageExif:
		for _, v := range []string{m.Camera, m.CaptureTime, m.Aperture, m.ISO, m.ShutterSpeed, m.FocalLength} {
			if database.IsBlank(v) {
				return true
			}
		}
	}
	return false
}

func validHistogram(h *database.Histogram) bool {
	if h == nil {
		return false
	}
	for _, bins := range [][]uint32{h.R, h.G, h.B, h.L} {
		if len(bins) != database.HistogramBins {
			return false
		}
	}
	return true
}
