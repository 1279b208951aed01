package fusion

import (
	"math"
	"slices"
	"testing"

	"media-ingest/internal/database"
	"media-ingest/internal/exifmeta"
)

func histogramOf(fill uint32) *database.Histogram {
	bins := func() []uint32 {
		b := make([]uint32, database.HistogramBins)
		b[0] = fill
		return b
	}
	return &database.Histogram{R: bins(), G: bins(), B: bins(), L: bins()}
}

func TestFuseCreatePopulatesFromExif(t *testing.T) {
	derived := FromExif(&exifmeta.Fields{
		Camera:   "Sony A7IV",
		Aperture: "f/1.8",
		ISO:      "400",
	})

	res := Fuse(Input{
		Mode: ModeCreate,
		Derived: Derived{
			ContentHash: "abc",
			Placeholder: "ph",
			Histogram:   histogramOf(1),
			FileSize:    database.Int64(1234),
			Exif:        derived,
		},
		Status:        database.StatusCompleted,
		CorrelationID: "corr-1",
	})

	m := res.Metadata
	if m.Camera != "Sony A7IV" || m.Aperture != "f/1.8" || m.ISO != "400" {
		t.Errorf("curated fields = %q %q %q", m.Camera, m.Aperture, m.ISO)
	}
	if m.ContentHash != "abc" || m.Placeholder != "ph" || m.Histogram == nil {
		t.Errorf("content fields not populated: %+v", m)
	}
	if m.FileSize == nil || *m.FileSize != 1234 {
		t.Errorf("FileSize = %v, want 1234", m.FileSize)
	}
	if m.Status != database.StatusCompleted || m.CorrelationID != "corr-1" {
		t.Errorf("pipeline fields = %q %q", m.Status, m.CorrelationID)
	}
	if res.Columns != database.ColumnsOf(m) {
		t.Errorf("Columns = %+v, want projection of metadata", res.Columns)
	}
	if !res.HasChanges() {
		t.Error("HasChanges() = false for a new record")
	}
}

// Every curated string field must keep its persisted value against derived
// values and yield only to explicit caller input.
func TestFuseNeverOverwritesCuratedStrings(t *testing.T) {
	for _, f := range curatedStrings {
		t.Run(f.name, func(t *testing.T) {
			var existing, derived, explicit database.Metadata
			*f.ptr(&existing) = "persisted"
			*f.ptr(&derived) = "derived"
			*f.ptr(&explicit) = "explicit"

			for _, mode := range []Mode{ModeCreate, ModeReplace, ModeBackfill} {
				res := Fuse(Input{Mode: mode, Existing: &existing, Derived: Derived{Exif: derived}})
				if got := *f.ptr(&res.Metadata); got != "persisted" {
					t.Errorf("%s without caller value = %q, want persisted", mode, got)
				}
				if slices.Contains(res.Changed, f.name) {
					t.Errorf("%s reported %s as changed", mode, f.name)
				}

				res = Fuse(Input{Mode: mode, Existing: &existing, Explicit: &explicit, Derived: Derived{Exif: derived}})
				if got := *f.ptr(&res.Metadata); got != "explicit" {
					t.Errorf("%s with caller value = %q, want explicit", mode, got)
				}
			}
		})
	}
}

func TestFuseBlankValuesAreEmpty(t *testing.T) {
	existing := database.Metadata{Camera: "   "}
	explicit := database.Metadata{Lens: "\t"}
	derived := database.Metadata{Camera: "Sony A7IV", Lens: "FE 50mm"}

	res := Fuse(Input{Existing: &existing, Explicit: &explicit, Derived: Derived{Exif: derived}})
	if res.Metadata.Camera != "Sony A7IV" {
		t.Errorf("Camera = %q, want derived value over blank persisted value", res.Metadata.Camera)
	}
	if res.Metadata.Lens != "FE 50mm" {
		t.Errorf("Lens = %q, want derived value over blank caller value", res.Metadata.Lens)
	}
}

func TestFuseFloats(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name     string
		existing *float64
		explicit *float64
		derived  *float64
		want     *float64
	}{
		{"derived fills nil", nil, nil, database.Float(1.5), database.Float(1.5)},
		{"derived fills NaN", &nan, nil, database.Float(1.5), database.Float(1.5)},
		{"existing beats derived", database.Float(2), nil, database.Float(1.5), database.Float(2)},
		{"zero is a value", database.Float(0), nil, database.Float(1.5), database.Float(0)},
		{"explicit beats existing", database.Float(2), database.Float(3), nil, database.Float(3)},
		{"NaN explicit ignored", database.Float(2), &nan, nil, database.Float(2)},
		{"all empty", nil, nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Fuse(Input{
				Existing: &database.Metadata{Latitude: tt.existing},
				Explicit: &database.Metadata{Latitude: tt.explicit},
				Derived:  Derived{Exif: database.Metadata{Latitude: tt.derived}},
			})
			if !equalFloat(res.Metadata.Latitude, tt.want) {
				t.Errorf("Latitude = %v, want %v", res.Metadata.Latitude, tt.want)
			}
		})
	}
}

func TestFuseReplaceRecomputesContentFields(t *testing.T) {
	existing := database.Metadata{
		Camera:         "My Sony",
		ContentHash:    "old-hash",
		PerceptualHash: "0f0f0f0f0f0f0f0f",
		Placeholder:    "old-ph",
		Histogram:      histogramOf(1),
		FileSize:       database.Int64(10),
	}

	res := Fuse(Input{
		Mode:     ModeReplace,
		Existing: &existing,
		Derived: Derived{
			ContentHash: "new-hash",
			Placeholder: "new-ph",
			Histogram:   histogramOf(2),
			FileSize:    database.Int64(20),
			Exif:        database.Metadata{Camera: "Sony A7IV"},
		},
	})

	m := res.Metadata
	if m.Camera != "My Sony" {
		t.Errorf("Camera = %q, curated value must survive a replace", m.Camera)
	}
	if m.ContentHash != "new-hash" || m.Placeholder != "new-ph" {
		t.Errorf("content fields = %q %q, want fresh values", m.ContentHash, m.Placeholder)
	}
	if m.PerceptualHash != "" {
		t.Errorf("PerceptualHash = %q, stale hash must be dropped when recomputation fails", m.PerceptualHash)
	}
	if m.Histogram == nil || m.Histogram.R[0] != 2 {
		t.Errorf("Histogram not replaced: %+v", m.Histogram)
	}
	if m.FileSize == nil || *m.FileSize != 20 {
		t.Errorf("FileSize = %v, want 20", m.FileSize)
	}
	for _, name := range []string{"contentHash", "perceptualHash", "placeholder", "histogram", "fileSize"} {
		if !slices.Contains(res.Changed, name) {
			t.Errorf("Changed = %v, missing %s", res.Changed, name)
		}
	}
	if slices.Contains(res.Changed, "camera") {
		t.Errorf("Changed = %v, camera did not change", res.Changed)
	}
}

func TestFuseBackfillOnlyFillsGaps(t *testing.T) {
	existing := database.Metadata{
		ContentHash: "kept",
		Histogram:   &database.Histogram{R: []uint32{1}},
		Status:      database.StatusCompleted,
	}
	derived := Derived{
		ContentHash:    "recomputed",
		PerceptualHash: "00000000ffffffff",
		Histogram:      histogramOf(3),
	}

	first := Fuse(Input{Mode: ModeBackfill, Existing: &existing, Derived: derived})
	if first.Metadata.ContentHash != "kept" {
		t.Errorf("ContentHash = %q, backfill must keep existing value", first.Metadata.ContentHash)
	}
	if first.Metadata.PerceptualHash != "00000000ffffffff" {
		t.Errorf("PerceptualHash = %q, want filled", first.Metadata.PerceptualHash)
	}
	if first.Metadata.Histogram == nil || first.Metadata.Histogram.R[0] != 3 {
		t.Error("malformed histogram should be replaced")
	}
	if first.Metadata.Status != database.StatusCompleted {
		t.Errorf("Status = %q, want existing status kept", first.Metadata.Status)
	}

	second := Fuse(Input{Mode: ModeBackfill, Existing: &first.Metadata, Derived: derived})
	if second.HasChanges() {
		t.Errorf("second pass changed %v", second.Changed)
	}
}

func TestFuseDoesNotAliasInputs(t *testing.T) {
	lat := 1.0
	existing := database.Metadata{Latitude: &lat}
	res := Fuse(Input{Existing: &existing})
	*res.Metadata.Latitude = 5
	if lat != 1 {
		t.Error("Fuse returned a pointer into the existing metadata")
	}
}

func TestDiff(t *testing.T) {
	a := database.Metadata{Camera: "A", Latitude: database.Float(1)}
	b := database.Metadata{Camera: "B", Latitude: database.Float(1), Status: database.StatusFailed}

	got := Diff(a, b)
	want := []string{"camera", "status"}
	if !slices.Equal(got, want) {
		t.Errorf("Diff() = %v, want %v", got, want)
	}
	if len(Diff(a, a)) != 0 {
		t.Error("Diff() of identical metadata should be empty")
	}
}

func TestModeString(t *testing.T) {
	if ModeReplace.String() != "replace" || Mode(42).String() != "unknown" {
		t.Error("unexpected Mode.String() output")
	}
}
