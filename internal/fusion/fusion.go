// Package fusion merges caller-supplied, previously persisted and freshly
// derived metadata into one record without reverting human edits.
//
// Curated fields take the first non-empty value in the order explicit,
// existing, derived. Strings are empty when blank after trimming; numbers
// when nil or NaN. Content-derived fields (content hash, perceptual hash,
// placeholder, histogram) describe the current bytes: a replace takes the
// fresh values, while create and backfill only fill them when empty. File
// size always follows the newest bytes, and status and correlation id are
// set by the pipeline.
package fusion

import (
	"slices"
	"strings"

	"media-ingest/internal/database"
)

// Mode selects how content-derived fields are merged.
type Mode int

const (
	// ModeCreate fuses a new upload.
	ModeCreate Mode = iota
	// ModeReplace fuses a record whose image bytes were replaced.
	ModeReplace
	// ModeBackfill fills gaps in a historical record.
	ModeBackfill
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeReplace:
		return "replace"
	case ModeBackfill:
		return "backfill"
	}
	return "unknown"
}

// Derived holds values computed from the current image bytes. Zero values
// mean the derivation was skipped or failed.
type Derived struct {
	ContentHash    string
	PerceptualHash string
	Placeholder    string
	Histogram      *database.Histogram
	FileSize       *int64
	// Exif carries the curated fields read from embedded tags.
	Exif database.Metadata
}

// Input is everything Fuse considers for one record.
type Input struct {
	Mode Mode
	// Existing is the persisted metadata, nil for a new record.
	Existing *database.Metadata
	// Explicit holds fields the caller supplied, nil when none.
	Explicit *database.Metadata
	Derived  Derived
	// Status and CorrelationID overwrite the existing values when set.
	Status        database.Status
	CorrelationID string
}

// Result is the fused metadata and its flattened projection.
type Result struct {
	Metadata database.Metadata
	Columns  database.Columns
	// Changed lists the JSON names of fields that differ from Existing.
	Changed []string
}

// HasChanges reports whether fusion altered any field.
func (r Result) HasChanges() bool {
	return len(r.Changed) > 0
}

type stringField struct {
	name string
	ptr  func(*database.Metadata) *string
}

type floatField struct {
	name string
	ptr  func(*database.Metadata) **float64
}

// curatedStrings are precedence-protected text fields.
var curatedStrings = []stringField{
	{"camera", func(m *database.Metadata) *string { return &m.Camera }},
	{"lens", func(m *database.Metadata) *string { return &m.Lens }},
	{"aperture", func(m *database.Metadata) *string { return &m.Aperture }},
	{"focalLength", func(m *database.Metadata) *string { return &m.FocalLength }},
	{"iso", func(m *database.Metadata) *string { return &m.ISO }},
	{"shutterSpeed", func(m *database.Metadata) *string { return &m.ShutterSpeed }},
	{"captureTime", func(m *database.Metadata) *string { return &m.CaptureTime }},
	{"location", func(m *database.Metadata) *string { return &m.Location }},
	{"genre", func(m *database.Metadata) *string { return &m.Genre }},
	{"exposureBias", func(m *database.Metadata) *string { return &m.ExposureBias }},
	{"exposureProgram", func(m *database.Metadata) *string { return &m.ExposureProgram }},
	{"exposureMode", func(m *database.Metadata) *string { return &m.ExposureMode }},
	{"meteringMode", func(m *database.Metadata) *string { return &m.MeteringMode }},
	{"whiteBalance", func(m *database.Metadata) *string { return &m.WhiteBalance }},
	{"flash", func(m *database.Metadata) *string { return &m.Flash }},
	{"colorSpace", func(m *database.Metadata) *string { return &m.ColorSpace }},
	{"xResolution", func(m *database.Metadata) *string { return &m.XResolution }},
	{"yResolution", func(m *database.Metadata) *string { return &m.YResolution }},
	{"resolutionUnit", func(m *database.Metadata) *string { return &m.ResolutionUnit }},
	{"software", func(m *database.Metadata) *string { return &m.Software }},
	{"notes", func(m *database.Metadata) *string { return &m.Notes }},
	{"keywords", func(m *database.Metadata) *string { return &m.Keywords }},
}

// curatedFloats are precedence-protected numeric fields.
var curatedFloats = []floatField{
	{"latitude", func(m *database.Metadata) **float64 { return &m.Latitude }},
	{"longitude", func(m *database.Metadata) **float64 { return &m.Longitude }},
}

// contentStrings are recomputed from the image bytes.
var contentStrings = []stringField{
	{"contentHash", func(m *database.Metadata) *string { return &m.ContentHash }},
	{"perceptualHash", func(m *database.Metadata) *string { return &m.PerceptualHash }},
	{"placeholder", func(m *database.Metadata) *string { return &m.Placeholder }},
}

// Fuse merges in into a single metadata record.
func Fuse(in Input) Result {
	var existing, explicit database.Metadata
	if in.Existing != nil {
		existing = *in.Existing
	}
	if in.Explicit != nil {
		explicit = *in.Explicit
	}
	derived := in.Derived.Exif
	fresh := database.Metadata{
		ContentHash:    in.Derived.ContentHash,
		PerceptualHash: in.Derived.PerceptualHash,
		Placeholder:    in.Derived.Placeholder,
		Histogram:      in.Derived.Histogram,
	}

	out := existing

	for _, f := range curatedStrings {
		*f.ptr(&out) = firstString(*f.ptr(&explicit), *f.ptr(&existing), *f.ptr(&derived))
	}
	for _, f := range curatedFloats {
		*f.ptr(&out) = firstFloat(*f.ptr(&explicit), *f.ptr(&existing), *f.ptr(&derived))
	}

	for _, f := range contentStrings {
		if in.Mode == ModeReplace {
			*f.ptr(&out) = strings.TrimSpace(*f.ptr(&fresh))
		} else {
			*f.ptr(&out) = firstString(*f.ptr(&existing), *f.ptr(&fresh))
		}
	}
	switch {
	case in.Mode == ModeReplace:
		out.Histogram = fresh.Histogram
	case !validHistogram(existing.Histogram):
		out.Histogram = fresh.Histogram
	}
	if !validHistogram(out.Histogram) {
		out.Histogram = nil
	}

	if in.Derived.FileSize != nil {
		out.FileSize = database.Int64(*in.Derived.FileSize)
	}
	if in.Status != "" {
		out.Status = in.Status
	}
	if in.CorrelationID != "" {
		out.CorrelationID = in.CorrelationID
	}

	return Result{
		Metadata: out,
		Columns:  database.ColumnsOf(out),
		Changed:  Diff(existing, out),
	}
}

// Diff returns the JSON names of fields whose values differ between a
// and b.
func Diff(a, b database.Metadata) []string {
	var changed []string
	for _, fields := range [][]stringField{curatedStrings, contentStrings} {
		for _, f := range fields {
			if *f.ptr(&a) != *f.ptr(&b) {
				changed = append(changed, f.name)
			}
		}
	}
	for _, f := range curatedFloats {
		if !equalFloat(*f.ptr(&a), *f.ptr(&b)) {
			changed = append(changed, f.name)
		}
	}
	if !equalHistogram(a.Histogram, b.Histogram) {
		changed = append(changed, "histogram")
	}
	if !equalInt(a.FileSize, b.FileSize) {
		changed = append(changed, "fileSize")
	}
	if a.Status != b.Status {
		changed = append(changed, "status")
	}
	if a.CorrelationID != b.CorrelationID {
		changed = append(changed, "correlationId")
	}
	return changed
}

func firstString(candidates ...string) string {
	for _, c := range candidates {
		if !database.IsBlank(c) {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

func firstFloat(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if !database.IsNullFloat(c) {
			return database.Float(*c)
		}
	}
	return nil
}

func equalFloat(a, b *float64) bool {
	if database.IsNullFloat(a) || database.IsNullFloat(b) {
		return database.IsNullFloat(a) == database.IsNullFloat(b)
	}
	return *a == *b
}

func equalInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
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

func equalHistogram(a, b *database.Histogram) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.R, b.R) && slices.Equal(a.G, b.G) &&
		slices.Equal(a.B, b.B) && slices.Equal(a.L, b.L)
}
