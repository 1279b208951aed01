package fusion

import (
	"strings"

	"media-ingest/internal/database"
	"media-ingest/internal/exifmeta"
)

// FromExif maps normalized EXIF fields onto the metadata shape.
func FromExif(f *exifmeta.Fields) database.Metadata {
	if f == nil {
		return database.Metadata{}
	}
	m := database.Metadata{
		Camera:          f.Camera,
		Lens:            f.Lens,
		Aperture:        f.Aperture,
		FocalLength:     f.FocalLength,
		ISO:             f.ISO,
		ShutterSpeed:    f.ShutterSpeed,
		CaptureTime:     f.CaptureTime,
		Location:        f.Location,
		ExposureBias:    f.ExposureBias,
		ExposureProgram: f.ExposureProgram,
		ExposureMode:    f.ExposureMode,
		MeteringMode:    f.MeteringMode,
		WhiteBalance:    f.WhiteBalance,
		Flash:           f.Flash,
		ColorSpace:      f.ColorSpace,
		XResolution:     f.XResolution,
		YResolution:     f.YResolution,
		ResolutionUnit:  f.ResolutionUnit,
		Software:        f.Software,
		Notes:           f.Comment,
		Keywords:        f.Keywords,
	}
	if !database.IsNullFloat(f.Latitude) && !database.IsNullFloat(f.Longitude) {
		m.Latitude = database.Float(*f.Latitude)
		m.Longitude = database.Float(*f.Longitude)
	}
	return m
}

// Canonicalize normalizes caller-supplied fields the same way EXIF values
// are normalized: enumerated fields are matched to their labels, numeric
// codes are decoded and capture times are rewritten as RFC 3339. A capture
// time that does not parse is dropped. Pipeline-owned and content-derived
// fields are cleared since callers cannot set them.
func Canonicalize(m database.Metadata) database.Metadata {
	out := m
	for _, f := range curatedStrings {
		p := f.ptr(&out)
		*p = strings.TrimSpace(*p)
	}

	out.ExposureProgram = normalizeEnum(exifmeta.ExposurePrograms, out.ExposureProgram)
	out.ExposureMode = normalizeEnum(exifmeta.ExposureModes, out.ExposureMode)
	out.MeteringMode = normalizeEnum(exifmeta.MeteringModes, out.MeteringMode)
	out.WhiteBalance = normalizeEnum(exifmeta.WhiteBalances, out.WhiteBalance)
	out.Flash = normalizeEnum(exifmeta.Flashes, out.Flash)
	out.ExposureBias = exifmeta.NormalizeExposureBias(out.ExposureBias)
	out.ColorSpace = exifmeta.NormalizeColorSpace(out.ColorSpace)
	out.ResolutionUnit = exifmeta.NormalizeResolutionUnit(out.ResolutionUnit)
	if out.CaptureTime != "" {
		out.CaptureTime = exifmeta.FormatCaptureTime(out.CaptureTime)
	}
	if database.IsNullFloat(out.Latitude) {
		out.Latitude = nil
	}
	if database.IsNullFloat(out.Longitude) {
		out.Longitude = nil
	}

	out.ContentHash = ""
	out.PerceptualHash = ""
	out.Placeholder = ""
	out.Histogram = nil
	out.FileSize = nil
	out.Status = ""
	out.CorrelationID = ""
	return out
}

func normalizeEnum(t *exifmeta.Table, s string) string {
	if s == "" {
		return ""
	}
	return t.Normalize(s)
}
