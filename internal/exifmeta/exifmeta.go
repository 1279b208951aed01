// Package exifmeta extracts a fixed pick-list of embedded EXIF tags and
// normalizes them into display strings.
//
// Every formatter is deterministic and numeric-input driven. Enumerated tags
// (exposure program, exposure mode, metering mode, white balance, flash)
// map integer codes to canonical labels through Table; free text from
// callers or from non-conforming files is matched against the same labels.
package exifmeta

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"media-ingest/internal/logging"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNoExif is returned when the data carries no readable EXIF block.
var ErrNoExif = errors.New("no exif data")

var log = logging.For("exif")

// Fields holds normalized tag values. Empty strings and nil pointers mean
// the tag was absent or unusable.
type Fields struct {
	Camera          string
	Lens            string
	Aperture        string
	ShutterSpeed    string
	FocalLength     string
	ISO             string
	ExposureBias    string
	ExposureProgram string
	ExposureMode    string
	MeteringMode    string
	WhiteBalance    string
	Flash           string
	ColorSpace      string
	XResolution     string
	YResolution     string
	ResolutionUnit  string
	Software        string
	CaptureTime     string
	Location        string
	Latitude        *float64
	Longitude       *float64
	Description     string
	Comment         string
	Keywords        string
}

// Empty reports whether no field was populated.
func (f *Fields) Empty() bool {
	return f == nil || *f == (Fields{})
}

// Extract decodes the EXIF block embedded in data. It returns ErrNoExif
// when there is none.
func Extract(data []byte) (*Fields, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		if x == nil || exif.IsCriticalError(err) {
			return nil, fmt.Errorf("%w: %v", ErrNoExif, err)
		}
		log.Debug("partial exif block: %v", err)
	}
	return FromExif(x), nil
}

// FromExif normalizes the pick-list of an already decoded block.
func FromExif(x *exif.Exif) *Fields {
	r := reader{x: x}
	f := &Fields{}

	camera := CameraName(r.text(exif.Make), r.text(exif.Model))
	f.Camera, f.Lens = SplitCameraLens(camera, r.text(exif.LensModel))

	if v, ok := r.float(exif.FNumber); ok {
		f.Aperture = FormatAperture(v)
	}

	exposure, hasExposure := r.float(exif.ExposureTime)
	apex, hasApex := r.float(exif.ShutterSpeedValue)
	f.ShutterSpeed = FormatShutterSpeed(optional(exposure, hasExposure), optional(apex, hasApex))

	if v, ok := r.float(exif.FocalLength); ok {
		f.FocalLength = FormatFocalLength(v)
	}
	if v, ok := r.int(exif.ISOSpeedRatings); ok && v > 0 {
		f.ISO = strconv.Itoa(v)
	}

	if v, ok := r.float(exif.ExposureBiasValue); ok {
		f.ExposureBias = FormatExposureBias(v)
	} else if s := r.text(exif.ExposureBiasValue); s != "" {
		f.ExposureBias = NormalizeExposureBias(s)
	}

	f.ExposureProgram = r.enum(exif.ExposureProgram, ExposurePrograms)
	f.ExposureMode = r.enum(exif.ExposureMode, ExposureModes)
	f.MeteringMode = r.enum(exif.MeteringMode, MeteringModes)
	f.WhiteBalance = r.enum(exif.WhiteBalance, WhiteBalances)
	f.Flash = r.enum(exif.Flash, Flashes)

	if v, ok := r.int(exif.ColorSpace); ok {
		f.ColorSpace = FormatColorSpace(v)
	} else {
		f.ColorSpace = r.text(exif.ColorSpace)
	}
	if v, ok := r.float(exif.XResolution); ok {
		f.XResolution = FormatResolution(v)
	}
	if v, ok := r.float(exif.YResolution); ok {
		f.YResolution = FormatResolution(v)
	}
	if v, ok := r.int(exif.ResolutionUnit); ok {
		f.ResolutionUnit = FormatResolutionUnit(v)
	} else {
		f.ResolutionUnit = r.text(exif.ResolutionUnit)
	}

	f.Software = r.text(exif.Software)

	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		if t := FormatCaptureTime(r.text(name)); t != "" {
			f.CaptureTime = t
			break
		}
	}

	if x == nil {
		return f
	}
	if lat, lon, err := x.LatLong(); err == nil && validCoordinate(lat, 90) && validCoordinate(lon, 180) {
		f.Latitude, f.Longitude = &lat, &lon
		f.Location = FormatLocation(f.Latitude, f.Longitude)
	}

	f.Description = r.text(exif.ImageDescription)
	f.Comment = r.comment(exif.UserComment)
	f.Keywords = r.utf16(exif.XPKeywords)

	return f
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}

type reader struct {
	x *exif.Exif
}

func (r reader) tag(name exif.FieldName) *tiff.Tag {
	if r.x == nil {
		return nil
	}
	tag, err := r.x.Get(name)
	if err != nil {
		return nil
	}
	return tag
}

// text returns an ASCII tag trimmed of padding.
func (r reader) text(name exif.FieldName) string {
	tag := r.tag(name)
	if tag == nil {
		return ""
	}
	if tag.Format() == tiff.StringVal {
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return cleanText(s)
	}
	if tag.Format() == tiff.UndefVal {
		return cleanText(string(tag.Val))
	}
	return ""
}

func (r reader) float(name exif.FieldName) (float64, bool) {
	tag := r.tag(name)
	if tag == nil || tag.Count == 0 {
		return 0, false
	}
	switch tag.Format() {
	case tiff.RatVal:
		num, den, err := tag.Rat2(0)
		if err != nil || den == 0 {
			return 0, false
		}
		return float64(num) / float64(den), true
	case tiff.IntVal:
		v, err := tag.Int(0)
		if err != nil {
			return 0, false
		}
		return float64(v), true
	case tiff.FloatVal:
		v, err := tag.Float(0)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func (r reader) int(name exif.FieldName) (int, bool) {
	tag := r.tag(name)
	if tag == nil || tag.Count == 0 || tag.Format() != tiff.IntVal {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

// enum decodes an enumerated tag by code, falling back to text matching
// for files that store the label as a string.
func (r reader) enum(name exif.FieldName, table *Table) string {
	if v, ok := r.int(name); ok {
		return table.Label(v)
	}
	if s := r.text(name); s != "" {
		return table.Match(s)
	}
	return ""
}

// comment decodes a UserComment, which starts with an eight byte
// character code.
func (r reader) comment(name exif.FieldName) string {
	tag := r.tag(name)
	if tag == nil {
		return ""
	}
	return DecodeUserComment(tag.Val)
}

// utf16 decodes the little-endian UTF-16 used by the Windows XP tags.
func (r reader) utf16(name exif.FieldName) string {
	tag := r.tag(name)
	if tag == nil {
		return ""
	}
	return decodeUTF16LE(tag.Val)
}

// DecodeUserComment returns the text of a raw UserComment value.
func DecodeUserComment(raw []byte) string {
	if len(raw) < 8 {
		return cleanText(string(raw))
	}
	code, body := string(raw[:8]), raw[8:]
	switch {
	case strings.HasPrefix(code, "ASCII"):
		return cleanText(string(body))
	case strings.HasPrefix(code, "UNICODE"):
		if len(body) >= 2 && body[0] == 0 && body[1] != 0 {
			return decodeUTF16BE(body)
		}
		return decodeUTF16LE(body)
	case code == "\x00\x00\x00\x00\x00\x00\x00\x00":
		return cleanText(string(body))
	}
	// JIS and unknown encodings are not decoded.
	return ""
}

func decodeUTF16LE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])|uint16(b[i+1])<<8)
	}
	return cleanText(string(utf16.Decode(units)))
}

func decodeUTF16BE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return cleanText(string(utf16.Decode(units)))
}

// cleanText drops NUL padding and surrounding whitespace.
func cleanText(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}
