package database

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Status is the processing state of an asset.
type Status string

const (
	// StatusProcessing is set while raw bytes are being derived.
	StatusProcessing Status = "processing"
	// StatusCompleted is set once the fused record has been persisted.
	StatusCompleted Status = "completed"
	// StatusFailed is set when validation or persistence failed.
	StatusFailed Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// HistogramBins is the number of intensity levels per channel.
const HistogramBins = 256

// Histogram holds per-channel intensity counts.
type Histogram struct {
	R []uint32 `json:"r"`
	G []uint32 `json:"g"`
	B []uint32 `json:"b"`
	L []uint32 `json:"l"`
}

// Metadata is the extended metadata object stored as a JSON blob. Every
// optional key uses omitempty so that absent values round-trip as absent.
// The curated fields are also projected onto flattened columns at write time.
type Metadata struct {
	// Curated fields, mirrored in flattened columns.
	Camera       string   `json:"camera,omitempty"`
	Lens         string   `json:"lens,omitempty"`
	Aperture     string   `json:"aperture,omitempty"`
	FocalLength  string   `json:"focalLength,omitempty"`
	ISO          string   `json:"iso,omitempty"`
	ShutterSpeed string   `json:"shutterSpeed,omitempty"`
	CaptureTime  string   `json:"captureTime,omitempty"`
	Location     string   `json:"location,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Genre        string   `json:"genre,omitempty"`

	// Exposure and file details.
	ExposureBias    string `json:"exposureBias,omitempty"`
	ExposureProgram string `json:"exposureProgram,omitempty"`
	ExposureMode    string `json:"exposureMode,omitempty"`
	MeteringMode    string `json:"meteringMode,omitempty"`
	WhiteBalance    string `json:"whiteBalance,omitempty"`
	Flash           string `json:"flash,omitempty"`
	ColorSpace      string `json:"colorSpace,omitempty"`
	XResolution     string `json:"xResolution,omitempty"`
	YResolution     string `json:"yResolution,omitempty"`
	ResolutionUnit  string `json:"resolutionUnit,omitempty"`
	Software        string `json:"software,omitempty"`
	Notes           string `json:"notes,omitempty"`
	Keywords        string `json:"keywords,omitempty"`

	// Content-derived fields.
	FileSize       *int64     `json:"fileSize,omitempty"`
	ContentHash    string     `json:"contentHash,omitempty"`
	PerceptualHash string     `json:"perceptualHash,omitempty"`
	Placeholder    string     `json:"placeholder,omitempty"`
	Histogram      *Histogram `json:"histogram,omitempty"`

	// Pipeline-owned fields.
	Status        Status `json:"status,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Asset is a persisted media record.
type Asset struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Metadata    Metadata  `json:"metadata"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Columns is the flattened, queryable projection of Metadata.
type Columns struct {
	Camera         string
	Lens           string
	Aperture       string
	FocalLength    string
	ISO            string
	ShutterSpeed   string
	CaptureTime    string
	Location       string
	Latitude       *float64
	Longitude      *float64
	Genre          string
	ContentHash    string
	PerceptualHash string
	Status         Status
}

// ColumnsOf projects m onto its flattened columns.
func ColumnsOf(m Metadata) Columns {
	return Columns{
		Camera:         m.Camera,
		Lens:           m.Lens,
		Aperture:       m.Aperture,
		FocalLength:    m.FocalLength,
		ISO:            m.ISO,
		ShutterSpeed:   m.ShutterSpeed,
		CaptureTime:    m.CaptureTime,
		Location:       m.Location,
		Latitude:       m.Latitude,
		Longitude:      m.Longitude,
		Genre:          m.Genre,
		ContentHash:    m.ContentHash,
		PerceptualHash: m.PerceptualHash,
		Status:         m.Status,
	}
}

// IsBlank reports whether a string field counts as empty.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsNullFloat reports whether a numeric field counts as empty.
func IsNullFloat(f *float64) bool {
	return f == nil || math.IsNaN(*f)
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}

// Int64 returns a pointer to n.
func Int64(n int64) *int64 {
	return &n
}

// Edit is a human edit of curated fields. Nil pointers leave the field
// untouched; a pointer to an empty string clears it. Coordinates are
// cleared by an explicit JSON null, which sets ClearLatitude or
// ClearLongitude.
type Edit struct {
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Camera       *string  `json:"camera,omitempty"`
	Lens         *string  `json:"lens,omitempty"`
	Aperture     *string  `json:"aperture,omitempty"`
	FocalLength  *string  `json:"focalLength,omitempty"`
	ISO          *string  `json:"iso,omitempty"`
	ShutterSpeed *string  `json:"shutterSpeed,omitempty"`
	CaptureTime  *string  `json:"captureTime,omitempty"`
	Location     *string  `json:"location,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Genre        *string  `json:"genre,omitempty"`
	Notes        *string  `json:"notes,omitempty"`

	ClearLatitude  bool `json:"-"`
	ClearLongitude bool `json:"-"`
}

// UnmarshalJSON decodes an edit, rejecting unknown fields, and records
// which coordinates were sent as null.
func (e *Edit) UnmarshalJSON(data []byte) error {
	type plain Edit
	var p plain
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ClearLatitude = isNull(raw, "latitude")
	p.ClearLongitude = isNull(raw, "longitude")
	*e = Edit(p)
	return nil
}

func isNull(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// Apply writes the edit onto a.
func (e Edit) Apply(a *Asset) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&a.Title, e.Title)
	set(&a.Description, e.Description)
	m := &a.Metadata
	set(&m.Camera, e.Camera)
	set(&m.Lens, e.Lens)
	set(&m.Aperture, e.Aperture)
	set(&m.FocalLength, e.FocalLength)
	set(&m.ISO, e.ISO)
	set(&m.ShutterSpeed, e.ShutterSpeed)
	set(&m.CaptureTime, e.CaptureTime)
	set(&m.Location, e.Location)
	set(&m.Genre, e.Genre)
	set(&m.Notes, e.Notes)
	switch {
	case e.ClearLatitude:
		m.Latitude = nil
	case e.Latitude != nil:
		m.Latitude = Float(*e.Latitude)
	}
	switch {
	case e.ClearLongitude:
		m.Longitude = nil
	case e.Longitude != nil:
		m.Longitude = Float(*e.Longitude)
	}
}

// StatusCounts maps each status to its number of assets.
type StatusCounts map[Status]int
