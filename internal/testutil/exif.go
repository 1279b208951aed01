// Package testutil builds image fixtures for tests: gradient rasters and
// JPEGs carrying a synthesized EXIF block.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sort"
)

// TIFF tag ids used by the fixtures.
const (
	TagImageDescription  uint16 = 0x010E
	TagMake              uint16 = 0x010F
	TagModel             uint16 = 0x0110
	TagXResolution       uint16 = 0x011A
	TagYResolution       uint16 = 0x011B
	TagResolutionUnit    uint16 = 0x0128
	TagSoftware          uint16 = 0x0131
	TagDateTime          uint16 = 0x0132
	TagExposureTime      uint16 = 0x829A
	TagFNumber           uint16 = 0x829D
	TagExposureProgram   uint16 = 0x8822
	TagISO               uint16 = 0x8827
	TagDateTimeOriginal  uint16 = 0x9003
	TagShutterSpeedValue uint16 = 0x9201
	TagExposureBias      uint16 = 0x9204
	TagMeteringMode      uint16 = 0x9207
	TagFlash             uint16 = 0x9209
	TagFocalLength       uint16 = 0x920A
	TagUserComment       uint16 = 0x9286
	TagColorSpace        uint16 = 0xA001
	TagExposureMode      uint16 = 0xA402
	TagWhiteBalance      uint16 = 0xA403
	TagLensModel         uint16 = 0xA434
	TagXPKeywords        uint16 = 0x9C9E

	tagExifPointer uint16 = 0x8769
	tagGPSPointer  uint16 = 0x8825
)

// TIFF field types.
const (
	typeASCII     uint16 = 2
	typeShort     uint16 = 3
	typeLong      uint16 = 4
	typeRational  uint16 = 5
	typeUndefined uint16 = 7
	typeSRational uint16 = 10
)

var ifd0Tags = map[uint16]bool{
	TagImageDescription: true,
	TagMake:             true,
	TagModel:            true,
	TagXResolution:      true,
	TagYResolution:      true,
	TagResolutionUnit:   true,
	TagSoftware:         true,
	TagDateTime:         true,
	TagXPKeywords:       true,
}

var le = binary.LittleEndian

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// Exif accumulates tags and serializes them as a little-endian TIFF block.
type Exif struct {
	ifd0 []entry
	sub  []entry
	gps  []entry
}

// NewExif returns an empty builder.
func NewExif() *Exif {
	return &Exif{}
}

func (e *Exif) add(en entry) *Exif {
	if ifd0Tags[en.tag] {
		e.ifd0 = append(e.ifd0, en)
	} else {
		e.sub = append(e.sub, en)
	}
	return e
}

// ASCII adds a NUL-terminated ASCII tag.
func (e *Exif) ASCII(tag uint16, s string) *Exif {
	data := append([]byte(s), 0)
	return e.add(entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data})
}

// Short adds a SHORT tag.
func (e *Exif) Short(tag uint16, v uint16) *Exif {
	data := make([]byte, 2)
	le.PutUint16(data, v)
	return e.add(entry{tag: tag, typ: typeShort, count: 1, data: data})
}

// Rational adds an unsigned RATIONAL tag.
func (e *Exif) Rational(tag uint16, num, den uint32) *Exif {
	return e.add(entry{tag: tag, typ: typeRational, count: 1, data: rational(num, den)})
}

// SRational adds a signed RATIONAL tag.
func (e *Exif) SRational(tag uint16, num, den int32) *Exif {
	data := make([]byte, 8)
	le.PutUint32(data, uint32(num))
	le.PutUint32(data[4:], uint32(den))
	return e.add(entry{tag: tag, typ: typeSRational, count: 1, data: data})
}

// Undefined adds an UNDEFINED tag holding raw bytes.
func (e *Exif) Undefined(tag uint16, data []byte) *Exif {
	return e.add(entry{tag: tag, typ: typeUndefined, count: uint32(len(data)), data: data})
}

// GPS adds latitude and longitude in degrees. Values are stored as whole
// degrees, minutes and centi-seconds.
func (e *Exif) GPS(lat, lon float64) *Exif {
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef, lat = "S", -lat
	}
	if lon < 0 {
		lonRef, lon = "W", -lon
	}
	e.gps = append(e.gps,
		entry{tag: 0x0001, typ: typeASCII, count: 2, data: []byte{latRef[0], 0}},
		entry{tag: 0x0002, typ: typeRational, count: 3, data: dms(lat)},
		entry{tag: 0x0003, typ: typeASCII, count: 2, data: []byte{lonRef[0], 0}},
		entry{tag: 0x0004, typ: typeRational, count: 3, data: dms(lon)},
	)
	return e
}

func rational(num, den uint32) []byte {
	data := make([]byte, 8)
	le.PutUint32(data, num)
	le.PutUint32(data[4:], den)
	return data
}

func dms(v float64) []byte {
	deg := math.Floor(v)
	minutes := math.Floor((v - deg) * 60)
	seconds := ((v-deg)*60 - minutes) * 60
	var out []byte
	out = append(out, rational(uint32(deg), 1)...)
	out = append(out, rational(uint32(minutes), 1)...)
	out = append(out, rational(uint32(math.Round(seconds*100)), 100)...)
	return out
}

func pointer(tag uint16, offset uint32) entry {
	data := make([]byte, 4)
	le.PutUint32(data, offset)
	return entry{tag: tag, typ: typeLong, count: 1, data: data}
}

// layout serializes one IFD whose first byte sits at offset. Values larger
// than four bytes follow the entry table.
func layout(entries []entry, offset uint32) []byte {
	sorted := append([]entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].tag < sorted[j].tag })

	dataOffset := offset + 2 + uint32(len(sorted))*12 + 4
	var head, tail bytes.Buffer
	_ = binary.Write(&head, le, uint16(len(sorted)))
	for _, en := range sorted {
		_ = binary.Write(&head, le, en.tag)
		_ = binary.Write(&head, le, en.typ)
		_ = binary.Write(&head, le, en.count)
		if len(en.data) <= 4 {
			var inline [4]byte
			copy(inline[:], en.data)
			head.Write(inline[:])
			continue
		}
		_ = binary.Write(&head, le, dataOffset+uint32(tail.Len()))
		tail.Write(en.data)
		if tail.Len()%2 == 1 {
			tail.WriteByte(0)
		}
	}
	_ = binary.Write(&head, le, uint32(0))
	return append(head.Bytes(), tail.Bytes()...)
}

// TIFF returns the serialized TIFF block.
func (e *Exif) TIFF() []byte {
	ifd0 := func(exifOffset, gpsOffset uint32) []entry {
		out := append([]entry(nil), e.ifd0...)
		if len(e.sub) > 0 {
			out = append(out, pointer(tagExifPointer, exifOffset))
		}
		if len(e.gps) > 0 {
			out = append(out, pointer(tagGPSPointer, gpsOffset))
		}
		return out
	}

	// Pointer values are inline, so the IFD0 size does not depend on them.
	exifOffset := 8 + uint32(len(layout(ifd0(0, 0), 8)))
	var sub []byte
	if len(e.sub) > 0 {
		sub = layout(e.sub, exifOffset)
	}
	gpsOffset := exifOffset + uint32(len(sub))
	var gps []byte
	if len(e.gps) > 0 {
		gps = layout(e.gps, gpsOffset)
	}

	var buf bytes.Buffer
	buf.WriteString("II*\x00")
	_ = binary.Write(&buf, le, uint32(8))
	buf.Write(layout(ifd0(exifOffset, gpsOffset), 8))
	buf.Write(sub)
	buf.Write(gps)
	return buf.Bytes()
}

// JPEG encodes img and splices the EXIF block in as an APP1 segment.
func (e *Exif) JPEG(img image.Image) ([]byte, error) {
	plain, err := JPEG(img)
	if err != nil {
		return nil, err
	}
	payload := append([]byte("Exif\x00\x00"), e.TIFF()...)
	if len(payload)+2 > math.MaxUint16 {
		return nil, fmt.Errorf("exif block too large: %d bytes", len(payload))
	}

	var buf bytes.Buffer
	buf.Write(plain[:2]) // SOI
	buf.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write(plain[2:])
	return buf.Bytes(), nil
}

// JPEG encodes img at quality 90.
func JPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Gradient returns a w x h image shading from black to a warm tone along
// the x axis and to blue along the y axis.
func Gradient(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(x * 128 / max(w-1, 1)),
				B: uint8(y * 255 / max(h-1, 1)),
				A: 255,
			})
		}
	}
	return img
}

// SonyA7IV returns the EXIF block of a typical Sony A7 IV capture.
func SonyA7IV() *Exif {
	return NewExif().
		ASCII(TagMake, "Sony").
		ASCII(TagModel, "A7IV").
		Rational(TagFNumber, 18, 10).
		Short(TagISO, 400).
		Rational(TagExposureTime, 1, 250).
		Rational(TagFocalLength, 85, 1).
		ASCII(TagDateTimeOriginal, "2024:03:15 14:30:00")
}
