package exifmeta

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// exifTimeLayout is the EXIF 2.3 date format.
const exifTimeLayout = "2006:01:02 15:04:05"

// captureTimeLayouts are tried in order when parsing a capture time.
var captureTimeLayouts = []string{
	exifTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02",
	"2006-01-02",
}

// FormatAperture renders an f-number as "f/2.8".
func FormatAperture(fNumber float64) string {
	if !(fNumber > 0) || math.IsInf(fNumber, 0) {
		return ""
	}
	return fmt.Sprintf("f/%.1f", fNumber)
}

// FormatShutterSpeed renders an exposure time in seconds. Sub-second times
// render as a reciprocal ("1/250s"), longer ones with two decimals. When no
// usable exposure time is given the APEX shutter-speed value is converted
// with 2^-value instead.
func FormatShutterSpeed(exposureTime, apex *float64) string {
	if exposureTime != nil && *exposureTime > 0 && !math.IsInf(*exposureTime, 0) {
		return formatSeconds(*exposureTime)
	}
	if apex != nil && !math.IsNaN(*apex) && !math.IsInf(*apex, 0) {
		if t := math.Pow(2, -*apex); t > 0 && !math.IsInf(t, 0) {
			return formatSeconds(t)
		}
	}
	return ""
}

func formatSeconds(t float64) string {
	if t < 1 {
		return fmt.Sprintf("1/%ds", int64(math.Round(1/t)))
	}
	return fmt.Sprintf("%.2fs", t)
}

// FormatFocalLength renders a focal length in whole millimeters.
func FormatFocalLength(mm float64) string {
	if !(mm > 0) || math.IsInf(mm, 0) {
		return ""
	}
	return fmt.Sprintf("%dmm", int64(math.Round(mm)))
}

// FormatExposureBias renders a compensation value rounded to the nearest
// tenth, e.g. "+0.7 EV" or "-0.3 EV". Zero has no sign.
func FormatExposureBias(ev float64) string {
	if math.IsNaN(ev) || math.IsInf(ev, 0) {
		return ""
	}
	r := math.Round(ev*10) / 10
	switch {
	case r > 0:
		return fmt.Sprintf("+%.1f EV", r)
	case r < 0:
		return fmt.Sprintf("-%.1f EV", -r)
	}
	return "0.0 EV"
}

// NormalizeExposureBias formats numeric text (optionally a fraction such
// as "-1/3" or with an "EV" suffix) and passes anything else through
// trimmed.
func NormalizeExposureBias(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	num := strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "EV"), "ev"))
	if v, ok := parseNumber(num); ok {
		return FormatExposureBias(v)
	}
	return s
}

// parseNumber parses a decimal or a "p/q" fraction.
func parseNumber(s string) (float64, bool) {
	if p, q, ok := strings.Cut(s, "/"); ok {
		num, err1 := strconv.ParseFloat(strings.TrimSpace(p), 64)
		den, err2 := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatColorSpace maps the ColorSpace tag.
func FormatColorSpace(code int) string {
	switch code {
	case 1:
		return "sRGB"
	case 65535:
		return "Uncalibrated"
	}
	return strconv.Itoa(code)
}

// NormalizeColorSpace maps numeric text and passes other text through.
func NormalizeColorSpace(s string) string {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		return FormatColorSpace(code)
	}
	return s
}

// FormatResolution renders integers as-is and anything else with at most
// two decimals.
func FormatResolution(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// FormatResolutionUnit maps the ResolutionUnit tag.
func FormatResolutionUnit(code int) string {
	switch code {
	case 2:
		return "Pixels/Inch"
	case 3:
		return "Pixels/Centimeter"
	}
	return strconv.Itoa(code)
}

// NormalizeResolutionUnit maps numeric text and passes other text through.
func NormalizeResolutionUnit(s string) string {
	s = strings.TrimSpace(s)
	if code, err := strconv.Atoi(s); err == nil {
		return FormatResolutionUnit(code)
	}
	return s
}

// ParseCaptureTime parses EXIF and ISO style timestamps. Times without a
// zone are taken as UTC.
func ParseCaptureTime(s string) (time.Time, bool) {
	s = cleanText(s)
	if s == "" || strings.HasPrefix(s, "0000") {
		return time.Time{}, false
	}
	for _, layout := range captureTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatCaptureTime returns s as an RFC 3339 UTC timestamp, or "" when it
// is not a valid date.
func FormatCaptureTime(s string) string {
	t, ok := ParseCaptureTime(s)
	if !ok {
		return ""
	}
	return t.Format(time.RFC3339)
}

// FormatLocation renders a coordinate pair with six decimals. Both values
// are required.
func FormatLocation(lat, lon *float64) string {
	if lat == nil || lon == nil || math.IsNaN(*lat) || math.IsNaN(*lon) {
		return ""
	}
	return fmt.Sprintf("%.6f, %.6f", *lat, *lon)
}
