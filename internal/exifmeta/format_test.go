package exifmeta

import (
	"math"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestFormatAperture(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.8, "f/2.8"},
		{1.8, "f/1.8"},
		{16, "f/16.0"},
		{0, ""},
		{-2, ""},
		{math.NaN(), ""},
	}

	for _, tt := range tests {
		if got := FormatAperture(tt.in); got != tt.want {
			t.Errorf("FormatAperture(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatShutterSpeed(t *testing.T) {
	tests := []struct {
		name     string
		exposure *float64
		apex     *float64
		want     string
	}{
		{"fast", f64(0.004), nil, "1/250s"},
		{"eighth", f64(0.125), nil, "1/8s"},
		{"one second", f64(1), nil, "1.00s"},
		{"long", f64(2.5), nil, "2.50s"},
		{"exposure wins over apex", f64(0.01), f64(8), "1/100s"},
		{"apex fallback", nil, f64(8), "1/256s"},
		{"apex long", nil, f64(-1), "2.00s"},
		{"zero exposure uses apex", f64(0), f64(5), "1/32s"},
		{"absent", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatShutterSpeed(tt.exposure, tt.apex); got != tt.want {
				t.Errorf("FormatShutterSpeed() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatFocalLength(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{50, "50mm"},
		{23.6, "24mm"},
		{0, ""},
		{-35, ""},
	}

	for _, tt := range tests {
		if got := FormatFocalLength(tt.in); got != tt.want {
			t.Errorf("FormatFocalLength(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatExposureBias(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{-0.33, "-0.3 EV"},
		{0.67, "+0.7 EV"},
		{1, "+1.0 EV"},
		{-2, "-2.0 EV"},
		{0, "0.0 EV"},
		{-0.04, "0.0 EV"},
	}

	for _, tt := range tests {
		if got := FormatExposureBias(tt.in); got != tt.want {
			t.Errorf("FormatExposureBias(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeExposureBias(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"-0.33", "-0.3 EV"},
		{"-1/3", "-0.3 EV"},
		{"+2/3 EV", "+0.7 EV"},
		{"  bracketed  ", "bracketed"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeExposureBias(tt.in); got != tt.want {
			t.Errorf("NormalizeExposureBias(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColorSpaceAndResolutionUnit(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"srgb", FormatColorSpace(1), "sRGB"},
		{"uncalibrated", FormatColorSpace(65535), "Uncalibrated"},
		{"other space", FormatColorSpace(2), "2"},
		{"space text", NormalizeColorSpace(" Adobe RGB "), "Adobe RGB"},
		{"space numeric text", NormalizeColorSpace("1"), "sRGB"},
		{"inch", FormatResolutionUnit(2), "Pixels/Inch"},
		{"centimeter", FormatResolutionUnit(3), "Pixels/Centimeter"},
		{"other unit", FormatResolutionUnit(1), "1"},
		{"unit text", NormalizeResolutionUnit("dpi"), "dpi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestFormatResolution(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{72, "72"},
		{300, "300"},
		{72.5, "72.5"},
		{71.999, "72"},
		{96.123, "96.12"},
		{0.1, "0.1"},
	}

	for _, tt := range tests {
		if got := FormatResolution(tt.in); got != tt.want {
			t.Errorf("FormatResolution(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCaptureTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024:03:15 14:30:00", "2024-03-15T14:30:00Z"},
		{"2024:03:15 14:30:00\x00", "2024-03-15T14:30:00Z"},
		{"2024-03-15T14:30:00+02:00", "2024-03-15T12:30:00Z"},
		{"2024-03-15 14:30:00", "2024-03-15T14:30:00Z"},
		{"2024-03-15", "2024-03-15T00:00:00Z"},
		{"0000:00:00 00:00:00", ""},
		{"2024:13:45 99:00:00", ""},
		{"yesterday", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FormatCaptureTime(tt.in); got != tt.want {
			t.Errorf("FormatCaptureTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatLocation(t *testing.T) {
	if got := FormatLocation(f64(37.5), f64(-122.25)); got != "37.500000, -122.250000" {
		t.Errorf("FormatLocation() = %q", got)
	}
	if got := FormatLocation(f64(37.5), nil); got != "" {
		t.Errorf("FormatLocation() with missing longitude = %q, want empty", got)
	}
	if got := FormatLocation(f64(math.NaN()), f64(1)); got != "" {
		t.Errorf("FormatLocation() with NaN = %q, want empty", got)
	}
}
