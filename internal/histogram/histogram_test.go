package histogram

import (
	"image"
	"image/color"
	"testing"

	"media-ingest/internal/database"
)

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestComputeSolidColor(t *testing.T) {
	h := Compute(fill(10, 10, color.NRGBA{R: 255, A: 255}))
	if h == nil {
		t.Fatal("Compute() returned nil")
	}

	for name, bins := range map[string][]uint32{"r": h.R, "g": h.G, "b": h.B, "l": h.L} {
		if len(bins) != database.HistogramBins {
			t.Errorf("%s has %d bins, want %d", name, len(bins), database.HistogramBins)
		}
	}

	checks := []struct {
		name string
		bins []uint32
		idx  int
	}{
		{"red at 255", h.R, 255},
		{"green at 0", h.G, 0},
		{"blue at 0", h.B, 0},
		{"luminance at 76", h.L, 76},
	}
	for _, c := range checks {
		if c.bins[c.idx] != 100 {
			t.Errorf("%s: count = %d, want 100", c.name, c.bins[c.idx])
		}
	}
}

func TestComputeTwoTone(t *testing.T) {
	img := fill(4, 2, color.NRGBA{A: 255})
	for x := 0; x < 4; x++ {
		img.SetNRGBA(x, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	}

	h := Compute(img)
	if h.L[0] != 4 || h.L[255] != 4 {
		t.Errorf("luminance L[0]=%d L[255]=%d, want 4 and 4", h.L[0], h.L[255])
	}
	if Total(h) != 8 {
		t.Errorf("Total() = %d, want 8", Total(h))
	}
}

func TestComputeDownsamplesLargeImages(t *testing.T) {
	h := Compute(fill(1024, 512, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	if got, want := Total(h), uint64(512*256); got != want {
		t.Errorf("Total() = %d, want %d", got, want)
	}
	if h.R[10] != uint32(512*256) {
		t.Errorf("R[10] = %d, want every sample", h.R[10])
	}
}

func TestComputeEmpty(t *testing.T) {
	if Compute(nil) != nil {
		t.Error("Compute(nil) should be nil")
	}
	if Compute(image.NewNRGBA(image.Rect(0, 0, 0, 5))) != nil {
		t.Error("Compute(empty) should be nil")
	}
	if Total(nil) != 0 {
		t.Error("Total(nil) should be 0")
	}
}

func TestLuminance(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint8
	}{
		{0, 0, 0, 0},
		{255, 255, 255, 255},
		{255, 0, 0, 76},
		{0, 255, 0, 150},
		{0, 0, 255, 29},
		{128, 128, 128, 128},
	}

	for _, tt := range tests {
		if got := Luminance(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("Luminance(%d, %d, %d) = %d, want %d", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}
