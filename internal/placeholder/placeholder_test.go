package placeholder

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestEncodeDeterministic(t *testing.T) {
	img := solidImage(320, 200, color.RGBA{R: 200, G: 80, B: 40, A: 255})

	first, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if first == "" {
		t.Fatal("Encode() returned empty placeholder")
	}

	second, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if first != second {
		t.Errorf("Encode() not deterministic: %q != %q", first, second)
	}

	raw, err := Decode(first)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(raw) == 0 {
		t.Error("Decode() returned no bytes")
	}
}

func TestEncodeDistinguishesColors(t *testing.T) {
	red, err := Encode(solidImage(64, 64, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("Encode(red) error = %v", err)
	}
	blue, err := Encode(solidImage(64, 64, color.RGBA{B: 255, A: 255}))
	if err != nil {
		t.Fatalf("Encode(blue) error = %v", err)
	}
	if red == blue {
		t.Error("red and blue images produced the same placeholder")
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"zero size", image.NewRGBA(image.Rect(0, 0, 0, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.img); err == nil {
				t.Error("Encode() should fail")
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape shrinks", 400, 200, 100, 50},
		{"portrait shrinks", 150, 600, 25, 100},
		{"small kept", 50, 30, 50, 30},
		{"exact cap kept", 100, 100, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := prepare(solidImage(tt.width, tt.height, color.Gray{Y: 128}))
			if got := out.Bounds(); got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("prepare() = %dx%d, want %dx%d", got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode("not base64!"); err == nil {
		t.Error("Decode() should fail on invalid base64")
	}
}
