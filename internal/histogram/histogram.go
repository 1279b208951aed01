// Package histogram computes per-channel and luminance intensity
// distributions of decoded images.
package histogram

import (
	"image"
	"math"

	"media-ingest/internal/database"

	"github.com/disintegration/imaging"
)

// MaxDimension bounds the longest side of the image that is sampled.
// Larger images are reduced first; the distribution shape is preserved.
const MaxDimension = 512

// Luminance weights (ITU-R BT.601).
const (
	weightR = 0.299
	weightG = 0.587
	weightB = 0.114
)

// Compute returns the histogram of img, or nil when img has no pixels.
// Transparent pixels are counted by their color channels like any other.
func Compute(img image.Image) *database.Histogram {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil
	}

	var src *image.NRGBA
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		src = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Box)
	} else {
		src = imaging.Clone(img)
	}

	h := &database.Histogram{
		R: make([]uint32, database.HistogramBins),
		G: make([]uint32, database.HistogramBins),
		B: make([]uint32, database.HistogramBins),
		L: make([]uint32, database.HistogramBins),
	}

	sb := src.Bounds()
	for y := 0; y < sb.Dy(); y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+sb.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			r, g, bl := row[i], row[i+1], row[i+2]
			h.R[r]++
			h.G[g]++
			h.B[bl]++
			h.L[Luminance(r, g, bl)]++
		}
	}
	return h
}

// Luminance returns the weighted intensity of an RGB triple.
func Luminance(r, g, b uint8) uint8 {
	l := math.Round(weightR*float64(r) + weightG*float64(g) + weightB*float64(b))
	if l > 255 {
		l = 255
	}
	return uint8(l)
}

// Total returns the number of pixels counted in h.
func Total(h *database.Histogram) uint64 {
	if h == nil {
		return 0
	}
	var n uint64
	for _, c := range h.L {
		n += uint64(c)
	}
	return n
}
