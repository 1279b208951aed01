// Package placeholder encodes a small blurred preview of an image that a
// client can render before the full image has loaded.
package placeholder

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/galdor/go-thumbhash"
)

// MaxDimension is the longest side the image is reduced to before encoding.
const MaxDimension = 100

// ErrEmptyImage is returned when there are no pixels to encode.
var ErrEmptyImage = errors.New("empty image")

// Encode returns the base64 ThumbHash of img. img must already be oriented.
// Images larger than MaxDimension are reduced preserving aspect ratio;
// smaller ones are encoded at their own size.
func Encode(img image.Image) (string, error) {
	if img == nil {
		return "", ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", fmt.Errorf("%w: %v", ErrEmptyImage, b)
	}

	hash := thumbhash.EncodeImage(prepare(img))
	if len(hash) == 0 {
		return "", errors.New("thumbhash produced no output")
	}
	return base64.StdEncoding.EncodeToString(hash), nil
}

// prepare fits img within MaxDimension and returns it as NRGBA so the
// encoder always sees an alpha channel.
func prepare(img image.Image) *image.NRGBA {
	// imaging.Fit never upscales and always returns NRGBA.
	return imaging.Fit(img, MaxDimension, MaxDimension, imaging.Box)
}

// Decode returns the raw ThumbHash bytes of an encoded placeholder.
func Decode(s string) ([]byte, error) {
	hash, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode placeholder: %w", err)
	}
	return hash, nil
}
