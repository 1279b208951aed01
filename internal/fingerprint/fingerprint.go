// Package fingerprint computes exact and perceptual content fingerprints.
//
// The exact fingerprint is a hex SHA-256 digest of the raw bytes. The
// perceptual fingerprint is a 64-bit average hash of the decoded image,
// rendered as 16 lowercase hex digits in raster order, for consumers that
// compare images by Hamming distance.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/corona10/goimagehash"
)

// PerceptualHashLength is the number of hex digits in a perceptual hash.
const PerceptualHashLength = 16

// ErrNilImage is returned when no decoded image is available to hash.
var ErrNilImage = errors.New("nil image")

// ContentHash returns the hex-encoded SHA-256 digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PerceptualHash returns the average hash of img. img is expected to be
// decoded with orientation already applied.
func PerceptualHash(img image.Image) (string, error) {
	if img == nil {
		return "", ErrNilImage
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return "", fmt.Errorf("cannot hash empty image %v", b)
	}

	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", fmt.Errorf("average hash: %w", err)
	}
	return FormatHash(hash.GetHash()), nil
}

// FormatHash renders a 64-bit hash as 16 lowercase hex digits.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// ParseHash parses a perceptual hash produced by FormatHash.
func ParseHash(s string) (uint64, error) {
	if len(s) != PerceptualHashLength {
		return 0, fmt.Errorf("perceptual hash %q: want %d hex digits", s, PerceptualHashLength)
	}
	h, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("perceptual hash %q: %w", s, err)
	}
	return h, nil
}

// Distance returns the number of differing bits between two perceptual
// hashes.
func Distance(a, b string) (int, error) {
	ha, err := ParseHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := ParseHash(b)
	if err != nil {
		return 0, err
	}
	return goimagehash.NewImageHash(ha, goimagehash.AHash).Distance(goimagehash.NewImageHash(hb, goimagehash.AHash))
}
