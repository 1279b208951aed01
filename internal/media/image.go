package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"media-ingest/internal/logging"
	"media-ingest/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height we'll process
	// Images larger than this will be downscaled first
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels (width * height) we'll process
	MaxImagePixels = 20_000_000 // ~20MP, uses ~80MB in RGBA
)

// ErrInvalidImage is returned when bytes do not decode to a usable raster image.
var ErrInvalidImage = errors.New("invalid image")

// Decoded is a validated, orientation-corrected image.
type Decoded struct {
	// Image holds the pixels, downscaled if the original exceeded the limits.
	Image image.Image
	// Width and Height are the oriented dimensions of the original image.
	Width  int
	Height int
	// Format is the decoder name reported by image.DecodeConfig ("jpeg", "png", ...).
	Format string
}

// Decode validates and decodes data using the default size limits.
func Decode(data []byte) (*Decoded, error) {
	return DecodeConstrained(data, MaxImageDimension, MaxImagePixels)
}

// DecodeConstrained validates and decodes data, downscaling the pixels if
// they exceed maxDimension on either side or maxPixels in total.
func DecodeConstrained(data []byte, maxDimension, maxPixels int) (*Decoded, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidImage)
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimensions %dx%d", ErrInvalidImage, config.Width, config.Height)
	}

	targetWidth, targetHeight, constrain := ConstrainedSize(config.Width, config.Height, maxDimension, maxPixels)

	if constrain && IsVipsAvailable() {
		decoded, err := decodeWithVips(data, targetWidth, targetHeight)
		if err == nil {
			decoded.Format = format
			metrics.DecodeTotal.WithLabelValues(format, "vips").Inc()
			return decoded, nil
		}
		logging.Warn("vips decode failed, falling back to imaging: %v", err)
	}

	start := time.Now()
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	metrics.DecodeTotal.WithLabelValues(format, "imaging").Inc()

	bounds := img.Bounds()
	decoded := &Decoded{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}
	if decoded.Width <= 0 || decoded.Height <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimensions %dx%d", ErrInvalidImage, decoded.Width, decoded.Height)
	}

	if constrain {
		// Orientation may have swapped the axes since DecodeConfig.
		tw, th, _ := ConstrainedSize(decoded.Width, decoded.Height, maxDimension, maxPixels)
		logging.Info("Constraining large image from %dx%d to %dx%d", decoded.Width, decoded.Height, tw, th)
		decoded.Image = imaging.Resize(img, tw, th, imaging.Lanczos)
	}

	logging.Debug("Decoded %s image %dx%d in %v", format, decoded.Width, decoded.Height, time.Since(start))
	return decoded, nil
}

// ConstrainedSize returns the dimensions an image of width x height should
// be downscaled to, and whether downscaling is needed at all.
func ConstrainedSize(width, height, maxDimension, maxPixels int) (int, int, bool) {
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return width, height, false
	}

	targetWidth, targetHeight := width, height

	// First, constrain by max dimension
	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}

	// Then, constrain by total pixels if still too large
	if targetPixels := targetWidth * targetHeight; targetPixels > maxPixels {
		scale := float64(maxPixels) / float64(targetPixels)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}
	return targetWidth, targetHeight, true
}
