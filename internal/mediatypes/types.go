package mediatypes

import "strings"

// DefaultMimeType is used for unrecognized formats.
const DefaultMimeType = "application/octet-stream"

// Format is an image decoder name as reported by image.DecodeConfig.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

type formatInfo struct {
	mimeType  string
	extension string
}

var formats = map[Format]formatInfo{
	FormatJPEG: {"image/jpeg", ".jpg"},
	FormatPNG:  {"image/png", ".png"},
	FormatGIF:  {"image/gif", ".gif"},
	FormatWebP: {"image/webp", ".webp"},
	FormatBMP:  {"image/bmp", ".bmp"},
	FormatTIFF: {"image/tiff", ".tiff"},
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// MimeTypeForFormat returns the MIME type for a decoder format name.
func MimeTypeForFormat(format string) string {
	if info, ok := formats[Format(strings.ToLower(format))]; ok {
		return info.mimeType
	}
	return DefaultMimeType
}

// ExtensionForFormat returns the canonical file extension (with leading dot)
// for a decoder format name, or ".bin" when unknown.
func ExtensionForFormat(format string) string {
	if info, ok := formats[Format(strings.ToLower(format))]; ok {
		return info.extension
	}
	return ".bin"
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should include the leading dot (e.g., ".jpg").
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return DefaultMimeType
}

// IsImageMimeType reports whether mimeType names a supported image format.
func IsImageMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	for _, info := range formats {
		if info.mimeType == mimeType {
			return true
		}
	}
	return false
}
