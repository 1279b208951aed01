// Package media decodes and validates uploaded image bytes.
//
// Decode honors embedded EXIF orientation and rejects buffers that do not
// decode to a raster image with positive dimensions. Oversize images are
// downscaled to fit MaxImageDimension and MaxImagePixels so that every
// later derivation works on a bounded pixel buffer; libvips is used for the
// shrink when it has been initialized with InitVips.
package media
