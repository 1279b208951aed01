// Package mediatypes maps image decoder formats to MIME types and file
// extensions.
//
// It has no dependencies beyond the standard library so that the media,
// source and classify packages can share it without import cycles.
//
//	mediatypes.MimeTypeForFormat("jpeg")  // "image/jpeg"
//	mediatypes.ExtensionForFormat("webp") // ".webp"
package mediatypes
