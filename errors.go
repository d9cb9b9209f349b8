package sceimg

import "errors"

// Sentinel errors.
var (
	// ErrMalformedManifest is returned when the manifest JSON is missing
	// required fields, has fields of the wrong type, or fails validation.
	// Manifest-level failures are fatal: no extraction is attempted.
	ErrMalformedManifest = errors.New("sceimg: malformed manifest")

	// ErrOutOfBounds is returned when a record's byte range extends past
	// the end of the payload.
	ErrOutOfBounds = errors.New("sceimg: record out of payload bounds")

	// ErrBadLength is returned when a record's byte count does not match
	// its declared geometry and pixel format.
	ErrBadLength = errors.New("sceimg: pixel data length mismatch")

	// ErrPaletteMissing is returned when an indexed record has neither a
	// record-level palette nor a manifest-level one.
	ErrPaletteMissing = errors.New("sceimg: palette required but not present")

	// ErrPaletteIndex is returned when a pixel references an index at or
	// past the end of the resolved palette.
	ErrPaletteIndex = errors.New("sceimg: palette index out of range")

	// ErrUnsupportedFormat is returned when a record declares a pixel
	// format code this package does not decode.
	ErrUnsupportedFormat = errors.New("sceimg: unsupported pixel format")

	// ErrDecompression is returned when decompressing a record's bytes fails.
	ErrDecompression = errors.New("sceimg: decompression failed")

	// ErrDigestMismatch is returned when the payload does not match the
	// digest declared in the manifest.
	ErrDigestMismatch = errors.New("sceimg: payload digest mismatch")

	// ErrWrite is returned when exporting a decoded image to disk fails.
	ErrWrite = errors.New("sceimg: write failed")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("sceimg: size overflow")
)
