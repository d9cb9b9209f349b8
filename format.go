package sceimg

import "github.com/North101/sce-image-extractor/internal/sizing"

// PixelFormat identifies how a record's raw bytes encode pixels.
type PixelFormat uint8

const (
	// PixelUnknown is any format code this package does not decode.
	PixelUnknown PixelFormat = iota

	// PixelRGBA8 stores each pixel as 4 bytes, R G B A, row-major.
	PixelRGBA8

	// PixelGray8 stores each pixel as 1 byte, expanded to opaque R=G=B.
	PixelGray8

	// PixelIndex8 stores each pixel as 1 byte indexing into a palette.
	PixelIndex8

	// PixelIndex4 stores two pixels per byte, high nibble first, indexing
	// into a palette. Rows are padded to whole bytes.
	PixelIndex4
)

// Stable manifest codes for pixel formats. These strings are part of the
// manifest schema and must not change.
const (
	codeRGBA8  = "rgba8"
	codeGray8  = "gray8"
	codeIndex8 = "index8"
	codeIndex4 = "index4"
)

// ParsePixelFormat maps a manifest format code to a PixelFormat.
// Unknown codes return PixelUnknown; they are rejected at decode time, not
// load time, so one bad record cannot abort the rest of a run.
func ParsePixelFormat(code string) PixelFormat {
	switch code {
	case codeRGBA8:
		return PixelRGBA8
	case codeGray8:
		return PixelGray8
	case codeIndex8:
		return PixelIndex8
	case codeIndex4:
		return PixelIndex4
	default:
		return PixelUnknown
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelRGBA8:
		return codeRGBA8
	case PixelGray8:
		return codeGray8
	case PixelIndex8:
		return codeIndex8
	case PixelIndex4:
		return codeIndex4
	default:
		return "unknown"
	}
}

// indexed reports whether the format requires a palette.
func (f PixelFormat) indexed() bool {
	return f == PixelIndex8 || f == PixelIndex4
}

// rowBytes returns the number of payload bytes covering one row of the
// given width. ok is false for PixelUnknown and on arithmetic overflow.
func (f PixelFormat) rowBytes(width int) (n int, ok bool) {
	switch f {
	case PixelRGBA8:
		return sizing.MulInt(width, 4)
	case PixelGray8, PixelIndex8:
		return width, true
	case PixelIndex4:
		return (width + 1) / 2, true
	default:
		return 0, false
	}
}

// frameBytes returns the exact number of decoded payload bytes a
// width×height frame occupies. ok is false for PixelUnknown and on
// arithmetic overflow.
func (f PixelFormat) frameBytes(width, height int) (n int, ok bool) {
	row, ok := f.rowBytes(width)
	if !ok {
		return 0, false
	}
	return sizing.MulInt(row, height)
}
