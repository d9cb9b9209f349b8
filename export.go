package sceimg

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ImageFormat selects the on-disk encoding for exported images.
type ImageFormat uint8

const (
	// FormatPNG writes PNG files. This is the default.
	FormatPNG ImageFormat = iota

	// FormatBMP writes uncompressed BMP files.
	FormatBMP

	// FormatTIFF writes uncompressed TIFF files.
	FormatTIFF
)

// ParseImageFormat maps a format name ("png", "bmp", "tiff") to an ImageFormat.
func ParseImageFormat(name string) (ImageFormat, error) {
	switch name {
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	default:
		return FormatPNG, fmt.Errorf("unknown image format %q", name)
	}
}

func (f ImageFormat) String() string {
	switch f {
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	default:
		return "png"
	}
}

// Ext returns the filename extension for the format, with a leading dot.
func (f ImageFormat) Ext() string {
	return "." + f.String()
}

func (f ImageFormat) encode(w io.Writer, img image.Image) error {
	switch f {
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, nil)
	default:
		return png.Encode(w, img)
	}
}

// exportImage writes a decoded image to outPath, creating any missing
// parent directories.
//
// The write is atomic (temp file + rename): re-running an extraction over
// identical inputs replaces outputs with byte-identical files and a failed
// encode never leaves a partial file behind. All failures wrap ErrWrite.
func exportImage(img image.Image, outPath string, format ImageFormat) error {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".sceimg-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()

	if err := format.encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: encode %s: %w", ErrWrite, format, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
