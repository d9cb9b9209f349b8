package sceimg

import (
	"fmt"
	"image"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// decodeFunc converts a record's decompressed bytes into an RGBA buffer.
//
// Dispatch is a closed table keyed by PixelFormat: supporting a new raw
// format is one new entry, not an open-ended type check.
type decodeFunc func(data []byte, rec *Record, pal Palette) (*image.NRGBA, error)

var decoders = map[PixelFormat]decodeFunc{
	PixelRGBA8:  decodeRGBA8,
	PixelGray8:  decodeGray8,
	PixelIndex8: decodeIndex8,
	PixelIndex4: decodeIndex4,
}

// Decode converts a record's raw payload bytes into an RGBA image.
//
// The palette must already be resolved (record override over manifest
// global); it is only consulted for indexed formats. Compressed records are
// decompressed first, and the byte count is checked against the record's
// declared geometry in either case. The returned image's dimensions always
// equal the record's Width and Height.
func Decode(data []byte, rec *Record, pal Palette) (*image.NRGBA, error) {
	format := rec.PixelFormat()
	fn, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, rec.Format)
	}

	want, ok := format.frameBytes(rec.Width, rec.Height)
	if !ok {
		return nil, ErrSizeOverflow
	}

	if rec.Zstd() {
		var err error
		if data, err = decompress(data, want); err != nil {
			return nil, err
		}
	}
	if len(data) != want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d %s (want %d)",
			ErrBadLength, len(data), rec.Width, rec.Height, rec.Format, want)
	}

	if format.indexed() && len(pal) == 0 {
		return nil, ErrPaletteMissing
	}
	return fn(data, rec, pal)
}

func decodeRGBA8(data []byte, rec *Record, _ Palette) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, rec.Width, rec.Height))
	copy(img.Pix, data)
	return img, nil
}

func decodeGray8(data []byte, rec *Record, _ Palette) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, rec.Width, rec.Height))
	for i, v := range data {
		img.Pix[i*4+0] = v
		img.Pix[i*4+1] = v
		img.Pix[i*4+2] = v
		img.Pix[i*4+3] = 0xff
	}
	return img, nil
}

func decodeIndex8(data []byte, rec *Record, pal Palette) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, rec.Width, rec.Height))
	for i, idx := range data {
		if int(idx) >= len(pal) {
			return nil, fmt.Errorf("%w: index %d at pixel %d (palette has %d entries)",
				ErrPaletteIndex, idx, i, len(pal))
		}
		c := pal[idx]
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
	}
	return img, nil
}

// decodeIndex4 unpacks two pixels per byte, high nibble first. Rows are
// padded to whole bytes, so each row starts on a byte boundary.
func decodeIndex4(data []byte, rec *Record, pal Palette) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, rec.Width, rec.Height))
	rowLen := (rec.Width + 1) / 2
	for y := 0; y < rec.Height; y++ {
		row := data[y*rowLen : (y+1)*rowLen]
		for x := 0; x < rec.Width; x++ {
			b := row[x/2]
			idx := b >> 4
			if x%2 == 1 {
				idx = b & 0x0f
			}
			if int(idx) >= len(pal) {
				return nil, fmt.Errorf("%w: index %d at pixel (%d, %d) (palette has %d entries)",
					ErrPaletteIndex, idx, x, y, len(pal))
			}
			c := pal[idx]
			o := img.PixOffset(x, y)
			img.Pix[o+0] = c.R
			img.Pix[o+1] = c.G
			img.Pix[o+2] = c.B
			img.Pix[o+3] = c.A
		}
	}
	return img, nil
}

// zstdDecoders pools decoders to avoid per-record allocation, mirroring the
// single-goroutine DecodeAll usage pattern.
var zstdDecoders = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil
		}
		return dec
	},
}

// decompress inflates zstd-compressed record bytes. sizeHint is the
// expected decompressed size and only pre-sizes the output buffer; the
// caller still validates the result length.
func decompress(data []byte, sizeHint int) ([]byte, error) {
	v := zstdDecoders.Get()
	if v == nil {
		return nil, fmt.Errorf("%w: decoder init failed", ErrDecompression)
	}
	dec := v.(*zstd.Decoder)
	defer zstdDecoders.Put(dec)

	out, err := dec.DecodeAll(data, make([]byte, 0, sizeHint))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	return out, nil
}

// cropCell cuts one grid cell out of a decoded sheet. Cell dimensions are
// the sheet size divided by the grid, rounded down, with any remainder
// pixels on the right and bottom edges dropped.
func cropCell(sheet *image.NRGBA, g *Grid) *image.NRGBA {
	bounds := sheet.Bounds()
	cw := bounds.Dx() / g.Columns
	ch := bounds.Dy() / g.Rows
	x0 := (g.Cell % g.Columns) * cw
	y0 := (g.Cell / g.Columns) * ch

	out := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		src := sheet.PixOffset(x0, y0+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+cw*4], sheet.Pix[src:src+cw*4])
	}
	return out
}
