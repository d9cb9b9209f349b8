package sceimg

import (
	"encoding/json"
	"fmt"
	"image/color"
)

// Palette is an ordered list of colors referenced by indexed pixel formats.
//
// In manifest JSON a palette is an array of [r, g, b, a] tuples with
// components in 0..255. Three-component [r, g, b] tuples are accepted and
// treated as opaque.
type Palette []color.NRGBA

// UnmarshalJSON implements json.Unmarshaler.
func (p *Palette) UnmarshalJSON(data []byte) error {
	var tuples [][]uint8
	if err := json.Unmarshal(data, &tuples); err != nil {
		return fmt.Errorf("palette: %w", err)
	}
	out := make(Palette, len(tuples))
	for i, t := range tuples {
		switch len(t) {
		case 4:
			out[i] = color.NRGBA{R: t[0], G: t[1], B: t[2], A: t[3]}
		case 3:
			out[i] = color.NRGBA{R: t[0], G: t[1], B: t[2], A: 0xff}
		default:
			return fmt.Errorf("palette: entry %d has %d components, want 3 or 4", i, len(t))
		}
	}
	*p = out
	return nil
}

// MarshalJSON implements json.Marshaler, emitting [r, g, b, a] tuples.
func (p Palette) MarshalJSON() ([]byte, error) {
	tuples := make([][4]uint8, len(p))
	for i, c := range p {
		tuples[i] = [4]uint8{c.R, c.G, c.B, c.A}
	}
	return json.Marshal(tuples)
}

// resolvePalette returns the palette in effect for a record: the record's
// own palette when present, otherwise the manifest's global palette. A nil
// result means no palette is available.
func resolvePalette(m *Manifest, rec *Record) Palette {
	if len(rec.Palette) > 0 {
		return rec.Palette
	}
	return m.Palette
}
