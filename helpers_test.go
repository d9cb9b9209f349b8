package sceimg

import (
	"bytes"
	"encoding/json"
	"image/color"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// rgbaBytes builds a deterministic width×height RGBA pixel buffer.
func rgbaBytes(width, height int) []byte {
	data := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		data[i*4+0] = byte(i)
		data[i*4+1] = byte(i >> 8)
		data[i*4+2] = byte(i * 7)
		data[i*4+3] = 0xff
	}
	return data
}

// grayPalette builds a palette of n distinct opaque gray levels.
func grayPalette(n int) Palette {
	pal := make(Palette, n)
	for i := range pal {
		v := byte(i * 255 / max(n-1, 1))
		pal[i] = color.NRGBA{R: v, G: v, B: v, A: 0xff}
	}
	return pal
}

func compressData(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write(data)
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

// loadManifest marshals a Manifest value and round-trips it through
// LoadManifest, exercising the JSON schema on every test manifest.
func loadManifest(t *testing.T, m Manifest) (*Manifest, error) {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return LoadManifest(data)
}

// newTestArchive builds an archive over an in-memory payload.
func newTestArchive(t *testing.T, m Manifest, payload []byte) *Archive {
	t.Helper()
	loaded, err := loadManifest(t, m)
	require.NoError(t, err)
	archive, err := New(loaded, bytes.NewReader(payload))
	require.NoError(t, err)
	return archive
}
