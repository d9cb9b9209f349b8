package sceimg

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/image/bmp"
)

func testImage(t *testing.T) *image.NRGBA {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	copy(img.Pix, rgbaBytes(4, 3))
	return img
}

func TestExportImage_CreatesParentDirs(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "a", "b", "out.png")
	require.NoError(t, exportImage(testImage(t), outPath, FormatPNG))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dx())
	assert.Equal(t, 3, decoded.Bounds().Dy())
}

func TestExportImage_BMP(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "out.bmp")
	require.NoError(t, exportImage(testImage(t), outPath, FormatBMP))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := bmp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dx())
}

func TestExportImage_Idempotent(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, exportImage(testImage(t), outPath, FormatPNG))
	first, err := os.ReadFile(outPath)
	require.NoError(t, err)

	require.NoError(t, exportImage(testImage(t), outPath, FormatPNG))
	second, err := os.ReadFile(outPath)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-export produces byte-identical output")
}

func TestExportImage_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, exportImage(testImage(t), filepath.Join(dir, "out.png"), FormatPNG))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.png", entries[0].Name())
}

func TestExportImage_UnwritableDir(t *testing.T) {
	t.Parallel()

	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	err := exportImage(testImage(t), filepath.Join(dir, "sub", "out.png"), FormatPNG)
	require.ErrorIs(t, err, ErrWrite)
}
