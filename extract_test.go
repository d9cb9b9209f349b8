package sceimg

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tenRecordArchive builds a payload of ten 2x2 rgba8 records laid out back
// to back. mutate can adjust records before the manifest is validated.
func tenRecordArchive(t *testing.T, mutate func(records []Record)) *Archive {
	t.Helper()

	const frame = 2 * 2 * 4
	payload := make([]byte, 0, 10*frame)
	records := make([]Record, 10)
	for i := range records {
		records[i] = Record{
			ID:     fmt.Sprintf("img%d", i),
			Offset: int64(i * frame),
			Length: frame,
			Width:  2,
			Height: 2,
			Format: "rgba8",
		}
		payload = append(payload, rgbaBytes(2, 2)...)
	}
	if mutate != nil {
		mutate(records)
	}
	return newTestArchive(t, Manifest{Version: ManifestVersion, Records: records}, payload)
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestExtract_AllRecords(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, nil)
	destDir := t.TempDir()

	summary, err := archive.Extract(context.Background(), destDir)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Extracted)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Skipped)

	files := listFiles(t, destDir)
	require.Len(t, files, 10)
	assert.Equal(t, "000_img0.png", files[0])
	assert.Equal(t, "009_img9.png", files[9])
}

func TestExtract_OneBadRecordDoesNotStopTheRun(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, func(records []Record) {
		records[3].Format = "dxt1"
	})
	destDir := t.TempDir()

	summary, err := archive.Extract(context.Background(), destDir)
	require.NoError(t, err)
	assert.Equal(t, 9, summary.Extracted)
	assert.Equal(t, 1, summary.Failed)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 3, summary.Failures[0].Record)
	assert.Equal(t, "img3", summary.Failures[0].ID)
	assert.ErrorIs(t, summary.Failures[0].Err, ErrUnsupportedFormat)

	assert.Len(t, listFiles(t, destDir), 9)
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, nil)
	destDir := t.TempDir()

	_, err := archive.Extract(context.Background(), destDir)
	require.NoError(t, err)
	before := map[string][]byte{}
	for _, f := range listFiles(t, destDir) {
		data, err := os.ReadFile(filepath.Join(destDir, f))
		require.NoError(t, err)
		before[f] = data
	}

	_, err = archive.Extract(context.Background(), destDir)
	require.NoError(t, err)
	for _, f := range listFiles(t, destDir) {
		data, err := os.ReadFile(filepath.Join(destDir, f))
		require.NoError(t, err)
		assert.Equal(t, before[f], data, "%s changed between identical runs", f)
	}
}

func TestExtract_SkipExisting(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, nil)
	destDir := t.TempDir()

	_, err := archive.Extract(context.Background(), destDir)
	require.NoError(t, err)

	summary, err := archive.Extract(context.Background(), destDir, ExtractWithOverwrite(false))
	require.NoError(t, err)
	assert.Zero(t, summary.Extracted)
	assert.Equal(t, 10, summary.Skipped)
}

func TestExtract_OnlyIndices(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, nil)
	destDir := t.TempDir()

	summary, err := archive.Extract(context.Background(), destDir, ExtractWithOnly(1, 4, 400))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Extracted)

	files := listFiles(t, destDir)
	assert.Equal(t, []string{"001_img1.png", "004_img4.png"}, files)
}

func TestExtract_Filter(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, func(records []Record) {
		records[0].Dir = "units"
		records[1].Dir = "units"
		records[2].Dir = "terrain"
	})
	destDir := t.TempDir()

	summary, err := archive.Extract(context.Background(), destDir, ExtractWithFilter("units/*"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Extracted)

	files := listFiles(t, destDir)
	assert.Equal(t, []string{"units/000_img0.png", "units/001_img1.png"}, files)
}

func TestExtract_FilterMatchesIDLessRecords(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, func(records []Record) {
		records[0].Dir = "units"
		records[0].ID = ""
		records[1].Dir = "units"
	})
	destDir := t.TempDir()

	summary, err := archive.Extract(context.Background(), destDir, ExtractWithFilter("units/*"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Extracted)

	files := listFiles(t, destDir)
	assert.Equal(t, []string{"units/000.png", "units/001_img1.png"}, files)
}

func TestExtract_BadFilterPattern(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, nil)

	_, err := archive.Extract(context.Background(), t.TempDir(), ExtractWithFilter("[unclosed"))
	require.Error(t, err)
}

func TestExtract_WorkersMatchSerial(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, nil)
	serialDir := t.TempDir()
	parallelDir := t.TempDir()

	_, err := archive.Extract(context.Background(), serialDir, ExtractWithWorkers(-1))
	require.NoError(t, err)
	summary, err := archive.Extract(context.Background(), parallelDir, ExtractWithWorkers(4))
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Extracted)

	serialFiles := listFiles(t, serialDir)
	require.Equal(t, serialFiles, listFiles(t, parallelDir))
	for _, f := range serialFiles {
		a, err := os.ReadFile(filepath.Join(serialDir, f))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(parallelDir, f))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestExtract_Cancelled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		workers int
	}{
		{"serial", -1},
		{"parallel", 4},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			archive := tenRecordArchive(t, nil)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := archive.Extract(ctx, t.TempDir(), ExtractWithWorkers(tt.workers))
			require.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestExtract_Progress(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, func(records []Record) {
		records[7].Format = "dxt1"
	})

	var mu sync.Mutex
	var events []ProgressEvent
	_, err := archive.Extract(context.Background(), t.TempDir(),
		ExtractWithProgress(func(ev ProgressEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}))
	require.NoError(t, err)

	require.Len(t, events, 10)
	failed := 0
	for _, ev := range events {
		assert.Equal(t, 10, ev.Total)
		if ev.Err != nil {
			failed++
			assert.Equal(t, 7, ev.Record)
			assert.Empty(t, ev.Path)
		} else {
			assert.NotEmpty(t, ev.Path)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestExtract_SummaryFile(t *testing.T) {
	t.Parallel()

	archive := tenRecordArchive(t, func(records []Record) {
		records[5].Format = "dxt1"
	})
	destDir := t.TempDir()

	_, err := archive.Extract(context.Background(), destDir, ExtractWithSummaryFile(true))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(destDir, SummaryFileName))
	require.NoError(t, err)

	var entries []struct {
		Record int    `json:"record"`
		ID     string `json:"id"`
		File   string `json:"file"`
	}
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 9, "only successfully exported records are listed")
	for _, e := range entries {
		assert.NotEqual(t, 5, e.Record)
		assert.FileExists(t, filepath.Join(destDir, filepath.FromSlash(e.File)))
	}
}

func TestExtract_GridCropsSharedSheet(t *testing.T) {
	t.Parallel()

	// One 4x2 gray8 sheet shared by two records, split into left and
	// right 2x2 cells.
	payload := []byte{
		10, 20, 30, 40,
		50, 60, 70, 80,
	}
	records := []Record{
		{ID: "left", Offset: 0, Length: 8, Width: 4, Height: 2, Format: "gray8",
			Grid: &Grid{Columns: 2, Rows: 1, Cell: 0}},
		{ID: "right", Offset: 0, Length: 8, Width: 4, Height: 2, Format: "gray8",
			Grid: &Grid{Columns: 2, Rows: 1, Cell: 1}},
	}
	archive := newTestArchive(t, Manifest{Version: ManifestVersion, Records: records}, payload)
	destDir := t.TempDir()

	summary, err := archive.Extract(context.Background(), destDir)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Extracted)

	f, err := os.Open(filepath.Join(destDir, "001_right.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.EqualValues(t, 30, r>>8, "right cell starts at the sheet's third column")
}

func TestIndexPadding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, indexPadding(0))
	assert.Equal(t, 3, indexPadding(10))
	assert.Equal(t, 3, indexPadding(1000))
	assert.Equal(t, 4, indexPadding(1001))
}

func TestSanitizeID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a-b_c.d", sanitizeID("a-b_c.d"))
	assert.Equal(t, "spaced_out", sanitizeID("spaced out"))
	assert.Equal(t, "__.._x", sanitizeID("//..\\x"))
}
