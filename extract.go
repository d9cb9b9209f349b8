package sceimg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// SummaryFileName is the file written to the destination directory when
// ExtractWithSummaryFile is enabled.
const SummaryFileName = "extracted.json"

// Failure records one record that could not be extracted.
type Failure struct {
	// Record is the record's zero-based manifest index.
	Record int

	// ID is the record's ID, if it has one.
	ID string

	// Err is the failure, wrapping one of the package sentinel errors
	// where the cause is classified.
	Err error
}

// Summary reports the outcome of an extraction run.
//
// Failed > 0 signals partial failure: already-exported images are left in
// place and the failures list names every record that was not.
type Summary struct {
	// Extracted is the number of records exported to disk.
	Extracted int

	// Failed is the number of records that could not be extracted.
	Failed int

	// Skipped is the number of records left untouched because their
	// output already existed and overwriting was disabled.
	Skipped int

	// Failures lists the failed records in manifest order.
	Failures []Failure
}

// summaryRecord is one entry of the optional summary file.
type summaryRecord struct {
	Record int    `json:"record"`
	ID     string `json:"id,omitempty"`
	File   string `json:"file"`
}

// recordResult is the outcome of processing a single record.
type recordResult struct {
	path    string // output path relative to destDir
	skipped bool
	err     error
}

// Extract decodes the manifest's records and writes one image file per
// record under destDir.
//
// Records are processed in manifest order, or a filtered subset of it (see
// ExtractWithOnly and ExtractWithFilter). Per-record failures are collected
// into the returned Summary and do not stop the run. Extract itself returns
// an error only for run-level problems: a cancelled context, an unusable
// destination, a bad filter pattern, or a summary file that cannot be
// written.
//
// Output naming is deterministic: the record's zero-padded index, followed
// by its sanitized ID when present, under the record's dir. Running twice
// over identical inputs produces byte-identical files.
func (a *Archive) Extract(ctx context.Context, destDir string, opts ...ExtractOption) (*Summary, error) {
	cfg := newExtractConfig(opts)

	selected, err := a.selectRecords(&cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	pad := indexPadding(len(a.manifest.Records))
	results := make([]recordResult, len(selected))
	var done atomic.Int64

	process := func(slot, idx int) {
		rec := &a.manifest.Records[idx]
		res := a.processRecord(rec, idx, destDir, pad, &cfg)
		results[slot] = res

		switch {
		case res.err != nil:
			a.logger.Warn("record failed",
				slog.Int("record", idx),
				slog.String("id", rec.ID),
				slog.Any("error", res.err))
		case res.skipped:
			a.logger.Debug("record skipped", slog.Int("record", idx), slog.String("path", res.path))
		default:
			a.logger.Debug("record extracted", slog.Int("record", idx), slog.String("path", res.path))
		}

		if cfg.progress != nil {
			ev := ProgressEvent{
				Record: idx,
				ID:     rec.ID,
				Done:   int(done.Add(1)),
				Total:  len(selected),
				Err:    res.err,
			}
			if res.err == nil && !res.skipped {
				ev.Path = res.path
			}
			cfg.progress(ev)
		}
	}

	if workers := workerCount(cfg.workers, len(selected)); workers < 2 {
		for slot, idx := range selected {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			process(slot, idx)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for slot, idx := range selected {
			slot, idx := slot, idx
			g.Go(func() error {
				// Per-record failures are collected, not returned; only
				// cancellation stops the group.
				if err := gctx.Err(); err != nil {
					return err
				}
				process(slot, idx)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	var exported []summaryRecord
	for slot, idx := range selected {
		res := results[slot]
		switch {
		case res.err != nil:
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{
				Record: idx,
				ID:     a.manifest.Records[idx].ID,
				Err:    res.err,
			})
		case res.skipped:
			summary.Skipped++
		default:
			summary.Extracted++
			exported = append(exported, summaryRecord{
				Record: idx,
				ID:     a.manifest.Records[idx].ID,
				File:   filepath.ToSlash(res.path),
			})
		}
	}

	if cfg.summaryFile {
		if err := writeSummaryFile(destDir, exported); err != nil {
			return summary, err
		}
	}

	a.logger.Info("extraction finished",
		slog.Int("extracted", summary.Extracted),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped))
	return summary, nil
}

// processRecord runs the read → decode → crop → export chain for one record.
func (a *Archive) processRecord(rec *Record, idx int, destDir string, pad int, cfg *extractConfig) recordResult {
	rel := outputFileName(rec, idx, pad, cfg.format)
	if rec.Dir != "" {
		rel = filepath.Join(filepath.FromSlash(rec.Dir), rel)
	}
	outPath := filepath.Join(destDir, rel)

	if !cfg.overwrite {
		if _, err := os.Stat(outPath); err == nil {
			return recordResult{path: rel, skipped: true}
		}
	}

	data, err := readRecord(a.source, rec)
	if err != nil {
		return recordResult{err: err}
	}

	img, err := Decode(data, rec, resolvePalette(a.manifest, rec))
	if err != nil {
		return recordResult{err: err}
	}
	if rec.Grid != nil {
		img = cropCell(img, rec.Grid)
	}

	if err := exportImage(img, outPath, cfg.format); err != nil {
		return recordResult{err: err}
	}
	return recordResult{path: rel}
}

// selectRecords resolves the index and name filters into the ordered list
// of record indices to process.
func (a *Archive) selectRecords(cfg *extractConfig) ([]int, error) {
	if cfg.filter != "" {
		if _, err := path.Match(cfg.filter, ""); err != nil {
			return nil, fmt.Errorf("filter %q: %w", cfg.filter, err)
		}
	}

	var only map[int]bool
	if len(cfg.only) > 0 {
		only = make(map[int]bool, len(cfg.only))
		for _, idx := range cfg.only {
			only[idx] = true
		}
	}

	selected := make([]int, 0, len(a.manifest.Records))
	for i := range a.manifest.Records {
		if only != nil && !only[i] {
			continue
		}
		if cfg.filter != "" {
			match, _ := path.Match(cfg.filter, a.manifest.Records[i].Name(i))
			if !match {
				continue
			}
		}
		selected = append(selected, i)
	}
	return selected, nil
}

// workerCount resolves the workers option: <0 serial, 0 auto, >0 fixed.
func workerCount(configured, records int) int {
	switch {
	case configured < 0:
		return 1
	case configured > 0:
		return configured
	default:
		n := runtime.GOMAXPROCS(0)
		if n > records {
			n = records
		}
		return n
	}
}

// indexPadding returns the zero-padding width for record indices: at least
// three digits, more when the manifest is large enough to need them.
func indexPadding(records int) int {
	pad := len(strconv.Itoa(max(records-1, 0)))
	return max(pad, 3)
}

// outputFileName builds the deterministic output name for a record. The
// zero-padded index prefix guarantees collision freedom even when IDs
// sanitize to the same string.
func outputFileName(rec *Record, idx, pad int, format ImageFormat) string {
	name := fmt.Sprintf("%0*d", pad, idx)
	if rec.ID != "" {
		name += "_" + sanitizeID(rec.ID)
	}
	return name + format.Ext()
}

// sanitizeID maps a record ID to filesystem-safe characters.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// writeSummaryFile writes the exported-record listing atomically.
func writeSummaryFile(destDir string, exported []summaryRecord) error {
	if exported == nil {
		exported = []summaryRecord{}
	}
	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode summary: %w", ErrWrite, err)
	}
	data = append(data, '\n')

	target := filepath.Join(destDir, SummaryFileName)
	tmp, err := os.CreateTemp(destDir, ".sceimg-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
