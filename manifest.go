package sceimg

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/North101/sce-image-extractor/internal/sizing"
)

// ManifestVersion is the container format version this package reads.
const ManifestVersion = 1

// Manifest is the typed in-memory form of the JSON index.
//
// A manifest is loaded once per run and read-only thereafter. Record order
// is stable: a record's position in Records is its index, used for
// deterministic output naming.
type Manifest struct {
	// Version is the container format version. Must be ManifestVersion.
	Version int `json:"version"`

	// Payload optionally names the binary payload file, relative to the
	// manifest's own location. A caller-supplied path takes precedence.
	Payload string `json:"payload,omitempty"`

	// PayloadDigest optionally declares the expected digest of the payload
	// in OCI form (e.g. "sha256:..."). Verified when the payload is opened.
	PayloadDigest string `json:"payloadDigest,omitempty"`

	// Palette is the global palette for indexed records. A record's own
	// palette takes precedence.
	Palette Palette `json:"palette,omitempty"`

	// Records describes the embedded images, ordered by index.
	Records []Record `json:"records"`
}

// Grid marks a record as a sprite sheet of columns×rows cells, of which
// only the cell with the given row-major index is exported. Cell dimensions
// are the sheet dimensions divided by columns and rows, rounded down.
type Grid struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
	Cell    int `json:"cell"`
}

// Record describes a single embedded image.
type Record struct {
	// ID optionally names the record. Non-empty IDs must be unique and
	// become part of the output filename.
	ID string `json:"id,omitempty"`

	// Dir optionally places the record's output in a subdirectory of the
	// extraction destination.
	Dir string `json:"dir,omitempty"`

	// Offset is the byte offset of the record's data in the payload.
	Offset int64 `json:"offset"`

	// Length is the byte count of the record's data in the payload.
	// For compressed records this is the compressed size.
	Length int64 `json:"length"`

	// Width and Height are the image dimensions in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the pixel format code (see ParsePixelFormat).
	Format string `json:"format"`

	// Compression names the compression applied to the record's payload
	// bytes: "" or "none", or "zstd".
	Compression string `json:"compression,omitempty"`

	// Palette overrides the manifest's global palette for this record.
	Palette Palette `json:"palette,omitempty"`

	// Grid optionally selects one cell out of a sprite sheet.
	Grid *Grid `json:"grid,omitempty"`
}

// PixelFormat returns the record's parsed pixel format.
func (r *Record) PixelFormat() PixelFormat {
	return ParsePixelFormat(r.Format)
}

// Zstd reports whether the record's payload bytes are zstd-compressed.
func (r *Record) Zstd() bool {
	return r.Compression == "zstd"
}

// Name returns the record's dir-qualified display name: its ID when one is
// set, otherwise its zero-based index rendered as a string.
func (r *Record) Name(index int) string {
	name := r.ID
	if name == "" {
		name = strconv.Itoa(index)
	}
	if r.Dir == "" {
		return name
	}
	return path.Join(r.Dir, name)
}

// end returns the exclusive end offset of the record's byte range.
// ok is false when offset+length overflows.
func (r *Record) end() (int64, bool) {
	return sizing.AddInt64(r.Offset, r.Length)
}

// Issue describes one manifest validation failure.
type Issue struct {
	// Record is the zero-based record index, or -1 for manifest-level issues.
	Record int

	// ID is the record's ID, if it has one.
	ID string

	// Msg describes the failure.
	Msg string
}

func (i Issue) String() string {
	switch {
	case i.Record < 0:
		return i.Msg
	case i.ID != "":
		return fmt.Sprintf("record %d (%s): %s", i.Record, i.ID, i.Msg)
	default:
		return fmt.Sprintf("record %d: %s", i.Record, i.Msg)
	}
}

// ManifestError aggregates every validation failure found in a manifest.
// It unwraps to ErrMalformedManifest.
type ManifestError struct {
	Issues []Issue
}

func (e *ManifestError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v: %d issue(s)", ErrMalformedManifest, len(e.Issues))
	for _, issue := range e.Issues {
		sb.WriteString("; ")
		sb.WriteString(issue.String())
	}
	return sb.String()
}

func (e *ManifestError) Unwrap() error {
	return ErrMalformedManifest
}

// LoadManifest parses and validates manifest JSON.
//
// Validation is exhaustive: every record is checked and all failures are
// collected into a single *ManifestError rather than stopping at the first.
// Unknown pixel format codes are deliberately not a load failure; they fail
// per record at decode time so the rest of the run can proceed.
func LoadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFile reads and parses a manifest from disk.
func LoadManifestFile(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return LoadManifest(data)
}

// validate checks manifest-level fields and per-record geometry, collecting
// every failure.
func (m *Manifest) validate() error {
	var issues []Issue

	if m.Version != ManifestVersion {
		issues = append(issues, Issue{
			Record: -1,
			Msg:    fmt.Sprintf("unsupported version %d (want %d)", m.Version, ManifestVersion),
		})
	}
	if m.Records == nil {
		issues = append(issues, Issue{Record: -1, Msg: "records: required"})
	}

	seen := make(map[string]int, len(m.Records))
	for i := range m.Records {
		rec := &m.Records[i]
		issues = append(issues, rec.validate(i)...)

		if rec.ID != "" {
			if prev, dup := seen[rec.ID]; dup {
				issues = append(issues, Issue{
					Record: i,
					ID:     rec.ID,
					Msg:    fmt.Sprintf("duplicate id (first used by record %d)", prev),
				})
			} else {
				seen[rec.ID] = i
			}
		}
	}

	if len(issues) > 0 {
		return &ManifestError{Issues: issues}
	}
	return nil
}

// validate checks a single record's declared geometry and encoding.
func (r *Record) validate(index int) []Issue {
	var issues []Issue
	add := func(format string, args ...any) {
		issues = append(issues, Issue{Record: index, ID: r.ID, Msg: fmt.Sprintf(format, args...)})
	}

	if r.Offset < 0 {
		add("negative offset %d", r.Offset)
	}
	if r.Length <= 0 {
		add("non-positive length %d", r.Length)
	}
	if r.Offset >= 0 && r.Length > 0 {
		if _, ok := r.end(); !ok {
			add("offset+length overflows")
		}
	}
	if r.Width <= 0 {
		add("non-positive width %d", r.Width)
	}
	if r.Height <= 0 {
		add("non-positive height %d", r.Height)
	}

	switch r.Compression {
	case "", "none", "zstd":
	default:
		add("unknown compression %q", r.Compression)
	}

	if r.Dir != "" && !fs.ValidPath(r.Dir) {
		add("invalid dir %q", r.Dir)
	}

	if g := r.Grid; g != nil {
		if g.Columns < 1 || g.Rows < 1 {
			add("grid %dx%d must be at least 1x1", g.Columns, g.Rows)
		} else {
			if g.Cell < 0 || g.Cell >= g.Columns*g.Rows {
				add("grid cell %d out of range [0, %d)", g.Cell, g.Columns*g.Rows)
			}
			if r.Width > 0 && g.Columns > r.Width {
				add("grid columns %d exceed width %d", g.Columns, r.Width)
			}
			if r.Height > 0 && g.Rows > r.Height {
				add("grid rows %d exceed height %d", g.Rows, r.Height)
			}
		}
	}

	// Geometry against length, for formats we can size. Compressed records
	// are checked after decompression instead, and unknown formats are left
	// to fail at decode time.
	if r.Width > 0 && r.Height > 0 && r.Length > 0 && !r.Zstd() {
		if want, ok := r.PixelFormat().frameBytes(r.Width, r.Height); ok && int64(want) != r.Length {
			add("length %d does not match %dx%d %s (want %d)",
				r.Length, r.Width, r.Height, r.Format, want)
		}
	}

	return issues
}

// validateBounds checks every record's byte range against the payload size,
// collecting all failures. Ranges that partially overlap another record are
// rejected; byte-identical ranges are allowed so that several grid records
// can share one sprite sheet.
func (m *Manifest) validateBounds(payloadSize int64) error {
	var issues []Issue

	order := make([]int, 0, len(m.Records))
	for i := range m.Records {
		rec := &m.Records[i]
		end, ok := rec.end()
		if !ok || rec.Offset < 0 {
			continue // already reported by validate
		}
		if end > payloadSize {
			issues = append(issues, Issue{
				Record: i,
				ID:     rec.ID,
				Msg: fmt.Sprintf("range [%d, %d) exceeds payload size %d",
					rec.Offset, end, payloadSize),
			})
			continue
		}
		order = append(order, i)
	}

	slices.SortFunc(order, func(a, b int) int {
		ra, rb := &m.Records[a], &m.Records[b]
		if c := cmp.Compare(ra.Offset, rb.Offset); c != 0 {
			return c
		}
		return cmp.Compare(ra.Length, rb.Length)
	})

	maxEnd := int64(0)
	maxIdx := -1
	var prev *Record
	for _, i := range order {
		rec := &m.Records[i]
		if prev != nil && prev.Offset == rec.Offset && prev.Length == rec.Length {
			continue // shared sheet
		}
		if maxIdx >= 0 && rec.Offset < maxEnd {
			issues = append(issues, Issue{
				Record: i,
				ID:     rec.ID,
				Msg:    fmt.Sprintf("range overlaps record %d", maxIdx),
			})
		}
		if end, _ := rec.end(); end > maxEnd {
			maxEnd = end
			maxIdx = i
		}
		prev = rec
	}

	if len(issues) > 0 {
		return &ManifestError{Issues: issues}
	}
	return nil
}
