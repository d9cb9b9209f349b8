package sceimg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Archive ties a validated manifest to its payload.
//
// The manifest is read-only after construction and the payload is accessed
// via bounded positional reads, so an Archive is safe for concurrent use.
type Archive struct {
	manifest *Manifest
	source   ByteSource
	logger   *slog.Logger
}

// New creates an Archive from an already-loaded manifest and payload source.
//
// Every record's byte range is checked against the payload size before any
// payload read; out-of-bounds or partially overlapping records are rejected
// as one aggregate *ManifestError. If the manifest declares a payload
// digest, the payload is read once and verified.
func New(m *Manifest, source ByteSource, opts ...Option) (*Archive, error) {
	if err := m.validateBounds(source.Size()); err != nil {
		return nil, err
	}

	a := &Archive{
		manifest: m,
		source:   source,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}

	if m.PayloadDigest != "" {
		if err := verifyPayloadDigest(source, m.PayloadDigest); err != nil {
			return nil, err
		}
		a.logger.Debug("payload digest verified", slog.String("digest", m.PayloadDigest))
	}
	return a, nil
}

// Manifest returns the archive's manifest. Callers must not modify it.
func (a *Archive) Manifest() *Manifest {
	return a.manifest
}

// ArchiveFile wraps an Archive with its underlying payload file handle.
// Close must be called to release the file.
//
//nolint:revive // ArchiveFile is intentionally named for clarity when imported
type ArchiveFile struct {
	*Archive
	payload *os.File
}

// Close closes the underlying payload file.
func (af *ArchiveFile) Close() error {
	if af.payload == nil {
		return nil
	}
	err := af.payload.Close()
	af.payload = nil
	return err
}

// OpenFile opens an archive from a manifest file and a payload file.
//
// When payloadPath is empty, the manifest's own payload field is used,
// resolved relative to the manifest's directory. The returned ArchiveFile
// must be closed to release the payload handle.
func OpenFile(manifestPath, payloadPath string, opts ...Option) (*ArchiveFile, error) {
	m, err := LoadManifestFile(manifestPath)
	if err != nil {
		return nil, err
	}

	if payloadPath == "" {
		if m.Payload == "" {
			return nil, errors.New("sceimg: no payload path: manifest has no payload field and none was supplied")
		}
		payloadPath = filepath.Join(filepath.Dir(manifestPath), filepath.FromSlash(m.Payload))
	}

	f, err := os.Open(payloadPath) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}

	source, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	a, err := New(m, source, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &ArchiveFile{Archive: a, payload: f}, nil
}
