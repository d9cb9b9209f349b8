package sceimg

import (
	// Registers sha256 and sha512 for go-digest verification.
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/North101/sce-image-extractor/internal/sizing"
)

// ByteSource provides random access to the payload.
//
// Implementations must support concurrent positional reads. *bytes.Reader
// satisfies ByteSource, which is convenient for tests and in-memory payloads.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so the size is cached at construction.
type fileSource struct {
	file *os.File
	size int64
}

func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat payload: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

func (fs *fileSource) Size() int64 {
	return fs.size
}

// readRecord reads a record's byte range from the payload.
//
// The range is bounds-checked against the source size before any read, so
// a corrupt record fails with ErrOutOfBounds rather than a short read.
func readRecord(src ByteSource, rec *Record) ([]byte, error) {
	end, ok := rec.end()
	if !ok || rec.Offset < 0 {
		return nil, ErrSizeOverflow
	}
	if end > src.Size() {
		return nil, fmt.Errorf("%w: range [%d, %d) exceeds payload size %d",
			ErrOutOfBounds, rec.Offset, end, src.Size())
	}

	length, err := sizing.ToInt(rec.Length, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := src.ReadAt(buf, rec.Offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read payload at %d: %w", rec.Offset, err)
	}
	if n != length {
		return nil, fmt.Errorf("read payload at %d: short read (%d of %d bytes)",
			rec.Offset, n, length)
	}
	return buf, nil
}

// verifyPayloadDigest checks the payload against the digest declared in the
// manifest. The whole payload is read once; callers should only do this at
// open time.
func verifyPayloadDigest(src ByteSource, declared string) error {
	dgst, err := digest.Parse(declared)
	if err != nil {
		return fmt.Errorf("%w: bad payloadDigest %q: %w", ErrMalformedManifest, declared, err)
	}

	verifier := dgst.Verifier()
	section := io.NewSectionReader(src, 0, src.Size())
	if _, err := io.Copy(verifier, section); err != nil {
		return fmt.Errorf("read payload for digest: %w", err)
	}
	if !verifier.Verified() {
		return fmt.Errorf("%w: payload does not match %s", ErrDigestMismatch, dgst)
	}
	return nil
}
