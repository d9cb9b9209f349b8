// Package sceimg extracts image assets embedded in a game data container.
//
// A container consists of two inputs:
//   - Manifest: a JSON index describing where each image lives in the
//     payload and how its pixels are encoded
//   - Payload: an opaque binary file holding the raw image bytes
//
// The manifest is loaded and validated once, the payload is accessed via
// bounded random reads, and each record is decoded to RGBA and written to
// disk as a standard image file (PNG by default).
//
// Typical use:
//
//	archive, err := sceimg.OpenFile("forbidden_knowledge.json", "", sceimg.WithLogger(logger))
//	if err != nil { ... }
//	defer archive.Close()
//
//	summary, err := archive.Extract(ctx, "out/",
//		sceimg.ExtractWithFormat(sceimg.FormatPNG),
//		sceimg.ExtractWithWorkers(4),
//	)
//
// Per-record decode failures do not abort the run; they are collected in
// the returned Summary so callers can report partial failure.
package sceimg
