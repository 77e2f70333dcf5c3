// Package ck3save implements envelope detection and access: classifying an
// arbitrary save input and exposing uniform streaming readers over its
// metadata and gamestate sections. This is the package most callers
// import.
package ck3save

import (
	"bytes"
	"io"
	"os"

	"github.com/condor/ck3save/pkg/ck3errors"
	"github.com/condor/ck3save/pkg/ck3header"
	"github.com/condor/ck3save/pkg/ck3zip"
)

// Envelope classifies a save's on-disk shape and owns access to its
// metadata and gamestate sections.
type Envelope struct {
	header ck3header.Header

	file *os.File

	zipIndex *ck3zip.Index
	zipBase  int64 // byte offset of the zip archive within reader
	reader   io.ReaderAt
	size     int64

	hasInlineMeta bool
	inlineMetaEnd int64 // end of the inline metadata prefix, when Unified*
}

// FromSlice classifies an in-memory save.
func FromSlice(data []byte) (*Envelope, error) {
	if len(data) < ck3header.Size || string(data[:3]) != "SAV" {
		return nil, ck3errors.NewInvalidHeader("input too short or missing SAV magic")
	}
	hdr, err := ck3header.Parse(data)
	if err != nil {
		return nil, err
	}
	return classify(hdr, bytes.NewReader(data), int64(len(data)))
}

// Open classifies a save read from disk, keeping the file open for
// streaming reads.
func Open(path string) (*Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ck3errors.NewIO(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ck3errors.NewIO(err)
	}
	if info.Size() < ck3header.Size {
		f.Close()
		return nil, ck3errors.NewInvalidHeader("input too short")
	}
	hdrBytes := make([]byte, ck3header.Size)
	if _, err := io.ReadFull(f, hdrBytes); err != nil {
		f.Close()
		return nil, ck3errors.NewIO(err)
	}
	hdr, err := ck3header.Parse(hdrBytes)
	if err != nil {
		f.Close()
		return nil, err
	}
	env, err := classify(hdr, f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	env.file = f
	return env, nil
}

// classify implements the envelope classification algorithm.
func classify(hdr ck3header.Header, reader io.ReaderAt, totalSize int64) (*Envelope, error) {
	env := &Envelope{
		header: hdr,
		reader: reader,
		size:   totalSize,
	}

	bodyStart := int64(ck3header.Size)
	bodySize := totalSize - bodyStart

	idx, zipErr := ck3zip.Locate(io.NewSectionReader(reader, bodyStart, bodySize), bodySize)
	if zipErr == nil {
		env.zipIndex = idx
		env.zipBase = bodyStart
		_, hasGamestate := idx.Entry("gamestate")
		_, hasMeta := idx.Entry("meta")
		if hasGamestate && hasMeta {
			env.header.SetKind(splitKind(hdr.Kind()))
		} else if hasGamestate {
			env.header.SetKind(unifiedKind(hdr.Kind()))
			env.hasInlineMeta = true
			env.inlineMetaEnd = bodyStart + int64(idx.MinLocalHeaderOffset())
		}
		return env, nil
	}

	// No zip found: plain uncompressed body, classified as Binary/Text
	// by the header's own kind.
	return env, nil
}

func splitKind(k ck3header.Kind) ck3header.Kind {
	if k.Binary() {
		return ck3header.KindSplitBinary
	}
	return ck3header.KindSplitText
}

func unifiedKind(k ck3header.Kind) ck3header.Kind {
	if k.Binary() {
		return ck3header.KindUnifiedBinary
	}
	return ck3header.KindUnifiedText
}

// Kind reports the classified shape.
func (e *Envelope) Kind() ck3header.Kind { return e.header.Kind() }

// Header returns the parsed header.
func (e *Envelope) Header() ck3header.Header { return e.header }

// MetaReader returns a stream over the metadata section, if one
// exists separately from the gamestate body (split saves have a
// dedicated `meta` zip member; unified saves have an inline prefix).
// Plain Binary/Text saves with no zip have no distinct metadata
// section and report ok=false.
func (e *Envelope) MetaReader() (io.Reader, bool, error) {
	if e.zipIndex != nil {
		if w, ok := e.zipIndex.Entry("meta"); ok {
			r, err := ck3zip.Open(e.reader, offsetWayfinder(w, e.zipBase))
			return r, true, err
		}
		if e.hasInlineMeta {
			bodyStart := int64(ck3header.Size)
			return io.NewSectionReader(e.reader, bodyStart, e.inlineMetaEnd-bodyStart), true, nil
		}
	}
	return nil, false, nil
}

// GamestateReader returns a stream over the primary gamestate section.
func (e *Envelope) GamestateReader() (io.Reader, error) {
	if e.zipIndex != nil {
		w, ok := e.zipIndex.Entry("gamestate")
		if !ok {
			return nil, ck3errors.NewZipMissingEntry("gamestate")
		}
		return ck3zip.Open(e.reader, offsetWayfinder(w, e.zipBase))
	}
	bodyStart := int64(ck3header.Size)
	return io.NewSectionReader(e.reader, bodyStart, e.size-bodyStart), nil
}

// offsetWayfinder rebases a Wayfinder's local header offset, which
// ck3zip.Locate computed relative to the start of the body section, to
// be relative to the start of the whole input.
func offsetWayfinder(w ck3zip.Wayfinder, base int64) ck3zip.Wayfinder {
	w.LocalHeaderOffset += uint64(base)
	return w
}

// Close releases the underlying file, if this envelope was created via
// Open.
func (e *Envelope) Close() error {
	if e.file != nil {
		return e.file.Close()
	}
	return nil
}
