// Package ck3zip implements a minimal zip
// locator that finds the gamestate/meta members of a CK3 save without
// decompressing anything eagerly, and a bounded streaming raw-DEFLATE
// entry reader.
//
// This is not a general-purpose zip reader (no writing, no zip64, no
// multi-disk support): CK3 saves are small, single-disk archives with
// exactly one or two entries, so the EOCD/central-directory scan is
// kept deliberately narrow. The EOCD tail-scan technique is grounded on
// the same approach internal archive-format forks in the wider Go
// ecosystem use (scan backward from EOF for the signature, bounded by a
// maximum comment length).
package ck3zip

import (
	"encoding/binary"
	"io"

	"github.com/condor/ck3save/pkg/ck3errors"
)

// MaxEntrySize bounds how large an uncompressed zip entry this package
// will agree to read.
const MaxEntrySize = 2 << 30 // 2 GiB

// searchWindow bounds how far back from EOF the EOCD scan looks.
const searchWindow = 64 * 1024

const (
	eocdSignature = 0x06054b50
	cdSignature   = 0x02014b50
	lfhSignature  = 0x04034b50
	eocdMinSize   = 22
	cdHeaderSize  = 46
	lfhFixedSize  = 30
)

// Method is a zip entry's storage method.
type Method uint16

const (
	Stored  Method = 0
	Deflate Method = 8
)

// Wayfinder locates a zip member's compressed bytes without needing to
// re-read the central directory.
type Wayfinder struct {
	LocalHeaderOffset uint64
	CompressedSize    uint64
	UncompressedSize  uint64
	Method            Method
}

// Index is the result of locating entries within a zip archive: a name
// to Wayfinder map, plus the minimum local header offset across all
// entries, used by callers to bound an inlined metadata prefix.
type Index struct {
	entries  map[string]Wayfinder
	minLocal uint64
}

// Entry looks up a located entry by name.
func (idx *Index) Entry(name string) (Wayfinder, bool) {
	w, ok := idx.entries[name]
	return w, ok
}

// MinLocalHeaderOffset returns the smallest LocalHeaderOffset across all
// located entries.
func (idx *Index) MinLocalHeaderOffset() uint64 {
	return idx.minLocal
}

// Locate scans r (of the given total size) for the end-of-central-
// directory record within the last searchWindow bytes, then walks the
// central directory collecting gamestate and meta entries.
func Locate(r io.ReaderAt, size int64) (*Index, error) {
	if size < eocdMinSize {
		return nil, ck3errors.NewZipMissingArchive()
	}

	windowSize := int64(searchWindow)
	if windowSize > size {
		windowSize = size
	}
	window := make([]byte, windowSize)
	if _, err := r.ReadAt(window, size-windowSize); err != nil && err != io.EOF {
		return nil, ck3errors.NewIO(err)
	}

	eocdPos := -1
	for i := len(window) - eocdMinSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(window[i:]) == eocdSignature {
			commentLen := int(binary.LittleEndian.Uint16(window[i+20:]))
			if i+eocdMinSize+commentLen <= len(window) {
				eocdPos = i
				break
			}
		}
	}
	if eocdPos < 0 {
		return nil, ck3errors.NewZipMissingArchive()
	}

	eocd := window[eocdPos:]
	recordCount := binary.LittleEndian.Uint16(eocd[10:])
	centralSize := binary.LittleEndian.Uint32(eocd[12:])
	centralOffset := binary.LittleEndian.Uint32(eocd[16:])

	dir := make([]byte, centralSize)
	if _, err := r.ReadAt(dir, int64(centralOffset)); err != nil && err != io.EOF {
		return nil, ck3errors.NewZipBadData("reading central directory", err)
	}

	idx := &Index{entries: make(map[string]Wayfinder, recordCount)}
	minLocal := ^uint64(0)

	pos := 0
	for i := uint16(0); i < recordCount; i++ {
		if pos+cdHeaderSize > len(dir) {
			return nil, ck3errors.NewZipBadData("truncated central directory record", nil)
		}
		rec := dir[pos:]
		if binary.LittleEndian.Uint32(rec) != cdSignature {
			return nil, ck3errors.NewZipBadData("bad central directory signature", nil)
		}

		method := Method(binary.LittleEndian.Uint16(rec[10:]))
		compressedSize := binary.LittleEndian.Uint32(rec[20:])
		uncompressedSize := binary.LittleEndian.Uint32(rec[24:])
		nameLen := int(binary.LittleEndian.Uint16(rec[28:]))
		extraLen := int(binary.LittleEndian.Uint16(rec[30:]))
		commentLen := int(binary.LittleEndian.Uint16(rec[32:]))
		localHeaderOffset := binary.LittleEndian.Uint32(rec[42:])

		nameStart := cdHeaderSize
		nameEnd := nameStart + nameLen
		if nameEnd > len(rec) {
			return nil, ck3errors.NewZipBadData("truncated central directory file name", nil)
		}
		name := string(rec[nameStart:nameEnd])

		if method != Stored && method != Deflate {
			return nil, ck3errors.NewZipUnknownCompression(uint16(method))
		}
		if uint64(uncompressedSize) > MaxEntrySize {
			return nil, ck3errors.NewZipBadData("zip entry exceeds 2 GiB limit", nil)
		}

		if name == "gamestate" || name == "meta" {
			idx.entries[name] = Wayfinder{
				LocalHeaderOffset: uint64(localHeaderOffset),
				CompressedSize:    uint64(compressedSize),
				UncompressedSize:  uint64(uncompressedSize),
				Method:            method,
			}
		}
		if uint64(localHeaderOffset) < minLocal {
			minLocal = uint64(localHeaderOffset)
		}

		pos += cdHeaderSize + nameLen + extraLen + commentLen
	}

	if len(idx.entries) == 0 {
		return nil, ck3errors.NewZipMissingEntry("gamestate")
	}
	idx.minLocal = minLocal

	return idx, nil
}

// dataOffset reads a zip local file header at w.LocalHeaderOffset and
// returns the offset where the entry's compressed data actually begins
// (after the variable-length name and extra fields).
func dataOffset(r io.ReaderAt, w Wayfinder) (int64, error) {
	lfh := make([]byte, lfhFixedSize)
	if _, err := r.ReadAt(lfh, int64(w.LocalHeaderOffset)); err != nil {
		return 0, ck3errors.NewZipBadData("reading local file header", err)
	}
	if binary.LittleEndian.Uint32(lfh) != lfhSignature {
		return 0, ck3errors.NewZipBadData("bad local file header signature", nil)
	}
	nameLen := int64(binary.LittleEndian.Uint16(lfh[26:]))
	extraLen := int64(binary.LittleEndian.Uint16(lfh[28:]))
	return int64(w.LocalHeaderOffset) + lfhFixedSize + nameLen + extraLen, nil
}

// Open returns a streaming reader over the entry located by w: a bounded
// SectionReader for Stored entries, a DeflateEntryReader for Deflate
// entries.
func Open(r io.ReaderAt, w Wayfinder) (io.Reader, error) {
	start, err := dataOffset(r, w)
	if err != nil {
		return nil, err
	}

	switch w.Method {
	case Stored:
		return io.NewSectionReader(r, start, int64(w.CompressedSize)), nil
	case Deflate:
		raw := io.NewSectionReader(r, start, int64(w.CompressedSize))
		return NewDeflateEntryReader(raw, w.UncompressedSize), nil
	default:
		return nil, ck3errors.NewZipUnknownCompression(uint16(w.Method))
	}
}
