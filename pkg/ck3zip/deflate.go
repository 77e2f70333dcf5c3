package ck3zip

import (
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/condor/ck3save/pkg/ck3errors"
)

// DeflateEntryReader streams raw-DEFLATE (no zlib wrapper) decompressed
// bytes from a bounded zip entry, refusing to produce more than the
// entry's stated uncompressed size and reporting a short read at EOF as
// ck3errors.ZipEarlyEOFError.
type DeflateEntryReader struct {
	fr      io.ReadCloser
	limit   uint64
	written uint64
	done    bool
}

// NewDeflateEntryReader wraps r (the entry's compressed bytes) with a
// streaming raw-DEFLATE decoder bounded to uncompressedSize bytes.
func NewDeflateEntryReader(r io.Reader, uncompressedSize uint64) *DeflateEntryReader {
	return &DeflateEntryReader{
		fr:    flate.NewReader(r),
		limit: uncompressedSize,
	}
}

// Read implements io.Reader.
func (d *DeflateEntryReader) Read(p []byte) (int, error) {
	if d.done {
		return 0, io.EOF
	}

	remaining := d.limit - d.written
	if uint64(len(p)) > remaining {
		p = p[:remaining]
	}
	if len(p) == 0 {
		d.done = true
		return 0, io.EOF
	}

	n, err := d.fr.Read(p)
	d.written += uint64(n)

	if err == io.EOF {
		d.done = true
		if d.written < d.limit {
			return n, ck3errors.NewZipEarlyEOF(int64(d.written))
		}
		return n, io.EOF
	}
	if err != nil {
		return n, ck3errors.NewIO(err)
	}
	return n, nil
}

// Close releases the underlying flate reader.
func (d *DeflateEntryReader) Close() error {
	return d.fr.Close()
}
