// Package ck3errors defines the typed error taxonomy surfaced by every
// other package in this module. Each Kind gets its own Go type, in an
// embedded-base-struct convention, wrapping underlying causes with
// cockroachdb/errors so callers get a recoverable stack trace on %+v
// as well as errors.Is/As support.
package ck3errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind tags which of the taxonomy's branches an error belongs to.
type Kind int

const (
	KindInvalidHeader Kind = iota
	KindZipMissingArchive
	KindZipMissingEntry
	KindZipUnknownCompression
	KindZipBadData
	KindZipEarlyEOF
	KindParse
	KindDeserialize
	KindUnknownToken
	KindInvalidDate
	KindWriter
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalidHeader:
		return "InvalidHeader"
	case KindZipMissingArchive:
		return "ZipMissingArchive"
	case KindZipMissingEntry:
		return "ZipMissingEntry"
	case KindZipUnknownCompression:
		return "ZipUnknownCompression"
	case KindZipBadData:
		return "ZipBadData"
	case KindZipEarlyEOF:
		return "ZipEarlyEOF"
	case KindParse:
		return "Parse"
	case KindDeserialize:
		return "Deserialize"
	case KindUnknownToken:
		return "UnknownToken"
	case KindInvalidDate:
		return "InvalidDate"
	case KindWriter:
		return "Writer"
	case KindIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// base is embedded by every concrete error type below. It is not
// exported directly; callers type-switch (or errors.As) on the concrete
// type, or call Kind() through the Tagged interface.
type base struct {
	kind Kind
	msg  string
	// cause holds the wrapped underlying error, if any, preserved via
	// cockroachdb/errors so stack traces survive across the boundary.
	cause error
}

func (b *base) Error() string {
	if b.cause != nil {
		return fmt.Sprintf("%s: %v", b.msg, b.cause)
	}
	return b.msg
}

func (b *base) Unwrap() error { return b.cause }

func (b *base) Kind() Kind { return b.kind }

// Tagged is implemented by every error type in this package.
type Tagged interface {
	error
	Kind() Kind
}

// InvalidHeaderError: the 24-byte header is missing, malformed, or
// names an unknown kind digit.
type InvalidHeaderError struct{ base }

func NewInvalidHeader(msg string) error {
	return &InvalidHeaderError{base{kind: KindInvalidHeader, msg: msg}}
}

// ZipMissingArchiveError: no End-Of-Central-Directory record found
// within the search window.
type ZipMissingArchiveError struct{ base }

func NewZipMissingArchive() error {
	return &ZipMissingArchiveError{base{kind: KindZipMissingArchive, msg: "no zip end of central directory record found"}}
}

// ZipMissingEntryError: neither gamestate nor meta present.
type ZipMissingEntryError struct {
	base
	Name string
}

func NewZipMissingEntry(name string) error {
	return &ZipMissingEntryError{
		base: base{kind: KindZipMissingEntry, msg: fmt.Sprintf("zip entry %q not found", name)},
		Name: name,
	}
}

// ZipUnknownCompressionError: an entry uses neither Stored nor Deflate.
type ZipUnknownCompressionError struct {
	base
	Method uint16
}

func NewZipUnknownCompression(method uint16) error {
	return &ZipUnknownCompressionError{
		base:   base{kind: KindZipUnknownCompression, msg: fmt.Sprintf("unsupported zip compression method %d", method)},
		Method: method,
	}
}

// ZipBadDataError: the zip structures themselves are inconsistent.
type ZipBadDataError struct{ base }

func NewZipBadData(msg string, cause error) error {
	return &ZipBadDataError{base{kind: KindZipBadData, msg: msg, cause: errors.WithStack(cause)}}
}

// ZipEarlyEOFError: a bounded zip entry reader hit EOF before producing
// uncompressed_size bytes.
type ZipEarlyEOFError struct {
	base
	Written int64
}

func NewZipEarlyEOF(written int64) error {
	return &ZipEarlyEOFError{
		base:    base{kind: KindZipEarlyEOF, msg: fmt.Sprintf("zip entry truncated after %d bytes", written)},
		Written: written,
	}
}

// ParseError: a syntactic error in either dialect, with byte position.
type ParseError struct {
	base
	Offset int64
}

func NewParse(msg string, offset int64) error {
	return &ParseError{
		base:   base{kind: KindParse, msg: fmt.Sprintf("%s at offset %d", msg, offset)},
		Offset: offset,
	}
}

// DeserializeError: structural mismatch against the caller's data model.
type DeserializeError struct{ base }

func NewDeserialize(msg string) error {
	return &DeserializeError{base{kind: KindDeserialize, msg: msg}}
}

// UnknownTokenError: a binary identifier absent from the dictionary.
type UnknownTokenError struct {
	base
	TokenID uint16
}

func NewUnknownToken(id uint16) error {
	return &UnknownTokenError{
		base:    base{kind: KindUnknownToken, msg: fmt.Sprintf("unresolved token id 0x%x", id)},
		TokenID: id,
	}
}

// InvalidDateError: a date-latched slot held an integer that is not a
// valid date.
type InvalidDateError struct {
	base
	Value int32
}

func NewInvalidDate(value int32) error {
	return &InvalidDateError{
		base:  base{kind: KindInvalidDate, msg: fmt.Sprintf("%d is not a valid ck3 date", value)},
		Value: value,
	}
}

// WriterError: output I/O failure during emission.
type WriterError struct{ base }

func NewWriter(cause error) error {
	return &WriterError{base{kind: KindWriter, msg: "write failed", cause: errors.WithStack(cause)}}
}

// IOError: underlying reader failure.
type IOError struct{ base }

func NewIO(cause error) error {
	return &IOError{base{kind: KindIO, msg: "io failed", cause: errors.WithStack(cause)}}
}

// KindOf extracts the Kind from any error in this taxonomy, or false if
// err is not one of ours.
func KindOf(err error) (Kind, bool) {
	var t Tagged
	if errors.As(err, &t) {
		return t.Kind(), true
	}
	return 0, false
}
