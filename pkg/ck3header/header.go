// Package ck3header implements the 24-byte SaveHeader
// that opens every CK3 save file.
//
// Layout: "SAV" + 3 decimal digits (kind) + ' ' + 8 lowercase hex digits
// (metadata byte length) + '\n'.
package ck3header

import (
	"fmt"

	"github.com/condor/ck3save/pkg/ck3errors"
)

// Size is the fixed on-disk width of a SaveHeader. The meaningful
// content ("SAV" + kind + space + hex length + newline) occupies the
// first contentSize bytes; the remainder is zero padding reserved so
// the record always reads as a fixed 24-byte block.
const Size = 24

const contentSize = 16

const magic = "SAV"

// Kind enumerates the eight header kinds the 3-digit kind field can
// name: two bits of (compressed, binary) plus a unified-vs-split
// metadata layout flag.
type Kind int

const (
	KindText Kind = iota
	KindBinary
	KindUnifiedText
	KindUnifiedBinary
	KindSplitText
	KindSplitBinary
	KindCompressedText
	KindCompressedBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindBinary:
		return "Binary"
	case KindUnifiedText:
		return "UnifiedText"
	case KindUnifiedBinary:
		return "UnifiedBinary"
	case KindSplitText:
		return "SplitText"
	case KindSplitBinary:
		return "SplitBinary"
	case KindCompressedText:
		return "CompressedText"
	case KindCompressedBinary:
		return "CompressedBinary"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Binary reports whether this kind's body is the binary token format.
func (k Kind) Binary() bool {
	switch k {
	case KindBinary, KindUnifiedBinary, KindSplitBinary, KindCompressedBinary:
		return true
	default:
		return false
	}
}

// Header is the 24-byte record that opens every save file.
type Header struct {
	kind        Kind
	metadataLen uint64
}

// Kind returns the header's save kind.
func (h Header) Kind() Kind { return h.kind }

// SetKind replaces the header's save kind.
func (h *Header) SetKind(k Kind) { h.kind = k }

// MetadataLen returns the byte length of the metadata section following
// the header.
func (h Header) MetadataLen() uint64 { return h.metadataLen }

// SetMetadataLen replaces the metadata length field.
func (h *Header) SetMetadataLen(n uint64) { h.metadataLen = n }

// New builds a Header directly from its fields, for callers emitting a
// fresh header (e.g. the melter).
func New(kind Kind, metadataLen uint64) Header {
	return Header{kind: kind, metadataLen: metadataLen}
}

// Parse reads the first Size bytes of data as a SaveHeader.
func Parse(data []byte) (Header, error) {
	if len(data) < Size {
		return Header{}, ck3errors.NewInvalidHeader("input shorter than 24-byte header")
	}
	if string(data[0:3]) != magic {
		return Header{}, ck3errors.NewInvalidHeader(fmt.Sprintf("bad magic %q", data[0:3]))
	}
	if data[3] < '0' || data[3] > '9' || data[4] < '0' || data[4] > '9' || data[5] < '0' || data[5] > '9' {
		return Header{}, ck3errors.NewInvalidHeader("kind field is not 3 decimal digits")
	}
	kindDigit := int(data[3]-'0')*100 + int(data[4]-'0')*10 + int(data[5]-'0')
	if kindDigit > int(KindCompressedBinary) {
		return Header{}, ck3errors.NewInvalidHeader(fmt.Sprintf("unknown kind digit %03d", kindDigit))
	}
	if data[6] != ' ' {
		return Header{}, ck3errors.NewInvalidHeader("missing space separator after kind")
	}
	lenField := data[7:15]
	var metaLen uint64
	for _, c := range lenField {
		var v uint64
		switch {
		case c >= '0' && c <= '9':
			v = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			v = uint64(c-'a') + 10
		default:
			return Header{}, ck3errors.NewInvalidHeader("metadata length is not 8 lowercase hex digits")
		}
		metaLen = metaLen<<4 | v
	}
	if data[15] != '\n' {
		return Header{}, ck3errors.NewInvalidHeader("header missing terminating newline")
	}

	return Header{kind: Kind(kindDigit), metadataLen: metaLen}, nil
}

// Write emits exactly Size bytes encoding h (content followed by zero
// padding out to the fixed 24-byte record width).
func (h Header) Write(out []byte) []byte {
	var buf [Size]byte
	copy(buf[0:3], magic)
	buf[3] = byte('0' + (int(h.kind)/100)%10)
	buf[4] = byte('0' + (int(h.kind)/10)%10)
	buf[5] = byte('0' + int(h.kind)%10)
	buf[6] = ' '
	const hexDigits = "0123456789abcdef"
	for i := 0; i < 8; i++ {
		shift := uint(28 - 4*i)
		buf[7+i] = hexDigits[(h.metadataLen>>shift)&0xf]
	}
	buf[15] = '\n'
	// buf[16:24] stays zeroed padding.
	return append(out, buf[:]...)
}

// String implements a debug-friendly representation.
func (h Header) String() string {
	return fmt.Sprintf("Header{Kind: %s, MetadataLen: %d}", h.kind, h.metadataLen)
}
