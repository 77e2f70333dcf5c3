package ck3bin

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/condor/ck3save/pkg/ck3errors"
)

// Reader is a pull parser over the binary token wire format: every
// token is prefixed by a 2-byte little-endian opcode.
type Reader struct {
	r      *bufio.Reader
	offset int64
}

// NewReader wraps r as a binary token stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Offset returns the number of bytes consumed so far, for error
// reporting.
func (r *Reader) Offset() int64 { return r.offset }

func (r *Reader) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r.r, buf)
	r.offset += int64(read)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, ck3errors.NewParse("unexpected end of binary stream", r.offset)
		}
		return nil, ck3errors.NewIO(err)
	}
	return buf, nil
}

func (r *Reader) readUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Next returns the next token, or io.EOF when the stream is exhausted
// cleanly (between tokens, not mid-token).
func (r *Reader) Next() (Token, error) {
	opcodeBytes, err := r.peekOpcode()
	if err != nil {
		return Token{}, err
	}
	if opcodeBytes < 0 {
		return Token{}, io.EOF
	}

	opcode := uint16(opcodeBytes)
	if _, err := r.readUint16(); err != nil {
		return Token{}, err
	}

	if opcode == opRgb {
		return r.readRgb()
	}
	return r.readRaw(opcode)
}

// peekOpcode reports the next 2-byte opcode without consuming it, or -1
// on clean EOF. A single leftover byte is a truncated opcode.
func (r *Reader) peekOpcode() (int, error) {
	b, err := r.r.Peek(2)
	if err != nil {
		if err == io.EOF {
			if len(b) == 0 {
				return -1, nil
			}
			return -1, ck3errors.NewParse("truncated opcode at end of binary stream", r.offset)
		}
		return -1, ck3errors.NewIO(err)
	}
	return int(binary.LittleEndian.Uint16(b)), nil
}

// readRaw decodes the token body following an already-consumed opcode,
// without the Rgb bundling Next performs.
func (r *Reader) readRaw(opcode uint16) (Token, error) {
	switch opcode {
	case opEqual:
		return Token{Kind: KindEqual}, nil
	case opOpen:
		return Token{Kind: KindOpen}, nil
	case opClose:
		return Token{Kind: KindClose}, nil
	case opBool:
		b, err := r.readBytes(1)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindBool, B: b[0] != 0}, nil
	case opI32:
		b, err := r.readBytes(4)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindI32, I32: int32(binary.LittleEndian.Uint32(b))}, nil
	case opU32:
		b, err := r.readBytes(4)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindU32, U32: binary.LittleEndian.Uint32(b)}, nil
	case opU64:
		b, err := r.readBytes(8)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindU64, U64: binary.LittleEndian.Uint64(b)}, nil
	case opI64:
		b, err := r.readBytes(8)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindI64, I64: int64(binary.LittleEndian.Uint64(b))}, nil
	case opF32:
		b, err := r.readBytes(4)
		if err != nil {
			return Token{}, err
		}
		var tok Token
		tok.Kind = KindF32
		copy(tok.F32Bits[:], b)
		return tok, nil
	case opF64:
		b, err := r.readBytes(8)
		if err != nil {
			return Token{}, err
		}
		var tok Token
		tok.Kind = KindF64
		copy(tok.F64Bits[:], b)
		return tok, nil
	case opQuoted, opUnquoted:
		lenBytes, err := r.readBytes(2)
		if err != nil {
			return Token{}, err
		}
		n := binary.LittleEndian.Uint16(lenBytes)
		payload, err := r.readBytes(int(n))
		if err != nil {
			return Token{}, err
		}
		kind := KindQuoted
		if opcode == opUnquoted {
			kind = KindUnquoted
		}
		return Token{Kind: kind, Bytes: payload}, nil
	default:
		return Token{Kind: KindID, ID: opcode}, nil
	}
}

// readRgb consumes the five raw tokens that follow an rgb opcode (Open
// U32 U32 U32 Close) and bundles them into a single Rgb token.
func (r *Reader) readRgb() (Token, error) {
	expectOpen, err := r.readNextOpcode()
	if err != nil {
		return Token{}, err
	}
	open, err := r.readRaw(expectOpen)
	if err != nil {
		return Token{}, err
	}
	if open.Kind != KindOpen {
		return Token{}, ck3errors.NewParse("rgb value missing opening container", r.offset)
	}

	var channels [3]uint32
	for i := 0; i < 3; i++ {
		op, err := r.readNextOpcode()
		if err != nil {
			return Token{}, err
		}
		tok, err := r.readRaw(op)
		if err != nil {
			return Token{}, err
		}
		if tok.Kind != KindU32 {
			return Token{}, ck3errors.NewParse("rgb channel is not a u32", r.offset)
		}
		channels[i] = tok.U32
	}

	op, err := r.readNextOpcode()
	if err != nil {
		return Token{}, err
	}
	closeTok, err := r.readRaw(op)
	if err != nil {
		return Token{}, err
	}
	if closeTok.Kind != KindClose {
		return Token{}, ck3errors.NewParse("rgb value missing closing container", r.offset)
	}

	return Token{Kind: KindRgb, Rgb: Rgb{R: channels[0], G: channels[1], B: channels[2]}}, nil
}

func (r *Reader) readNextOpcode() (uint16, error) {
	return r.readUint16()
}

// Read asserts the stream is not at EOF, returning ck3errors.ParseError
// if it is.
func (r *Reader) Read() (Token, error) {
	tok, err := r.Next()
	if err == io.EOF {
		return Token{}, ck3errors.NewParse("unexpected end of binary stream", r.offset)
	}
	return tok, err
}

// SkipContainer consumes tokens until the Close matching the Open that
// was just returned by the caller (i.e. it expects to be called right
// after receiving a KindOpen token), honoring nested containers.
func (r *Reader) SkipContainer() error {
	depth := 1
	for depth > 0 {
		tok, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return ck3errors.NewParse("unclosed container at end of stream", r.offset)
			}
			return err
		}
		switch tok.Kind {
		case KindOpen:
			depth++
		case KindClose:
			depth--
		}
	}
	return nil
}
