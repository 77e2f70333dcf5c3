package ck3text

import (
	"bufio"
	"io"

	"github.com/condor/ck3save/pkg/ck3errors"
)

// Reader is a pull lexer over the textual key-value dialect: `#` starts
// a line comment, `{`/`}` delimit objects and arrays, `=` separates key
// from value, `"..."` is a quoted scalar, and any other run of
// non-whitespace, non-delimiter bytes is an unquoted scalar.
type Reader struct {
	r      *bufio.Reader
	offset int64
}

// NewReader wraps r as a text token stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Offset returns the number of bytes consumed so far, for error
// reporting.
func (r *Reader) Offset() int64 { return r.offset }

func (r *Reader) readByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.offset++
	return b, nil
}

func (r *Reader) unreadByte() {
	_ = r.r.UnreadByte()
	r.offset--
}

func isDelimiter(b byte) bool {
	switch b {
	case '{', '}', '=', '"', '#':
		return true
	}
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// skipWhitespaceAndComments advances past whitespace and `#`-to-end-of-
// line comments, returning io.EOF once the stream is exhausted.
func (r *Reader) skipWhitespaceAndComments() error {
	for {
		b, err := r.readByte()
		if err != nil {
			return err
		}
		switch {
		case b == '#':
			for {
				c, err := r.readByte()
				if err != nil {
					return err
				}
				if c == '\n' {
					break
				}
			}
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			continue
		default:
			r.unreadByte()
			return nil
		}
	}
}

// Next returns the next token, or io.EOF when the stream is exhausted
// cleanly between tokens.
func (r *Reader) Next() (Token, error) {
	if err := r.skipWhitespaceAndComments(); err != nil {
		if err == io.EOF {
			return Token{}, io.EOF
		}
		return Token{}, ck3errors.NewIO(err)
	}

	b, err := r.readByte()
	if err != nil {
		return Token{}, ck3errors.NewIO(err)
	}

	switch b {
	case '{':
		return Token{Kind: KindOpen}, nil
	case '}':
		return Token{Kind: KindClose}, nil
	case '=':
		return Token{Kind: KindEqual}, nil
	case '"':
		return r.readQuoted()
	default:
		r.unreadByte()
		return r.readUnquoted()
	}
}

func (r *Reader) readQuoted() (Token, error) {
	var buf []byte
	for {
		b, err := r.readByte()
		if err != nil {
			return Token{}, ck3errors.NewParse("unterminated quoted string", r.offset)
		}
		if b == '"' {
			return Token{Kind: KindQuoted, Bytes: buf}, nil
		}
		if b == '\\' {
			next, err := r.readByte()
			if err != nil {
				return Token{}, ck3errors.NewParse("unterminated quoted string", r.offset)
			}
			buf = append(buf, next)
			continue
		}
		buf = append(buf, b)
	}
}

func (r *Reader) readUnquoted() (Token, error) {
	var buf []byte
	for {
		b, err := r.readByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, ck3errors.NewIO(err)
		}
		if isDelimiter(b) {
			r.unreadByte()
			break
		}
		buf = append(buf, b)
	}
	if len(buf) == 0 {
		return Token{}, ck3errors.NewParse("empty unquoted token", r.offset)
	}
	return Token{Kind: KindUnquoted, Bytes: buf}, nil
}

// Read asserts the stream is not at EOF, returning ck3errors.ParseError
// if it is.
func (r *Reader) Read() (Token, error) {
	tok, err := r.Next()
	if err == io.EOF {
		return Token{}, ck3errors.NewParse("unexpected end of text stream", r.offset)
	}
	return tok, err
}

// SkipContainer consumes tokens until the Close matching the Open that
// was just returned by the caller, honoring nested containers.
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
