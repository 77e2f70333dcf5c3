package ck3bin

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/condor/ck3save/pkg/ck3errors"
)

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestReaderScalarOpcodes(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u16le(opOpen))
	buf.Write(u16le(0x2222)) // unknown opcode -> identifier
	buf.Write(u16le(opEqual))
	buf.Write(u16le(opI32))
	buf.Write(u32le(uint32(int32(-5))))
	buf.Write(u16le(opBool))
	buf.WriteByte(1)
	buf.Write(u16le(opClose))

	r := NewReader(&buf)

	tok, err := r.Read()
	if err != nil || tok.Kind != KindOpen {
		t.Fatalf("token 1 = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindID || tok.ID != 0x2222 {
		t.Fatalf("token 2 = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindEqual {
		t.Fatalf("token 3 = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindI32 || tok.I32 != -5 {
		t.Fatalf("token 4 = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindBool || tok.B != true {
		t.Fatalf("token 5 = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindClose {
		t.Fatalf("token 6 = %+v, err %v", tok, err)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReaderQuotedUnquoted(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u16le(opQuoted))
	buf.Write(u16le(5))
	buf.WriteString("hello")
	buf.Write(u16le(opUnquoted))
	buf.Write(u16le(3))
	buf.WriteString("foo")

	r := NewReader(&buf)

	tok, err := r.Read()
	if err != nil || tok.Kind != KindQuoted || string(tok.Bytes) != "hello" {
		t.Fatalf("quoted token = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindUnquoted || string(tok.Bytes) != "foo" {
		t.Fatalf("unquoted token = %+v, err %v", tok, err)
	}
}

func TestReaderRgbBundling(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u16le(opRgb))
	buf.Write(u16le(opOpen))
	buf.Write(u16le(opU32))
	buf.Write(u32le(10))
	buf.Write(u16le(opU32))
	buf.Write(u32le(20))
	buf.Write(u16le(opU32))
	buf.Write(u32le(30))
	buf.Write(u16le(opClose))

	r := NewReader(&buf)
	tok, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tok.Kind != KindRgb {
		t.Fatalf("kind = %v, want KindRgb", tok.Kind)
	}
	want := Rgb{R: 10, G: 20, B: 30}
	if tok.Rgb != want {
		t.Errorf("rgb = %+v, want %+v", tok.Rgb, want)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after rgb bundle, got %v", err)
	}
}

func TestReaderRgbMalformedShape(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u16le(opRgb))
	buf.Write(u16le(opOpen))
	buf.Write(u16le(opU32))
	buf.Write(u32le(10))
	// missing the other two channels and the close

	r := NewReader(&buf)
	if _, err := r.Read(); err == nil {
		t.Fatal("expected parse error for truncated rgb value")
	}
}

func TestReaderSkipContainerNested(t *testing.T) {
	var buf bytes.Buffer
	// outer open already consumed by caller before calling SkipContainer
	buf.Write(u16le(opOpen)) // nested open
	buf.Write(u16le(opEqual))
	buf.Write(u16le(opClose)) // closes nested
	buf.Write(u16le(opClose)) // closes outer
	buf.Write(u16le(opBool))  // sentinel after the container
	buf.WriteByte(1)

	r := NewReader(&buf)
	if err := r.SkipContainer(); err != nil {
		t.Fatalf("SkipContainer: %v", err)
	}
	tok, err := r.Read()
	if err != nil || tok.Kind != KindBool {
		t.Fatalf("sentinel token = %+v, err %v", tok, err)
	}
}

func TestReaderSkipContainerUnclosed(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u16le(opEqual))

	r := NewReader(&buf)
	if err := r.SkipContainer(); err == nil {
		t.Fatal("expected parse error for unclosed container")
	} else if kind, _ := ck3errors.KindOf(err); kind != ck3errors.KindParse {
		t.Errorf("kind = %v, want KindParse", kind)
	}
}

func TestReaderReadAssertsNonEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	if _, err := r.Read(); err == nil {
		t.Fatal("expected parse error from Read at EOF")
	} else if kind, _ := ck3errors.KindOf(err); kind != ck3errors.KindParse {
		t.Errorf("kind = %v, want KindParse", kind)
	}
}

func TestReaderU64I64F32F64(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u16le(opU64))
	u64b := make([]byte, 8)
	binary.LittleEndian.PutUint64(u64b, 1<<40)
	buf.Write(u64b)

	buf.Write(u16le(opI64))
	i64b := make([]byte, 8)
	binary.LittleEndian.PutUint64(i64b, uint64(int64(-1)))
	buf.Write(i64b)

	buf.Write(u16le(opF32))
	buf.Write([]byte{1, 2, 3, 4})

	buf.Write(u16le(opF64))
	buf.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	r := NewReader(&buf)

	tok, err := r.Read()
	if err != nil || tok.Kind != KindU64 || tok.U64 != 1<<40 {
		t.Fatalf("u64 token = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindI64 || tok.I64 != -1 {
		t.Fatalf("i64 token = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindF32 || tok.F32Bits != [4]byte{1, 2, 3, 4} {
		t.Fatalf("f32 token = %+v, err %v", tok, err)
	}
	tok, err = r.Read()
	if err != nil || tok.Kind != KindF64 || tok.F64Bits != [8]byte{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Fatalf("f64 token = %+v, err %v", tok, err)
	}
}
