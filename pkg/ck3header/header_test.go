package ck3header

import (
	"bytes"
	"testing"
)

func fixture(kindDigits, hexLen string) []byte {
	s := "SAV" + kindDigits + " " + hexLen + "\n"
	buf := make([]byte, Size)
	copy(buf, s)
	return buf
}

func TestParseS1(t *testing.T) {
	data := fixture("002", "00000334")
	h, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if h.Kind() != KindUnifiedText {
		t.Errorf("Kind() = %v, want UnifiedText", h.Kind())
	}
	if h.MetadataLen() != 0x334 {
		t.Errorf("MetadataLen() = %d, want %d", h.MetadataLen(), 0x334)
	}
}

func TestRoundTrip(t *testing.T) {
	data := fixture("005", "0000abcd")
	h, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out := h.Write(nil)
	if len(out) != Size {
		t.Fatalf("Write produced %d bytes, want %d", len(out), Size)
	}

	h2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse failed: %v", err)
	}
	if h2.Kind() != h.Kind() || h2.MetadataLen() != h.MetadataLen() {
		t.Errorf("round trip mismatch: %+v vs %+v", h, h2)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := fixture("002", "00000334")
	data[0] = 'X'
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestParseRejectsShortInput(t *testing.T) {
	if _, err := Parse([]byte("SAV000")); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestParseRejectsBadKindDigit(t *testing.T) {
	data := fixture("009", "00000000")
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for out-of-range kind digit")
	}
}

func TestParseRejectsBadHex(t *testing.T) {
	data := fixture("002", "0000003g")
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for non-hex length field")
	}
}

func TestSetKindAndLen(t *testing.T) {
	h := New(KindBinary, 10)
	h.SetKind(KindText)
	h.SetMetadataLen(99)
	if h.Kind() != KindText || h.MetadataLen() != 99 {
		t.Errorf("setters did not apply: %+v", h)
	}
	out := h.Write(nil)
	if !bytes.HasPrefix(out, []byte("SAV000 00000063")) {
		t.Errorf("unexpected encoding: %q", out)
	}
}
