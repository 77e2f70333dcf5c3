package ck3deserial

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/condor/ck3save/pkg/ck3header"
	"github.com/condor/ck3save/pkg/ck3save"
	"github.com/condor/ck3save/pkg/ck3tokens"
)

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func buildTextSave(t *testing.T, body string) []byte {
	t.Helper()
	hdr := ck3header.New(ck3header.KindText, uint64(len(body)))
	out := hdr.Write(nil)
	out = append(out, body...)
	return out
}

type testSave struct {
	Version string `ck3:"version"`
	Meta    struct {
		Gold int64 `ck3:"gold"`
	} `ck3:"meta_data"`
}

func TestDecodeStructFromText(t *testing.T) {
	data := buildTextSave(t, "version=\"1.0.2\"\nmeta_data={\n\tgold=100\n}\n")
	env, err := ck3save.FromSlice(data)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	dec, err := NewDecoder(env, nil)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	var out testSave
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Version != "1.0.2" {
		t.Errorf("Version = %q, want 1.0.2", out.Version)
	}
	if out.Meta.Gold != 100 {
		t.Errorf("Meta.Gold = %d, want 100", out.Meta.Gold)
	}
}

func TestDecodeGenericFromText(t *testing.T) {
	data := buildTextSave(t, "version=\"1.0.2\"\nflags={ a b c }\n")
	env, err := ck3save.FromSlice(data)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	dec, err := NewDecoder(env, nil)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out["version"] != "1.0.2" {
		t.Errorf("version = %v", out["version"])
	}
	arr, ok := out["flags"].([]any)
	if !ok || len(arr) != 3 {
		t.Errorf("flags = %v, want 3-element array", out["flags"])
	}
}

func buildBinarySave(t *testing.T) ([]byte, ck3tokens.Map) {
	t.Helper()
	var buf bytes.Buffer
	const (
		opEqual = 0x01
		opOpen  = 0x03
		opClose = 0x04
		opI64   = 0x9C
		opQuoted = 0x0F
	)
	// version="1.0.2"
	buf.Write(u16(2001))
	buf.Write(u16(opEqual))
	buf.Write(u16(opQuoted))
	buf.Write(u16(5))
	buf.WriteString("1.0.2")
	// meta_data={ gold=100 }
	buf.Write(u16(2002))
	buf.Write(u16(opEqual))
	buf.Write(u16(opOpen))
	buf.Write(u16(2003))
	buf.Write(u16(opEqual))
	buf.Write(u16(opI64))
	b8 := make([]byte, 8)
	binary.LittleEndian.PutUint64(b8, uint64(100))
	buf.Write(b8)
	buf.Write(u16(opClose))

	hdr := ck3header.New(ck3header.KindBinary, 0)
	out := append(hdr.Write(nil), buf.Bytes()...)
	dict := ck3tokens.Map{2001: "version", 2002: "meta_data", 2003: "gold"}
	return out, dict
}

func TestDecodeStructFromBinary(t *testing.T) {
	data, dict := buildBinarySave(t)
	env, err := ck3save.FromSlice(data)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	dec, err := NewDecoder(env, dict)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	var out testSave
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Version != "1.0.2" {
		t.Errorf("Version = %q, want 1.0.2", out.Version)
	}
	if out.Meta.Gold != 100 {
		t.Errorf("Meta.Gold = %d, want 100", out.Meta.Gold)
	}
}

func TestDecodeUnresolvedBinaryIdentifierErrors(t *testing.T) {
	data, _ := buildBinarySave(t)
	env, err := ck3save.FromSlice(data)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	dec, err := NewDecoder(env, ck3tokens.Map{})
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	var out map[string]any
	if err := dec.Decode(&out); err == nil {
		t.Fatal("expected an error for an unresolved identifier")
	}
}

func TestDecodeRejectsNonStructNonMapTarget(t *testing.T) {
	data := buildTextSave(t, "version=\"1.0.2\"\n")
	env, err := ck3save.FromSlice(data)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	dec, err := NewDecoder(env, nil)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	var n int
	if err := dec.Decode(&n); err == nil {
		t.Fatal("expected an error decoding into a non-struct, non-map target")
	}
}
