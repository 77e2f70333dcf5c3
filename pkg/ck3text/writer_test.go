package ck3text

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterSimpleKeyValue(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteUnquoted([]byte("version")); err != nil {
		t.Fatal(err)
	}
	if err := w.Equal(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteQuoted([]byte("1.0.2")); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, `version="1.0.2"`) {
		t.Errorf("output = %q, want to contain version=\"1.0.2\"", got)
	}
}

func TestWriterNestedObject(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	mustWrite := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	mustWrite(w.WriteUnquoted([]byte("meta_data")))
	mustWrite(w.Equal())
	mustWrite(w.Open())
	mustWrite(w.WriteUnquoted([]byte("version")))
	mustWrite(w.Equal())
	mustWrite(w.WriteUnquoted([]byte("1")))
	mustWrite(w.Close())

	got := buf.String()
	if !strings.Contains(got, "meta_data={") {
		t.Errorf("output = %q, want to contain meta_data={", got)
	}
	if !strings.Contains(got, "version=1") {
		t.Errorf("output = %q, want to contain version=1", got)
	}
	if !strings.HasSuffix(strings.TrimRight(got, "\n"), "}") {
		t.Errorf("output = %q, want to end with }", got)
	}
}

func TestWriterMixedModeArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	mustWrite := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	mustWrite(w.WriteUnquoted([]byte("list")))
	mustWrite(w.Equal())
	mustWrite(w.Open())
	mustWrite(w.WriteUnquoted([]byte("1")))
	mustWrite(w.WriteUnquoted([]byte("2")))
	mustWrite(w.WriteUnquoted([]byte("key")))
	mustWrite(w.Equal())
	mustWrite(w.WriteUnquoted([]byte("value")))
	mustWrite(w.Close())

	got := buf.String()
	if !strings.Contains(got, "1 2") {
		t.Errorf("output = %q, want bare array elements space separated", got)
	}
	if !strings.Contains(got, "key=value") {
		t.Errorf("output = %q, want key=value with no intervening space", got)
	}
}

func TestWriterRgb(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteRgb(10, 20, 30); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "rgb { 10 20 30 }") {
		t.Errorf("output = %q, want rgb { 10 20 30 }", got)
	}
}

func TestWriterCloseWithoutOpenErrors(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Close(); err == nil {
		t.Fatal("expected error closing with no open container")
	}
}
