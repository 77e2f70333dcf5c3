package ck3text

import (
	"io"
	"strings"
	"testing"
)

func collect(t *testing.T, src string) []Token {
	t.Helper()
	r := NewReader(strings.NewReader(src))
	var toks []Token
	for {
		tok, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestReaderBasicKeyValue(t *testing.T) {
	toks := collect(t, `version="1.0.2"`)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3: %+v", len(toks), toks)
	}
	if toks[0].Kind != KindUnquoted || string(toks[0].Bytes) != "version" {
		t.Errorf("token 0 = %+v", toks[0])
	}
	if toks[1].Kind != KindEqual {
		t.Errorf("token 1 = %+v", toks[1])
	}
	if toks[2].Kind != KindQuoted || string(toks[2].Bytes) != "1.0.2" {
		t.Errorf("token 2 = %+v", toks[2])
	}
}

func TestReaderObjectAndComment(t *testing.T) {
	src := "# a comment\nmeta_data={\n\tversion=1\n}\n"
	toks := collect(t, src)
	want := []Kind{KindUnquoted, KindEqual, KindOpen, KindUnquoted, KindEqual, KindUnquoted, KindClose}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestReaderEscapedQuote(t *testing.T) {
	toks := collect(t, `name="say \"hi\""`)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens: %+v", len(toks), toks)
	}
	if string(toks[2].Bytes) != `say "hi"` {
		t.Errorf("quoted value = %q, want %q", toks[2].Bytes, `say "hi"`)
	}
}

func TestReaderUnterminatedQuote(t *testing.T) {
	r := NewReader(strings.NewReader(`name="unterminated`))
	if _, err := r.Next(); err != nil {
		t.Fatalf("first token: %v", err)
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("equal token: %v", err)
	}
	if _, err := r.Next(); err == nil {
		t.Fatal("expected parse error for unterminated quoted string")
	}
}

func TestReaderSkipContainerNested(t *testing.T) {
	src := "{ a=1 b={ c=2 } }"
	r := NewReader(strings.NewReader(src))
	tok, err := r.Read()
	if err != nil || tok.Kind != KindOpen {
		t.Fatalf("expected opening Open, got %+v err %v", tok, err)
	}
	if err := r.SkipContainer(); err != nil {
		t.Fatalf("SkipContainer: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF after skipping outer container, got %v", err)
	}
}
