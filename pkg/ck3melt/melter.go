// Package ck3melt implements the binary→text
// rewriting state machine that transcodes a tokenized save into an
// equivalent textual save the game accepts.
package ck3melt

import (
	"bytes"
	"io"

	"github.com/condor/ck3save/pkg/ck3bin"
	"github.com/condor/ck3save/pkg/ck3errors"
	"github.com/condor/ck3save/pkg/ck3flavor"
	"github.com/condor/ck3save/pkg/ck3header"
	"github.com/condor/ck3save/pkg/ck3save"
	"github.com/condor/ck3save/pkg/ck3text"
	"github.com/condor/ck3save/pkg/ck3tokens"
)

// Policy controls how the melter handles a binary identifier missing
// from the token dictionary.
type Policy int

const (
	PolicyError Policy = iota
	PolicyIgnore
	PolicyStringify
)

// MeltedDocument is returned alongside the melted bytes so callers can
// report identifiers the dictionary could not resolve.
type MeltedDocument struct {
	UnknownTokens map[uint16]bool
}

// Melter drives BinaryTokenReader -> Flavor -> TextWriter to
// transcode a binary save into text.
type Melter struct {
	// Dict resolves binary identifier opcodes to names. Required for
	// any input containing identifiers outside the small opcode table.
	Dict ck3tokens.Resolver

	// OnFailedResolve controls the fallback when Dict cannot resolve
	// an identifier. NewMelter sets PolicyStringify; the zero value is
	// PolicyError.
	OnFailedResolve Policy

	// Verbatim disables ironman key suppression, preserving the save
	// exactly including its `ironman`/`ironman_manager` flags.
	Verbatim bool
}

// NewMelter returns a Melter using dict for identifier resolution and
// the default (Stringify) failed-resolve policy.
func NewMelter(dict ck3tokens.Resolver) *Melter {
	return &Melter{Dict: dict, OnFailedResolve: PolicyStringify}
}

// Melt converts a save's full bytes (header included) into a textual
// save. If the input is already text, it is returned unchanged.
func (m *Melter) Melt(data []byte) ([]byte, MeltedDocument, error) {
	doc := MeltedDocument{UnknownTokens: map[uint16]bool{}}

	env, err := ck3save.FromSlice(data)
	if err != nil {
		return nil, doc, err
	}
	defer env.Close()

	if !env.Kind().Binary() {
		out := make([]byte, len(data))
		copy(out, data)
		return out, doc, nil
	}

	gsReader, err := env.GamestateReader()
	if err != nil {
		return nil, doc, err
	}
	gsBytes, err := io.ReadAll(gsReader)
	if err != nil {
		return nil, doc, ck3errors.NewIO(err)
	}

	tokens, err := materialize(gsBytes)
	if err != nil {
		return nil, doc, err
	}

	window := tokens
	if len(window) > 64 {
		window = window[:64]
	}
	flavor := ck3flavor.SelectFromTokens(window)

	var gsBuf bytes.Buffer
	writer := ck3text.NewWriter(&gsBuf)
	rw := &rewriter{
		melter: m,
		tokens: tokens,
		flavor: flavor,
		w:      writer,
		doc:    &doc,
	}
	if err := rw.run(); err != nil {
		return nil, doc, err
	}
	if err := writer.Err(); err != nil {
		return nil, doc, err
	}

	// A save's `meta` zip member, when present, is itself a binary
	// token stream rather than pre-melted text, and melting it would
	// also skip ironman suppression over its contents. Rather than
	// melt it separately, the metadata section is taken as the leading
	// block of the melted gamestate body, which always opens with
	// meta_data: this matches every shape (unified, split, and plain
	// binary) uniformly.
	metaBuf, gamestateBuf := splitInlineMetadata(gsBuf.Bytes())
	if len(metaBuf) == 0 || metaBuf[len(metaBuf)-1] != '\n' {
		metaBuf = append(metaBuf, '\n')
	}

	hdr := ck3header.New(ck3header.KindText, uint64(len(metaBuf)))
	out := hdr.Write(nil)
	out = append(out, metaBuf...)
	out = append(out, gamestateBuf...)

	return out, doc, nil
}

// materialize reads the entire binary token stream into memory. The
// rewriting state machine needs lookahead (is the current identifier a
// key? does the next token complete an rgb bundle?) that a pure pull
// parser cannot offer without buffering, so the melter works over a
// fully read slice. The deserializer's binary path materializes its
// tokens the same way.
func materialize(data []byte) ([]ck3bin.Token, error) {
	r := ck3bin.NewReader(bytes.NewReader(data))
	var tokens []ck3bin.Token
	for {
		tok, err := r.Next()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

// splitInlineMetadata locates the first top-level construct in melted
// text (a brace/quote-aware scan for the first newline at container
// depth zero) and treats its span as the metadata section. Every
// binary shape's gamestate body opens with this construct (meta_data),
// so this is used uniformly regardless of whether the save also
// carries a separate binary `meta` zip member.
func splitInlineMetadata(data []byte) (meta, rest []byte) {
	depth := 0
	inQuotes := false
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == '"' && (i == 0 || data[i-1] != '\\'):
			inQuotes = !inQuotes
		case inQuotes:
			continue
		case b == '{':
			depth++
		case b == '}':
			depth--
		case b == '\n' && depth == 0:
			return data[:i+1], data[i+1:]
		}
	}
	return data, nil
}
