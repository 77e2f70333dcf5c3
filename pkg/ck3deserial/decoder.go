// Package ck3deserial implements a single descent
// interface that dispatches to either the text or the binary parser,
// translating low-level parse errors into the typed ck3errors
// taxonomy.
package ck3deserial

import (
	"io"
	"reflect"
	"strings"

	"github.com/condor/ck3save/pkg/ck3errors"
	"github.com/condor/ck3save/pkg/ck3flavor"
	"github.com/condor/ck3save/pkg/ck3save"
	"github.com/condor/ck3save/pkg/ck3text"
	"github.com/condor/ck3save/pkg/ck3tokens"
)

// decoder is the internal dispatch target, implemented by textDecoder
// and binaryDecoder (Design Notes option (b): a small runtime-tagged
// variant with explicit dispatch, rather than compile-time generics).
type decoder interface {
	decodeStruct(rv reflect.Value) error
	decodeGeneric() (any, error)
}

// Decoder presents the single `Decode` descent method over either a
// text or a binary save, chosen once at construction from the
// envelope's classified kind.
type Decoder struct {
	impl decoder
}

// NewDecoder selects the text or binary path for env. dict resolves
// binary identifiers and is ignored for text saves.
func NewDecoder(env *ck3save.Envelope, dict ck3tokens.Resolver) (*Decoder, error) {
	gs, err := env.GamestateReader()
	if err != nil {
		return nil, err
	}

	if !env.Kind().Binary() {
		return &Decoder{impl: &textDecoder{r: ck3text.NewReader(gs)}}, nil
	}

	data, err := io.ReadAll(gs)
	if err != nil {
		return nil, ck3errors.NewIO(err)
	}
	tokens, err := materializeTokens(data)
	if err != nil {
		return nil, err
	}
	window := tokens
	if len(window) > 64 {
		window = window[:64]
	}
	flavor := ck3flavor.SelectFromTokens(window)

	return &Decoder{impl: &binaryDecoder{tokens: tokens, flavor: flavor, dict: dict}}, nil
}

// Decode fills v, which must be a non-nil pointer to a struct or to a
// map[string]any. Any other top-level shape is rejected ("only struct
// at top level"), relaxed here to also accept a generic map target,
// the shape CLI tooling like `json` needs for an arbitrary save.
func (d *Decoder) Decode(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ck3errors.NewDeserialize("decode target must be a non-nil pointer")
	}
	elem := rv.Elem()
	switch elem.Kind() {
	case reflect.Struct:
		return d.impl.decodeStruct(elem)
	case reflect.Map:
		val, err := d.impl.decodeGeneric()
		if err != nil {
			return err
		}
		m, ok := val.(map[string]any)
		if !ok {
			return ck3errors.NewDeserialize("top-level value is not an object")
		}
		elem.Set(reflect.ValueOf(m))
		return nil
	default:
		return ck3errors.NewDeserialize("only struct at top level")
	}
}

// fieldName resolves the identifier a struct field is bound to: the
// `ck3:"..."` tag if present, otherwise the lower-cased field name —
// the same tag-or-fallback convention encoding/json popularized.
func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("ck3"); ok && tag != "" && tag != "-" {
		return tag
	}
	return strings.ToLower(f.Name)
}

// fieldsByName indexes a struct type's exported fields by resolved
// identifier.
func fieldsByName(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		out[fieldName(f)] = i
	}
	return out
}
