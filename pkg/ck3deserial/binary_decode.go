package ck3deserial

import (
	"bytes"
	"io"
	"reflect"
	"strconv"

	"github.com/condor/ck3save/pkg/ck3bin"
	"github.com/condor/ck3save/pkg/ck3errors"
	"github.com/condor/ck3save/pkg/ck3flavor"
	"github.com/condor/ck3save/pkg/ck3tokens"
)

// materializeTokens reads an entire binary token stream into memory,
// the same lookahead-by-materialization approach ck3melt uses, kept as
// a local duplicate rather than an exported ck3melt helper so the two
// packages stay reentrant over disjoint inputs.
func materializeTokens(data []byte) ([]ck3bin.Token, error) {
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

// binaryDecoder drives a materialized token slice with an integer
// cursor rather than a pull reader, since the key/value distinction
// needs one-token lookahead.
type binaryDecoder struct {
	tokens []ck3bin.Token
	pos    int
	flavor ck3flavor.Flavor
	dict   ck3tokens.Resolver
}

func (d *binaryDecoder) resolveName(tok ck3bin.Token) (string, bool) {
	switch tok.Kind {
	case ck3bin.KindID:
		if d.dict == nil {
			return "", false
		}
		return d.dict.Resolve(tok.ID)
	case ck3bin.KindQuoted, ck3bin.KindUnquoted:
		return string(tok.Bytes), true
	default:
		return "", false
	}
}

func (d *binaryDecoder) next() (ck3bin.Token, error) {
	if d.pos >= len(d.tokens) {
		return ck3bin.Token{}, io.EOF
	}
	tok := d.tokens[d.pos]
	d.pos++
	return tok, nil
}

func (d *binaryDecoder) peekIsEqual() bool {
	return d.pos < len(d.tokens) && d.tokens[d.pos].Kind == ck3bin.KindEqual
}

func (d *binaryDecoder) decodeStruct(rv reflect.Value) error {
	fields := fieldsByName(rv.Type())
	for d.pos < len(d.tokens) {
		keyTok, _ := d.next()
		if !d.peekIsEqual() {
			return ck3errors.NewDeserialize("expected '=' after key")
		}
		d.pos++ // consume Equal

		name, resolved := d.resolveName(keyTok)
		if !resolved {
			return ck3errors.NewUnknownToken(keyTok.ID)
		}

		idx, ok := fields[name]
		if !ok {
			if _, err := d.decodeValueGenericNext(); err != nil {
				return err
			}
			continue
		}
		if err := d.decodeValueInto(rv.Field(idx)); err != nil {
			return err
		}
	}
	return nil
}

func (d *binaryDecoder) decodeGeneric() (any, error) {
	result := map[string]any{}
	for d.pos < len(d.tokens) {
		keyTok, _ := d.next()
		if !d.peekIsEqual() {
			return nil, ck3errors.NewDeserialize("expected '=' after key")
		}
		d.pos++

		name, resolved := d.resolveName(keyTok)
		if !resolved {
			return nil, ck3errors.NewUnknownToken(keyTok.ID)
		}
		val, err := d.decodeValueGenericNext()
		if err != nil {
			return nil, err
		}
		result[name] = val
	}
	return result, nil
}

func (d *binaryDecoder) decodeValueInto(fv reflect.Value) error {
	switch fv.Kind() {
	case reflect.Struct:
		tok, err := d.next()
		if err != nil {
			return wrapTextErr(err)
		}
		if tok.Kind != ck3bin.KindOpen {
			return ck3errors.NewDeserialize("expected object for struct field")
		}
		return d.decodeStructBody(fv)

	case reflect.Slice:
		tok, err := d.next()
		if err != nil {
			return wrapTextErr(err)
		}
		if tok.Kind != ck3bin.KindOpen {
			return ck3errors.NewDeserialize("expected array for slice field")
		}
		return d.decodeSliceBody(fv)

	case reflect.Map:
		val, err := d.decodeValueGenericNext()
		if err != nil {
			return err
		}
		m, ok := val.(map[string]any)
		if !ok {
			return ck3errors.NewDeserialize("expected object for map field")
		}
		fv.Set(reflect.ValueOf(m))
		return nil

	default:
		tok, err := d.next()
		if err != nil {
			return wrapTextErr(err)
		}
		return d.setScalarField(fv, tok)
	}
}

func (d *binaryDecoder) decodeStructBody(rv reflect.Value) error {
	fields := fieldsByName(rv.Type())
	for {
		tok, err := d.next()
		if err != nil {
			return ck3errors.NewParse("unterminated object", int64(d.pos))
		}
		if tok.Kind == ck3bin.KindClose {
			return nil
		}
		if !d.peekIsEqual() {
			return ck3errors.NewDeserialize("expected '=' after key")
		}
		d.pos++

		name, resolved := d.resolveName(tok)
		if !resolved {
			return ck3errors.NewUnknownToken(tok.ID)
		}
		idx, ok := fields[name]
		if !ok {
			if _, err := d.decodeValueGenericNext(); err != nil {
				return err
			}
			continue
		}
		if err := d.decodeValueInto(rv.Field(idx)); err != nil {
			return err
		}
	}
}

func (d *binaryDecoder) decodeSliceBody(rv reflect.Value) error {
	elemType := rv.Type().Elem()
	var out []reflect.Value
	for {
		tok, err := d.next()
		if err != nil {
			return ck3errors.NewParse("unterminated array", int64(d.pos))
		}
		if tok.Kind == ck3bin.KindClose {
			rv.Set(reflect.Append(reflect.MakeSlice(rv.Type(), 0, len(out)), out...))
			return nil
		}
		elem := reflect.New(elemType).Elem()
		if err := d.assignTokenToValue(tok, elem); err != nil {
			return err
		}
		out = append(out, elem)
	}
}

func (d *binaryDecoder) assignTokenToValue(tok ck3bin.Token, elem reflect.Value) error {
	if tok.Kind == ck3bin.KindOpen {
		switch elem.Kind() {
		case reflect.Struct:
			return d.decodeStructBody(elem)
		case reflect.Slice:
			return d.decodeSliceBody(elem)
		default:
			val, err := d.decodeContainerGeneric()
			if err != nil {
				return err
			}
			elem.Set(reflect.ValueOf(val))
			return nil
		}
	}
	return d.setScalarField(elem, tok)
}

func (d *binaryDecoder) decodeValueGenericNext() (any, error) {
	tok, err := d.next()
	if err != nil {
		return nil, ck3errors.NewParse("missing value", int64(d.pos))
	}
	return d.valueFromToken(tok)
}

func (d *binaryDecoder) valueFromToken(tok ck3bin.Token) (any, error) {
	switch tok.Kind {
	case ck3bin.KindOpen:
		return d.decodeContainerGeneric()
	case ck3bin.KindBool:
		return tok.B, nil
	case ck3bin.KindU32:
		return uint64(tok.U32), nil
	case ck3bin.KindU64:
		return tok.U64, nil
	case ck3bin.KindI64:
		return tok.I64, nil
	case ck3bin.KindI32:
		return int64(tok.I32), nil
	case ck3bin.KindF32:
		return float64(d.flavor.DecodeF32(tok.F32Bits)), nil
	case ck3bin.KindF64:
		return d.flavor.DecodeF64(tok.F64Bits), nil
	case ck3bin.KindQuoted, ck3bin.KindUnquoted:
		return string(tok.Bytes), nil
	case ck3bin.KindRgb:
		return [3]uint32{tok.Rgb.R, tok.Rgb.G, tok.Rgb.B}, nil
	case ck3bin.KindID:
		name, ok := d.resolveName(tok)
		if !ok {
			return nil, ck3errors.NewUnknownToken(tok.ID)
		}
		return name, nil
	default:
		return nil, ck3errors.NewDeserialize("unexpected token as value")
	}
}

// decodeContainerGeneric decodes a container (Open already consumed)
// into a map[string]any or []any, deciding mode from whether the
// second token inside is Equal — the same free-lookahead approach the
// text path uses, here over the materialized slice instead of a pull
// reader.
func (d *binaryDecoder) decodeContainerGeneric() (any, error) {
	first, err := d.next()
	if err != nil {
		return nil, ck3errors.NewParse("unterminated container", int64(d.pos))
	}
	if first.Kind == ck3bin.KindClose {
		return map[string]any{}, nil
	}

	isObject := d.peekIsEqual()
	if isObject {
		result := map[string]any{}
		name, resolved := d.resolveName(first)
		if !resolved {
			return nil, ck3errors.NewUnknownToken(first.ID)
		}
		d.pos++ // consume Equal
		val, err := d.decodeValueGenericNext()
		if err != nil {
			return nil, err
		}
		result[name] = val
		for {
			tok, err := d.next()
			if err != nil {
				return nil, ck3errors.NewParse("unterminated object", int64(d.pos))
			}
			if tok.Kind == ck3bin.KindClose {
				return result, nil
			}
			if !d.peekIsEqual() {
				return nil, ck3errors.NewDeserialize("expected '=' after key")
			}
			d.pos++
			name, resolved := d.resolveName(tok)
			if !resolved {
				return nil, ck3errors.NewUnknownToken(tok.ID)
			}
			v, err := d.decodeValueGenericNext()
			if err != nil {
				return nil, err
			}
			result[name] = v
		}
	}

	arr := []any{}
	v1, err := d.valueFromToken(first)
	if err != nil {
		return nil, err
	}
	arr = append(arr, v1)
	for {
		tok, err := d.next()
		if err != nil {
			return nil, ck3errors.NewParse("unterminated array", int64(d.pos))
		}
		if tok.Kind == ck3bin.KindClose {
			return arr, nil
		}
		v, err := d.valueFromToken(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

func (d *binaryDecoder) setScalarField(fv reflect.Value, tok ck3bin.Token) error {
	switch fv.Kind() {
	case reflect.String:
		switch tok.Kind {
		case ck3bin.KindQuoted, ck3bin.KindUnquoted:
			fv.SetString(string(tok.Bytes))
			return nil
		case ck3bin.KindID:
			name, ok := d.resolveName(tok)
			if !ok {
				return ck3errors.NewUnknownToken(tok.ID)
			}
			fv.SetString(name)
			return nil
		default:
			return ck3errors.NewDeserialize("expected string-like token")
		}

	case reflect.Bool:
		if tok.Kind != ck3bin.KindBool {
			return ck3errors.NewDeserialize("expected bool token")
		}
		fv.SetBool(tok.B)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := d.intValue(tok)
		if err != nil {
			return err
		}
		fv.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := d.uintValue(tok)
		if err != nil {
			return err
		}
		fv.SetUint(n)
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := d.floatValue(tok)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
		return nil

	case reflect.Interface:
		val, err := d.valueFromToken(tok)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(val))
		return nil

	default:
		return ck3errors.NewDeserialize("unsupported scalar field kind " + fv.Kind().String())
	}
}

func (d *binaryDecoder) intValue(tok ck3bin.Token) (int64, error) {
	switch tok.Kind {
	case ck3bin.KindI32:
		return int64(tok.I32), nil
	case ck3bin.KindI64:
		return tok.I64, nil
	case ck3bin.KindU32:
		return int64(tok.U32), nil
	case ck3bin.KindU64:
		return int64(tok.U64), nil
	case ck3bin.KindQuoted, ck3bin.KindUnquoted:
		n, err := strconv.ParseInt(string(tok.Bytes), 10, 64)
		if err != nil {
			return 0, ck3errors.NewDeserialize("expected integer token")
		}
		return n, nil
	default:
		return 0, ck3errors.NewDeserialize("expected integer token")
	}
}

func (d *binaryDecoder) uintValue(tok ck3bin.Token) (uint64, error) {
	switch tok.Kind {
	case ck3bin.KindU32:
		return uint64(tok.U32), nil
	case ck3bin.KindU64:
		return tok.U64, nil
	case ck3bin.KindI32:
		return uint64(tok.I32), nil
	case ck3bin.KindI64:
		return uint64(tok.I64), nil
	default:
		return 0, ck3errors.NewDeserialize("expected unsigned integer token")
	}
}

func (d *binaryDecoder) floatValue(tok ck3bin.Token) (float64, error) {
	switch tok.Kind {
	case ck3bin.KindF32:
		return float64(d.flavor.DecodeF32(tok.F32Bits)), nil
	case ck3bin.KindF64:
		return d.flavor.DecodeF64(tok.F64Bits), nil
	case ck3bin.KindI32:
		return float64(tok.I32), nil
	default:
		return 0, ck3errors.NewDeserialize("expected float token")
	}
}
