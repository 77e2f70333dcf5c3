package ck3deserial

import (
	"io"
	"reflect"
	"strconv"

	"github.com/condor/ck3save/pkg/ck3errors"
	"github.com/condor/ck3save/pkg/ck3text"
)

// textDecoder drives the text reader.
type textDecoder struct {
	r *ck3text.Reader
}

func wrapTextErr(err error) error {
	if err == io.EOF {
		return ck3errors.NewParse("unexpected end of input", 0)
	}
	return err
}

func (d *textDecoder) decodeStruct(rv reflect.Value) error {
	fields := fieldsByName(rv.Type())
	for {
		keyTok, err := d.r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if keyTok.Kind != ck3text.KindUnquoted && keyTok.Kind != ck3text.KindQuoted {
			return ck3errors.NewDeserialize("expected identifier key")
		}
		eq, err := d.r.Read()
		if err != nil {
			return err
		}
		if eq.Kind != ck3text.KindEqual {
			return ck3errors.NewDeserialize("expected '=' after key")
		}

		idx, ok := fields[string(keyTok.Bytes)]
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

func (d *textDecoder) decodeGeneric() (any, error) {
	result := map[string]any{}
	for {
		tok, err := d.r.Next()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		if tok.Kind != ck3text.KindUnquoted && tok.Kind != ck3text.KindQuoted {
			return nil, ck3errors.NewDeserialize("expected identifier key at top level")
		}
		eq, err := d.r.Read()
		if err != nil {
			return nil, err
		}
		if eq.Kind != ck3text.KindEqual {
			return nil, ck3errors.NewDeserialize("expected '=' after top-level key")
		}
		val, err := d.decodeValueGenericNext()
		if err != nil {
			return nil, err
		}
		result[string(tok.Bytes)] = val
	}
}

// decodeValueInto assigns the next value token (or container) into fv,
// a field of the caller's struct.
func (d *textDecoder) decodeValueInto(fv reflect.Value) error {
	switch fv.Kind() {
	case reflect.Struct:
		tok, err := d.r.Read()
		if err != nil {
			return err
		}
		if tok.Kind != ck3text.KindOpen {
			return ck3errors.NewDeserialize("expected object for struct field")
		}
		return d.decodeStructBody(fv)

	case reflect.Slice:
		tok, err := d.r.Read()
		if err != nil {
			return err
		}
		if tok.Kind != ck3text.KindOpen {
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
		tok, err := d.r.Read()
		if err != nil {
			return err
		}
		return setScalarField(fv, tok.Kind == ck3text.KindQuoted, tok.Bytes)
	}
}

func (d *textDecoder) decodeStructBody(rv reflect.Value) error {
	fields := fieldsByName(rv.Type())
	for {
		tok, err := d.r.Next()
		if err == io.EOF {
			return ck3errors.NewParse("unterminated object", 0)
		}
		if err != nil {
			return err
		}
		if tok.Kind == ck3text.KindClose {
			return nil
		}
		if tok.Kind != ck3text.KindUnquoted && tok.Kind != ck3text.KindQuoted {
			return ck3errors.NewDeserialize("expected identifier key")
		}
		eq, err := d.r.Read()
		if err != nil {
			return err
		}
		if eq.Kind != ck3text.KindEqual {
			return ck3errors.NewDeserialize("expected '=' after key")
		}

		idx, ok := fields[string(tok.Bytes)]
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

func (d *textDecoder) decodeSliceBody(rv reflect.Value) error {
	elemType := rv.Type().Elem()
	var out []reflect.Value
	for {
		tok, err := d.r.Next()
		if err == io.EOF {
			return ck3errors.NewParse("unterminated array", 0)
		}
		if err != nil {
			return err
		}
		if tok.Kind == ck3text.KindClose {
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

// assignTokenToValue assigns an already-read token (scalar or Open) to
// a freshly allocated slice element.
func (d *textDecoder) assignTokenToValue(tok ck3text.Token, elem reflect.Value) error {
	switch tok.Kind {
	case ck3text.KindOpen:
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
	default:
		return setScalarField(elem, tok.Kind == ck3text.KindQuoted, tok.Bytes)
	}
}

func (d *textDecoder) decodeValueGenericNext() (any, error) {
	tok, err := d.r.Read()
	if err != nil {
		return nil, err
	}
	return d.valueFromToken(tok)
}

func (d *textDecoder) valueFromToken(tok ck3text.Token) (any, error) {
	switch tok.Kind {
	case ck3text.KindQuoted:
		return string(tok.Bytes), nil
	case ck3text.KindUnquoted:
		return parseScalarString(string(tok.Bytes)), nil
	case ck3text.KindOpen:
		return d.decodeContainerGeneric()
	default:
		return nil, ck3errors.NewDeserialize("unexpected token as value")
	}
}

// decodeContainerGeneric decodes a container (assumed already opened)
// into either a map[string]any (object mode) or []any (array mode),
// deciding the mode from whether the second token inside is Equal.
func (d *textDecoder) decodeContainerGeneric() (any, error) {
	first, err := d.r.Next()
	if err == io.EOF {
		return nil, ck3errors.NewParse("unterminated container", 0)
	}
	if err != nil {
		return nil, err
	}
	if first.Kind == ck3text.KindClose {
		return map[string]any{}, nil
	}

	second, err := d.r.Next()
	if err == io.EOF {
		return nil, ck3errors.NewParse("unterminated container", 0)
	}
	if err != nil {
		return nil, err
	}

	if second.Kind == ck3text.KindEqual {
		result := map[string]any{}
		val, err := d.decodeValueGenericNext()
		if err != nil {
			return nil, err
		}
		result[string(first.Bytes)] = val
		for {
			tok, err := d.r.Next()
			if err == io.EOF {
				return nil, ck3errors.NewParse("unterminated object", 0)
			}
			if err != nil {
				return nil, err
			}
			if tok.Kind == ck3text.KindClose {
				return result, nil
			}
			eq, err := d.r.Read()
			if err != nil {
				return nil, err
			}
			if eq.Kind != ck3text.KindEqual {
				return nil, ck3errors.NewDeserialize("expected '=' after key")
			}
			v, err := d.decodeValueGenericNext()
			if err != nil {
				return nil, err
			}
			result[string(tok.Bytes)] = v
		}
	}

	arr := []any{}
	v1, err := d.valueFromToken(first)
	if err != nil {
		return nil, err
	}
	v2, err := d.valueFromToken(second)
	if err != nil {
		return nil, err
	}
	arr = append(arr, v1, v2)
	for {
		tok, err := d.r.Next()
		if err == io.EOF {
			return nil, ck3errors.NewParse("unterminated array", 0)
		}
		if err != nil {
			return nil, err
		}
		if tok.Kind == ck3text.KindClose {
			return arr, nil
		}
		v, err := d.valueFromToken(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

// parseScalarString interprets an unquoted scalar as a bool, integer,
// float, or else returns it as a bare string.
func parseScalarString(s string) any {
	switch s {
	case "yes":
		return true
	case "no":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// setScalarField assigns raw token bytes to a scalar struct field,
// converting per the field's Go type.
func setScalarField(fv reflect.Value, quoted bool, data []byte) error {
	s := string(data)
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
		return nil
	case reflect.Bool:
		fv.SetBool(s == "yes" || s == "true")
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return ck3errors.NewDeserialize("expected integer, got " + s)
		}
		fv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return ck3errors.NewDeserialize("expected unsigned integer, got " + s)
		}
		fv.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ck3errors.NewDeserialize("expected float, got " + s)
		}
		fv.SetFloat(f)
		return nil
	case reflect.Interface:
		if quoted {
			fv.Set(reflect.ValueOf(s))
		} else {
			fv.Set(reflect.ValueOf(parseScalarString(s)))
		}
		return nil
	default:
		return ck3errors.NewDeserialize("unsupported scalar field kind " + fv.Kind().String())
	}
}
