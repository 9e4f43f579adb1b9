package avro

import (
	"fmt"
	"reflect"
	"time"

	hamba "github.com/hamba/avro/v2"
	"github.com/linkedin/goavro/v2"
)

// denormalize converts a value in the normalized representation into the
// form goavro encodes: union values wrapped by branch name, integers sized to
// the Avro type and fixed arrays turned into slices.
func denormalize(schema hamba.Schema, v any) (any, error) {
	switch s := schema.(type) {
	case *hamba.RefSchema:
		return denormalize(s.Schema(), v)
	case *hamba.RecordSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %s expects map[string]any, got %T", s.FullName(), v)
		}
		out := make(map[string]any, len(m))
		for _, f := range s.Fields() {
			fv, present := m[f.Name()]
			if !present {
				// goavro falls back to the field default, or reports the missing field.
				continue
			}
			nv, err := denormalize(f.Type(), fv)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name(), err)
			}
			out[f.Name()] = nv
		}
		return out, nil
	case *hamba.ArraySchema:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return v, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			nv, err := denormalize(s.Items(), rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	case *hamba.MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v, nil
		}
		out := make(map[string]any, len(m))
		for k, mv := range m {
			nv, err := denormalize(s.Values(), mv)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	case *hamba.UnionSchema:
		return denormalizeUnion(s, v)
	case *hamba.FixedSchema:
		return toBytes(v), nil
	case *hamba.PrimitiveSchema:
		return denormalizePrimitive(s, v), nil
	default:
		return v, nil
	}
}

func denormalizeUnion(s *hamba.UnionSchema, v any) (any, error) {
	if v == nil {
		if hasNull(s) {
			return nil, nil
		}
		return nil, fmt.Errorf("nil is not allowed by union %s", s.String())
	}

	// Wrapped by branch name, unless a map or record branch takes the map bare.
	if m, ok := v.(map[string]any); ok && len(m) == 1 && !acceptsBare(s, v) {
		for name, inner := range m {
			member := unionMember(s, name)
			if member == nil || unionName(member) != name || !conforms(member, inner) {
				break
			}
			nv, err := denormalize(member, inner)
			if err != nil {
				return nil, err
			}
			return goavro.Union(name, nv), nil
		}
	}

	for _, member := range s.Types() {
		if member.Type() == hamba.Null {
			continue
		}
		if !conforms(member, v) {
			continue
		}
		nv, err := denormalize(member, v)
		if err != nil {
			return nil, err
		}
		return goavro.Union(unionName(member), nv), nil
	}
	return nil, fmt.Errorf("value of type %T matches no branch of union %s", v, s.String())
}

func hasNull(s *hamba.UnionSchema) bool {
	for _, member := range s.Types() {
		if member.Type() == hamba.Null {
			return true
		}
	}
	return false
}

func denormalizePrimitive(s *hamba.PrimitiveSchema, v any) any {
	switch v.(type) {
	case time.Time, time.Duration:
		return v
	}

	rv := reflect.ValueOf(v)
	switch s.Type() {
	case hamba.Int:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int32(rv.Int())
		case reflect.Uint8, reflect.Uint16:
			return int32(rv.Uint())
		}
	case hamba.Long:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int()
		case reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return int64(rv.Uint())
		}
	case hamba.Float:
		if rv.Kind() == reflect.Float64 {
			return float32(rv.Float())
		}
	case hamba.Double:
		if rv.Kind() == reflect.Float32 {
			return rv.Float()
		}
	case hamba.Bytes:
		return toBytes(v)
	}
	return v
}
