package avro

import (
	"math/big"
	"reflect"
	"time"

	hamba "github.com/hamba/avro/v2"
)

// Normalize converts a decoded value into the representation shared by both
// decoders:
//
//	null           nil
//	boolean        bool
//	int            int
//	long           int64
//	float          float32
//	double         float64
//	bytes, fixed   []byte
//	string, enum   string
//	array          []any
//	map, record    map[string]any
//	union          the bare value of the selected branch
//
// Logical types keep the value the decoders produce (time.Time,
// time.Duration, *big.Rat). Union branches may arrive wrapped in a
// single-entry map keyed by branch name or bare. A single-entry map that a
// map or record branch accepts as it is stays bare.
func Normalize(schema hamba.Schema, v any) any {
	return normalize(schema, v, nil)
}

// unionWrapping tells normalize whether a decoder returned the values of a
// union wrapped by branch name. A nil unionWrapping guesses per value.
type unionWrapping func(s *hamba.UnionSchema) bool

// goavroWraps: goavro wraps every non-null union value.
func goavroWraps(*hamba.UnionSchema) bool { return true }

// hambaResolvedNames are the union branches hamba decodes bare into an any.
var hambaResolvedNames = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "string": true, "bytes": true,
	"int.date": true, "int.time-millis": true,
	"long.timestamp-millis": true, "long.timestamp-micros": true, "long.time-micros": true,
	"bytes.decimal": true, "string.uuid": true,
}

// hambaWraps: hamba returns the values of a union bare only when it can
// resolve every branch to a Go type. Otherwise all values of the union come
// back wrapped by branch name.
func hambaWraps(s *hamba.UnionSchema) bool {
	for _, member := range s.Types() {
		if !hambaResolvedNames[unionName(member)] {
			return true
		}
	}
	return false
}

func normalize(schema hamba.Schema, v any, wrapped unionWrapping) any {
	switch s := schema.(type) {
	case *hamba.RefSchema:
		return normalize(s.Schema(), v, wrapped)
	case *hamba.NullSchema:
		return nil
	case *hamba.PrimitiveSchema:
		return normalizePrimitive(s, v)
	case *hamba.RecordSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(s.Fields()))
		for _, f := range s.Fields() {
			fv, present := m[f.Name()]
			if !present {
				continue
			}
			out[f.Name()] = normalize(f.Type(), fv, wrapped)
		}
		return out
	case *hamba.EnumSchema:
		return v
	case *hamba.FixedSchema:
		if s.Logical() != nil {
			return v
		}
		return toBytes(v)
	case *hamba.ArraySchema:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(s.Items(), rv.Index(i).Interface(), wrapped)
		}
		return out
	case *hamba.MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, mv := range m {
			out[k] = normalize(s.Values(), mv, wrapped)
		}
		return out
	case *hamba.UnionSchema:
		return normalizeUnion(s, v, wrapped)
	default:
		return v
	}
}

func normalizeUnion(s *hamba.UnionSchema, v any, wrapped unionWrapping) any {
	if v == nil {
		return nil
	}

	m, single := v.(map[string]any)
	single = single && len(m) == 1
	if wrapped != nil && wrapped(s) {
		if !single {
			return v
		}
		for name, inner := range m {
			if member := unionMember(s, name); member != nil {
				return normalize(member, inner, wrapped)
			}
		}
		return v
	}
	if wrapped != nil {
		for _, member := range s.Types() {
			if member.Type() != hamba.Null && accepts(member, v, true) {
				return normalize(member, v, wrapped)
			}
		}
		return v
	}

	if single && !acceptsBare(s, v) {
		for name, inner := range m {
			if member := unionMember(s, name); member != nil && conforms(member, inner) {
				return normalize(member, inner, wrapped)
			}
		}
	}

	for _, member := range s.Types() {
		if member.Type() == hamba.Null {
			continue
		}
		if accepts(member, v, true) && conforms(member, v) {
			return normalize(member, v, wrapped)
		}
	}

	if single {
		for name, inner := range m {
			if member := unionMember(s, name); member != nil {
				return normalize(member, inner, wrapped)
			}
		}
	}
	return v
}

func normalizePrimitive(s *hamba.PrimitiveSchema, v any) any {
	if s.Logical() != nil {
		switch v.(type) {
		case time.Time, time.Duration, *big.Rat:
			return v
		}
	}

	switch s.Type() {
	case hamba.Null:
		return nil
	case hamba.Int:
		switch n := v.(type) {
		case int32:
			return int(n)
		case int64:
			return int(n)
		}
	case hamba.Long:
		switch n := v.(type) {
		case int:
			return int64(n)
		case int32:
			return int64(n)
		}
	case hamba.Float:
		if n, ok := v.(float64); ok {
			return float32(n)
		}
	case hamba.Double:
		if n, ok := v.(float32); ok {
			return float64(n)
		}
	case hamba.Bytes:
		return toBytes(v)
	}
	return v
}

// toBytes turns a fixed size byte array, as hamba decodes fixed values, into a slice.
func toBytes(v any) any {
	if b, ok := v.([]byte); ok {
		return b
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out
	}
	return v
}

// unionName is the branch name goavro uses for a union member.
func unionName(s hamba.Schema) string {
	switch t := s.(type) {
	case *hamba.RefSchema:
		return t.Schema().FullName()
	case hamba.NamedSchema:
		return t.FullName()
	case *hamba.PrimitiveSchema:
		if l := t.Logical(); l != nil {
			return string(t.Type()) + "." + string(l.Type())
		}
	}
	return string(s.Type())
}

// unionMember finds the branch called name. The plain type name also matches
// a logical branch so that both naming styles of the decoders are accepted.
func unionMember(s *hamba.UnionSchema, name string) hamba.Schema {
	for _, member := range s.Types() {
		if unionName(member) == name {
			return member
		}
	}
	for _, member := range s.Types() {
		if string(member.Type()) == name {
			return member
		}
		if named, ok := member.(hamba.NamedSchema); ok && named.Name() == name {
			return member
		}
	}
	return nil
}

// accepts reports whether the Go value v can belong to schema. With exact set,
// only the types the decoders produce are accepted; otherwise any Go type that
// converts without loss is.
func accepts(schema hamba.Schema, v any, exact bool) bool {
	if ref, ok := schema.(*hamba.RefSchema); ok {
		schema = ref.Schema()
	}

	switch schema.Type() {
	case hamba.Null:
		return v == nil
	case hamba.Boolean:
		_, ok := v.(bool)
		return ok
	case hamba.Int:
		switch v.(type) {
		case time.Time:
			return hasLogical(schema, hamba.Date)
		case time.Duration:
			return hasLogical(schema, hamba.TimeMillis)
		case int, int32:
			return true
		case int8, int16, uint8, uint16:
			return !exact
		}
		return false
	case hamba.Long:
		switch v.(type) {
		case time.Time:
			return hasLogical(schema, hamba.TimestampMillis) || hasLogical(schema, hamba.TimestampMicros) ||
				hasLogical(schema, hamba.LocalTimestampMillis) || hasLogical(schema, hamba.LocalTimestampMicros)
		case time.Duration:
			return hasLogical(schema, hamba.TimeMicros)
		case int64:
			return true
		case int, int8, int16, int32, uint8, uint16, uint32:
			return !exact
		}
		return false
	case hamba.Float:
		_, ok := v.(float32)
		return ok
	case hamba.Double:
		switch v.(type) {
		case float64:
			return true
		case float32:
			return !exact
		}
		return false
	case hamba.String:
		_, ok := v.(string)
		return ok
	case hamba.Enum:
		str, ok := v.(string)
		if !ok {
			return false
		}
		for _, sym := range schema.(*hamba.EnumSchema).Symbols() {
			if sym == str {
				return true
			}
		}
		return false
	case hamba.Bytes:
		if _, ok := v.(*big.Rat); ok {
			return hasLogical(schema, hamba.Decimal)
		}
		_, ok := v.([]byte)
		return ok
	case hamba.Fixed:
		fixed := schema.(*hamba.FixedSchema)
		if _, ok := v.(*big.Rat); ok {
			return hasLogical(schema, hamba.Decimal)
		}
		if b, ok := v.([]byte); ok {
			return len(b) == fixed.Size()
		}
		rv := reflect.ValueOf(v)
		return rv.Kind() == reflect.Array && rv.Len() == fixed.Size() && rv.Type().Elem().Kind() == reflect.Uint8
	case hamba.Array:
		if _, isBytes := v.([]byte); isBytes {
			return false
		}
		rv := reflect.ValueOf(v)
		return rv.Kind() == reflect.Slice
	case hamba.Map, hamba.Record:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// conforms reports whether v fits schema all the way down: union values
// bare or wrapped, map values, array items and record fields. Record keys
// must name fields of the record.
func conforms(schema hamba.Schema, v any) bool {
	switch s := schema.(type) {
	case *hamba.RefSchema:
		return conforms(s.Schema(), v)
	case *hamba.UnionSchema:
		for _, member := range s.Types() {
			if conforms(member, v) {
				return true
			}
		}
		if m, ok := v.(map[string]any); ok && len(m) == 1 {
			for name, inner := range m {
				if member := unionMember(s, name); member != nil && conforms(member, inner) {
					return true
				}
			}
		}
		return false
	case *hamba.RecordSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for k, fv := range m {
			field := recordField(s, k)
			if field == nil || !conforms(field.Type(), fv) {
				return false
			}
		}
		return true
	case *hamba.MapSchema:
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		for _, mv := range m {
			if !conforms(s.Values(), mv) {
				return false
			}
		}
		return true
	case *hamba.ArraySchema:
		if !accepts(s, v, false) {
			return false
		}
		rv := reflect.ValueOf(v)
		for i := 0; i < rv.Len(); i++ {
			if !conforms(s.Items(), rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return accepts(schema, v, false)
}

// acceptsBare reports whether a map or record branch of s takes the map v as
// it is. Such a value is never read as a wrapped union value.
func acceptsBare(s *hamba.UnionSchema, v any) bool {
	for _, member := range s.Types() {
		if ref, ok := member.(*hamba.RefSchema); ok {
			member = ref.Schema()
		}
		switch member.Type() {
		case hamba.Map, hamba.Record:
			if conforms(member, v) {
				return true
			}
		}
	}
	return false
}

func recordField(s *hamba.RecordSchema, name string) *hamba.Field {
	for _, f := range s.Fields() {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func hasLogical(schema hamba.Schema, typ hamba.LogicalType) bool {
	switch s := schema.(type) {
	case *hamba.PrimitiveSchema:
		return s.Logical() != nil && s.Logical().Type() == typ
	case *hamba.FixedSchema:
		return s.Logical() != nil && s.Logical().Type() == typ
	}
	return false
}
