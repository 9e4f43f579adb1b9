package avro

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	hamba "github.com/hamba/avro/v2"
	"github.com/linkedin/goavro/v2"
)

// Record is the native representation of an Avro record: field name to value.
type Record = map[string]any

// Fingerprint is the SHA-256 of a schema's Parsing Canonical Form.
type Fingerprint [32]byte

// String returns the lowercase hex form of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Schema is a parsed, immutable Avro schema.
//
// Two libraries back it. hamba/avro provides the canonical form, the
// fingerprint and the fast decoder; goavro provides the writer and the
// general decoder. Both decoders return values in the same normalized
// representation, see Normalize.
//
// A *Schema is safe for concurrent use.
type Schema struct {
	text        string
	parsed      hamba.Schema
	codec       *goavro.Codec
	fingerprint Fingerprint
}

// Parse parses Avro schema JSON text.
func Parse(text string) (*Schema, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySchema
	}

	// Named types are resolved in a cache private to this schema so that
	// unrelated schemas that reuse a record name do not see each other.
	parsed, err := hamba.ParseWithCache(text, "", &hamba.SchemaCache{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	codec, err := goavro.NewCodec(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	return &Schema{
		text:        text,
		parsed:      parsed,
		codec:       codec,
		fingerprint: Fingerprint(parsed.Fingerprint()),
	}, nil
}

// ParseFile reads and parses the schema stored at path.
func ParseFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	schema, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	return schema, nil
}

// MustParse is like Parse but panics on error. Intended for package level
// schema variables and tests.
func MustParse(text string) *Schema {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Text returns the schema text exactly as it was given to Parse.
func (s *Schema) Text() string {
	return s.text
}

// Canonical returns the Parsing Canonical Form of the schema.
func (s *Schema) Canonical() string {
	return s.parsed.String()
}

// Fingerprint returns the SHA-256 fingerprint of the canonical form.
// Schemas that differ only in whitespace, doc strings or attribute order
// share a fingerprint.
func (s *Schema) Fingerprint() Fingerprint {
	return s.fingerprint
}

// Type returns the Avro type of the top-level schema, e.g. "record" or "string".
func (s *Schema) Type() string {
	return string(s.parsed.Type())
}

// Name returns the full name of a named top-level schema and the type name otherwise.
func (s *Schema) Name() string {
	return unionName(s.parsed)
}

// AppendBinary appends the Avro binary encoding of value to dst.
//
// value uses the normalized representation. Union values may be given bare,
// in which case the first non-null branch that accepts the value is used,
// or wrapped as a single-entry map keyed by the branch name. A single-entry
// map that a map or record branch accepts is always taken bare.
func (s *Schema) AppendBinary(dst []byte, value any) ([]byte, error) {
	native, err := denormalize(s.parsed, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	out, err := s.codec.BinaryFromNative(dst, native)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return out, nil
}

// Encode returns the Avro binary encoding of value.
func (s *Schema) Encode(value any) ([]byte, error) {
	return s.AppendBinary(nil, value)
}

// DecodeFast decodes payload with the reflection based hamba decoder.
// payload is not modified and may be decoded again afterwards.
func (s *Schema) DecodeFast(payload []byte) (any, error) {
	var native any
	if err := hamba.Unmarshal(s.parsed, payload, &native); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return normalize(s.parsed, native, hambaWraps), nil
}

// DecodeGeneral decodes payload with the goavro codec.
// payload is not modified and may be decoded again afterwards.
func (s *Schema) DecodeGeneral(payload []byte) (any, error) {
	native, _, err := s.codec.NativeFromBinary(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return normalize(s.parsed, native, goavroWraps), nil
}

// Parsed exposes the underlying hamba schema.
func (s *Schema) Parsed() hamba.Schema {
	return s.parsed
}
