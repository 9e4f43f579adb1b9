package avro

import "errors"

var (
	// ErrEmptySchema is returned by Parse for blank schema text.
	ErrEmptySchema = errors.New("avro: empty schema")

	// ErrInvalidSchema wraps parse failures from either Avro library.
	ErrInvalidSchema = errors.New("avro: invalid schema")

	// ErrEncode wraps failures to encode a value with a schema.
	ErrEncode = errors.New("avro: encode failed")

	// ErrDecode wraps failures to decode a payload with a schema.
	ErrDecode = errors.New("avro: decode failed")

	// ErrIncompatible is returned by CheckCompatibility when the reader cannot
	// read data written with the writer schema.
	ErrIncompatible = errors.New("avro: schemas are incompatible")
)
