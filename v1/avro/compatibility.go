package avro

import (
	"fmt"

	hamba "github.com/hamba/avro/v2"
)

// CheckCompatibility reports whether data written with writer can be read
// with reader, following the Avro schema resolution rules. It returns nil when
// the pair is compatible and an error wrapping ErrIncompatible otherwise.
func CheckCompatibility(reader, writer *Schema) error {
	if err := hamba.NewSchemaCompatibility().Compatible(reader.parsed, writer.parsed); err != nil {
		return fmt.Errorf("%w: %w", ErrIncompatible, err)
	}
	return nil
}
