package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// MagicByte opens every envelope.
	MagicByte byte = 0

	// HeaderSize is the number of bytes before the payload.
	HeaderSize = 5
)

var (
	// ErrMessageTooSmall is returned for messages that cannot hold a header and a payload.
	ErrMessageTooSmall = errors.New("message is too small to decode")

	// ErrInvalidMagicByte is returned when the first byte is not MagicByte.
	ErrInvalidMagicByte = errors.New("message does not start with magic byte")

	// ErrSchemaIDOutOfRange is returned for ids that do not fit in 32 bits.
	ErrSchemaIDOutOfRange = errors.New("schema id out of range")
)

// Envelope is a decoded message: the schema id and the undecoded payload.
// Payload aliases the input slice.
type Envelope struct {
	SchemaID int
	Payload  []byte
}

// Writer encodes a value into its Avro binary form, appending to dst.
// *avro.Schema implements it.
type Writer interface {
	AppendBinary(dst []byte, value any) ([]byte, error)
}

// AppendHeader appends the magic byte and the big-endian schema id to dst.
func AppendHeader(dst []byte, schemaID int) ([]byte, error) {
	if schemaID < 0 || int64(schemaID) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrSchemaIDOutOfRange, schemaID)
	}
	dst = append(dst, MagicByte)
	return binary.BigEndian.AppendUint32(dst, uint32(schemaID)), nil
}

// Encode returns header followed by payload.
func Encode(schemaID int, payload []byte) ([]byte, error) {
	out, err := AppendHeader(make([]byte, 0, HeaderSize+len(payload)), schemaID)
	if err != nil {
		return nil, err
	}
	return append(out, payload...), nil
}

// EncodeRecord writes the header for schemaID and then value encoded with w.
func EncodeRecord(w Writer, schemaID int, value any) ([]byte, error) {
	out, err := AppendHeader(make([]byte, 0, 64), schemaID)
	if err != nil {
		return nil, err
	}
	return w.AppendBinary(out, value)
}

// Decode splits data into schema id and payload.
//
// A message of HeaderSize bytes or fewer is rejected even though it could hold
// a header: an envelope always carries a non-empty payload.
func Decode(data []byte) (Envelope, error) {
	if len(data) <= HeaderSize {
		return Envelope{}, ErrMessageTooSmall
	}
	if data[0] != MagicByte {
		return Envelope{}, ErrInvalidMagicByte
	}
	return Envelope{
		SchemaID: int(binary.BigEndian.Uint32(data[1:HeaderSize])),
		Payload:  data[HeaderSize:],
	}, nil
}
