// Package wire implements the 5-byte envelope that makes every message
// self-describing:
//
//	offset 0     magic byte, always 0
//	offset 1..4  schema id, unsigned 32-bit big-endian
//	offset 5..   Avro binary encoding of the record
//
// Only the first five bytes are interpreted here; the payload is handed to
// the schema registered under the id.
package wire
