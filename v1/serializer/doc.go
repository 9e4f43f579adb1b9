// Package serializer encodes records into self-describing messages and
// decodes them again, resolving schemas through a schema registry.
//
// A message is the 5-byte envelope of package wire followed by the Avro
// binary encoding of the record. Encoding can address the schema three ways:
//
//	// by id
//	msg, err := s.EncodeRecordWithSchemaID(ctx, 42, record)
//
//	// by schema, registering it under "orders-value" on first use
//	msg, err := s.EncodeRecordWithSchema(ctx, "orders", schema, record, false)
//
//	// with the newest schema of "orders-value", looked up on every call
//	msg, err := s.EncodeRecordForTopic(ctx, "orders", record, false)
//
// Decoding reads the id from the envelope and needs nothing else:
//
//	record, err := s.DecodeMessage(ctx, msg)
//
// Every failure is returned as a *SerializationError; registry errors and
// codec errors stay reachable through errors.As and errors.Is.
//
// Decoder selection:
//
// The first message seen for a schema id decides which decoder the id uses.
// The fast decoder is tried on that message. If it succeeds the id is bound to
// the fast decoder, otherwise to the general one. The binding is permanent,
// which assumes that every payload written with an id is encoded the same
// way. Config.DisableFastPath binds every id to the general decoder.
//
// Caches:
//
// Writers and decoders are cached per schema id and never evicted. Their size
// is bounded by the number of distinct schemas the process encounters.
package serializer
