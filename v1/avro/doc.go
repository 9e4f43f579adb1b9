// Package avro wraps the two Avro libraries used by registry-serde behind a
// single immutable Schema type.
//
// hamba/avro parses the schema, computes its Parsing Canonical Form and
// SHA-256 fingerprint, checks compatibility and provides the fast decoder.
// linkedin/goavro provides the writer and the general decoder, which accepts
// every payload the schema admits.
//
//	schema, err := avro.Parse(`{
//	  "type": "record", "name": "Order",
//	  "fields": [
//	    {"name": "id", "type": "long"},
//	    {"name": "note", "type": ["null", "string"], "default": null}
//	  ]
//	}`)
//
//	payload, err := schema.Encode(avro.Record{"id": int64(7), "note": "rush"})
//
//	v, err := schema.DecodeFast(payload)    // hamba
//	v, err = schema.DecodeGeneral(payload)  // goavro
//
// Both decoders return the same normalized values (see Normalize), so callers
// can switch between them without observing a difference. Union values are
// returned bare; on encode they may be given bare or wrapped in a single-entry
// map keyed by the branch name.
package avro
