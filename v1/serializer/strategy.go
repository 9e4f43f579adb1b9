package serializer

import "github.com/Aleph-Alpha/registry-serde/v1/avro"

// Strategy is the decoder chosen for a schema id.
type Strategy int

const (
	// StrategyUnresolved means no message with the id has been decoded yet.
	StrategyUnresolved Strategy = iota

	// StrategyFast means the fast decoder passed its trial decode and is used for the id.
	StrategyFast

	// StrategyGeneral means the trial decode failed, or the fast path is disabled, and
	// the general decoder is used for the id.
	StrategyGeneral
)

func (s Strategy) String() string {
	switch s {
	case StrategyFast:
		return "fast"
	case StrategyGeneral:
		return "general"
	default:
		return "unresolved"
	}
}

type decodeFunc func(payload []byte) (any, error)

// decoder is a memoized decode strategy for one schema id.
type decoder struct {
	strategy Strategy
	decode   decodeFunc
}

func fastDecoder(schema *avro.Schema) decodeFunc {
	return schema.DecodeFast
}

func generalDecoder(schema *avro.Schema) decodeFunc {
	return schema.DecodeGeneral
}
