// Package observability defines the hook through which registry-serde components
// report the operations they perform.
//
// Components never depend on a concrete metrics or tracing backend. Each one
// accepts an optional Observer and reports an OperationContext after every
// registry request, cache lookup, encode, decode, publish and consume. The
// metrics package ships a Prometheus-backed implementation; applications can
// supply their own.
//
// A nil Observer is always valid and means "do not report".
package observability

import "time"

// Observer receives a notification for every observed operation.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes a single completed operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "schema_registry" or "serializer".
	Component string

	// Operation is the action performed, e.g. "register", "get_by_id", "decode".
	Operation string

	// Resource is the primary target: a subject, topic or queue name.
	Resource string

	// SubResource is an optional secondary target such as a schema id or version.
	SubResource string

	// Duration is the wall-clock time the operation took.
	Duration time.Duration

	// Error is the operation's error, nil on success.
	Error error

	// Size is the number of bytes moved, where meaningful.
	Size int64

	// Metadata carries component specific attributes, e.g. {"cache": "hit"}.
	Metadata map[string]string
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}
