package serializer

import (
	"errors"
	"fmt"
)

// SerializationError is the single error type returned by Serializer
// operations. The cause, if any, stays reachable through errors.Unwrap.
type SerializationError struct {
	Message string
	Err     error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("serialization error: %s: %v", e.Message, e.Err)
	}
	return "serialization error: " + e.Message
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsSerializationError reports whether err is, or wraps, a *SerializationError.
func IsSerializationError(err error) bool {
	var serErr *SerializationError
	return errors.As(err, &serErr)
}

func newError(err error, format string, args ...any) *SerializationError {
	return &SerializationError{Message: fmt.Sprintf(format, args...), Err: err}
}
