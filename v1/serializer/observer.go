package serializer

import (
	"strconv"
	"time"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// observeOperation notifies the observer about an encode or decode.
func (s *Serializer) observeOperation(operation, subject string, schemaID int, duration time.Duration, err error, size int) {
	if s.observer == nil {
		return
	}
	var subResource string
	if schemaID > 0 {
		subResource = strconv.Itoa(schemaID)
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "serializer",
		Operation:   operation,
		Resource:    subject,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        int64(size),
	})
}
