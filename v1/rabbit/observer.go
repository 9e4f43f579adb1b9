package rabbit

import (
	"time"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// observeOperation notifies the observer about a publish or a consumed
// delivery if one is configured.
func (rb *RabbitClient) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if rb.observer != nil {
		rb.observer.ObserveOperation(observability.OperationContext{
			Component:   "rabbit",
			Operation:   operation,
			Resource:    resource,
			SubResource: subResource,
			Duration:    duration,
			Error:       err,
			Size:        size,
		})
	}
}
