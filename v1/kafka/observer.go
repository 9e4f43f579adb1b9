package kafka

import (
	"time"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

func (k *Client) observeOperation(operation, topic string, duration time.Duration, err error, size int64) {
	if k.observer != nil {
		k.observer.ObserveOperation(observability.OperationContext{
			Component: "kafka",
			Operation: operation,
			Resource:  topic,
			Duration:  duration,
			Error:     err,
			Size:      size,
		})
	}
}
