package schemastore

import (
	"time"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

func (s *Store) observeOperation(operation, resource string, duration time.Duration, err error) {
	if s.observer != nil {
		s.observer.ObserveOperation(observability.OperationContext{
			Component: "schemastore",
			Operation: operation,
			Resource:  resource,
			Duration:  duration,
			Error:     err,
		})
	}
}
