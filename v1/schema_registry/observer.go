package schema_registry

import (
	"time"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// observeOperation notifies the gateway observer about a registry request.
func (g *HTTPGateway) observeOperation(operation, resource string, duration time.Duration, err error, size int64) {
	if g.observer != nil {
		g.observer.ObserveOperation(observability.OperationContext{
			Component: "schema_registry",
			Operation: operation,
			Resource:  resource,
			Duration:  duration,
			Error:     err,
			Size:      size,
		})
	}
}

// observeLookup reports a cache lookup of the client as a hit or a miss.
func (c *CachedClient) observeLookup(operation, resource, subResource string, hit bool, duration time.Duration, err error) {
	if c.observer == nil {
		return
	}
	cache := "miss"
	if hit {
		cache = "hit"
	}
	c.observer.ObserveOperation(observability.OperationContext{
		Component:   "schema_registry",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Metadata:    map[string]string{"cache": cache},
	})
}
