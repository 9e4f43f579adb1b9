package schema_registry

import (
	"context"
	"sync"
	"testing"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// TestObserver records every operation it is notified about.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (o *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, ctx)
}

func (o *TestObserver) GetOperations() []observability.OperationContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observability.OperationContext(nil), o.operations...)
}

func TestObserveLookupNilObserverNoPanic(t *testing.T) {
	client := NewCachedClient(NewMemoryGateway())
	client.observeLookup("register", "users-value", "", true, 0, nil)
}

func TestObserveLookupReportsHitsAndMisses(t *testing.T) {
	observer := &TestObserver{}
	client := NewCachedClient(NewMemoryGateway()).WithObserver(observer)
	schema := avro.MustParse(userSchema)

	if _, err := client.Register(context.Background(), "users-value", schema); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := client.Register(context.Background(), "users-value", schema); err != nil {
		t.Fatalf("register: %v", err)
	}

	ops := observer.GetOperations()
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[0].Metadata["cache"] != "miss" {
		t.Errorf("expected first registration to miss, got %q", ops[0].Metadata["cache"])
	}
	if ops[1].Metadata["cache"] != "hit" {
		t.Errorf("expected second registration to hit, got %q", ops[1].Metadata["cache"])
	}
	if ops[1].Component != "schema_registry" || ops[1].Operation != "register" || ops[1].Resource != "users-value" {
		t.Errorf("unexpected operation context: %+v", ops[1])
	}
}

func TestWithObserver(t *testing.T) {
	observer := &TestObserver{}
	client := NewCachedClient(NewMemoryGateway())

	if got := client.WithObserver(observer); got != client {
		t.Error("WithObserver should return the same client")
	}
	if client.observer != observer {
		t.Error("observer was not attached")
	}
}
