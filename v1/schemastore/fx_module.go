package schemastore

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
)

// FXModule provides *Store and exposes it as the schema_registry.Gateway.
// The connection monitor runs for the lifetime of the application.
//
//	app := fx.New(
//	    schemastore.FXModule,
//	    schema_registry.FXModule,
//	    fx.Provide(func() schemastore.Config { ... }),
//	)
var FXModule = fx.Module("schemastore",
	fx.Provide(
		NewStoreWithDI,
		func(s *Store) schema_registry.Gateway { return s },
	),
	fx.Invoke(RegisterStoreLifecycle),
)

// StoreParams groups the dependencies of NewStoreWithDI.
type StoreParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewStoreWithDI is the fx constructor of *Store.
func NewStoreWithDI(params StoreParams) (*Store, error) {
	store, err := NewStore(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		store.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		store.WithObserver(params.Observer)
	}
	return store, nil
}

// StoreLifecycleParams groups the dependencies of RegisterStoreLifecycle.
type StoreLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Store     *Store
}

// RegisterStoreLifecycle starts the monitor and retry loops on start and
// closes the store on stop.
func RegisterStoreLifecycle(params StoreLifecycleParams) {
	wg := &sync.WaitGroup{}
	ctx, cancel := context.WithCancel(context.Background())

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				params.Store.MonitorConnection(ctx)
			}()
			go func() {
				defer wg.Done()
				params.Store.RetryConnection(ctx)
			}()
			params.Store.logInfo("schema store started", nil)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return params.Store.Close()
		},
	})
}
