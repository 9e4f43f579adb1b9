package schema_registry

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// FXModule provides the *CachedClient. It needs a Gateway, which one of
// HTTPGatewayModule, MemoryGatewayModule or schemastore.FXModule supplies.
//
//	app := fx.New(
//	    schema_registry.HTTPGatewayModule,
//	    schema_registry.FXModule,
//	    fx.Provide(func() schema_registry.Config {
//	        return schema_registry.Config{URL: "http://localhost:8081"}
//	    }),
//	)
var FXModule = fx.Module("schema_registry",
	fx.Provide(
		NewCachedClientWithDI,
	),
	fx.Invoke(RegisterSchemaRegistryLifecycle),
)

// HTTPGatewayModule provides a Gateway backed by a registry service.
var HTTPGatewayModule = fx.Module("schema_registry_http",
	fx.Provide(
		NewHTTPGatewayWithDI,
		func(g *HTTPGateway) Gateway { return g },
	),
)

// MemoryGatewayModule provides an in-process Gateway.
var MemoryGatewayModule = fx.Module("schema_registry_memory",
	fx.Provide(
		NewMemoryGateway,
		func(g *MemoryGateway) Gateway { return g },
	),
)

// HTTPGatewayParams groups the dependencies of NewHTTPGatewayWithDI.
type HTTPGatewayParams struct {
	fx.In

	Config   Config
	Doer     Doer                   `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewHTTPGatewayWithDI is the fx constructor of *HTTPGateway.
func NewHTTPGatewayWithDI(params HTTPGatewayParams) (*HTTPGateway, error) {
	gateway, err := NewHTTPGateway(params.Config, params.Doer)
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		gateway.WithObserver(params.Observer)
	}
	return gateway, nil
}

// SchemaRegistryParams groups the dependencies of NewCachedClientWithDI.
type SchemaRegistryParams struct {
	fx.In

	Gateway  Gateway
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewCachedClientWithDI is the fx constructor of *CachedClient.
func NewCachedClientWithDI(params SchemaRegistryParams) *CachedClient {
	client := NewCachedClient(params.Gateway)
	if params.Logger != nil {
		client.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		client.WithObserver(params.Observer)
	}
	return client
}

// RegisterSchemaRegistryLifecycle logs when the client starts and stops.
// The client holds no connections of its own.
func RegisterSchemaRegistryLifecycle(lc fx.Lifecycle, client *CachedClient) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			client.logInfo(ctx, "schema registry client initialized", nil)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			client.logInfo(ctx, "schema registry client stopped", nil)
			return nil
		},
	})
}
