package serializer

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
)

// FXModule provides the *Serializer. It depends on a
// *schema_registry.CachedClient, see schema_registry.FXModule.
//
//	app := fx.New(
//	    schema_registry.HTTPGatewayModule,
//	    schema_registry.FXModule,
//	    serializer.FXModule,
//	    fx.Supply(schema_registry.Config{URL: "http://localhost:8081"}),
//	)
var FXModule = fx.Module("serializer",
	fx.Provide(
		NewSerializerWithDI,
	),
)

// SerializerParams groups the dependencies of NewSerializerWithDI.
type SerializerParams struct {
	fx.In

	Registry *schema_registry.CachedClient
	Config   Config                 `optional:"true"`
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewSerializerWithDI is the fx constructor of *Serializer.
func NewSerializerWithDI(params SerializerParams) *Serializer {
	s := NewSerializer(params.Registry, params.Config)
	if params.Logger != nil {
		s.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		s.WithObserver(params.Observer)
	}
	return s
}
