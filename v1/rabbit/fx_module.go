package rabbit

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
	"github.com/Aleph-Alpha/registry-serde/v1/serializer"
)

// FXModule provides *RabbitClient and the Client interface. The retry loop
// runs for the lifetime of the application.
var FXModule = fx.Module("rabbit",
	fx.Provide(
		NewClientWithDI,
		func(r *RabbitClient) Client { return r },
	),
	fx.Invoke(RegisterRabbitLifecycle),
)

// RabbitParams groups the dependencies of NewClientWithDI.
type RabbitParams struct {
	fx.In

	Config     Config
	Serializer *serializer.Serializer
	Logger     Logger                 `optional:"true"`
	Observer   observability.Observer `optional:"true"`
}

// NewClientWithDI is the fx constructor of *RabbitClient.
func NewClientWithDI(params RabbitParams) (*RabbitClient, error) {
	client, err := NewClient(params.Config, params.Serializer)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		client.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		client.WithObserver(params.Observer)
	}
	return client, nil
}

// RabbitLifecycleParams groups the dependencies of RegisterRabbitLifecycle.
type RabbitLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *RabbitClient
	Config    Config
}

// RegisterRabbitLifecycle runs RetryConnection while the application is up
// and shuts the client down on stop.
func RegisterRabbitLifecycle(params RabbitLifecycleParams) {
	wg := &sync.WaitGroup{}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func(cfg Config) {
				defer wg.Done()
				params.Client.RetryConnection(cfg)
			}(params.Config)
			return nil
		},
		OnStop: func(context.Context) error {
			params.Client.GracefulShutdown()
			wg.Wait()
			return nil
		},
	})
}
