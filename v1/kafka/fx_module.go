package kafka

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
	"github.com/Aleph-Alpha/registry-serde/v1/serializer"
)

// FXModule provides a *Client that uses the *serializer.Serializer of the
// application and is closed when the application stops.
var FXModule = fx.Module("kafka",
	fx.Provide(NewClientWithDI),
	fx.Invoke(RegisterKafkaLifecycle),
)

// KafkaParams groups the dependencies of NewClientWithDI.
type KafkaParams struct {
	fx.In

	Config     Config
	Serializer *serializer.Serializer
	Logger     Logger                 `optional:"true"`
	Observer   observability.Observer `optional:"true"`
}

// NewClientWithDI is the fx constructor of *Client.
func NewClientWithDI(params KafkaParams) (*Client, error) {
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

// RegisterKafkaLifecycle closes the client when the application stops.
func RegisterKafkaLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			role := "producer"
			if client.cfg.IsConsumer {
				role = "consumer"
			}
			client.logInfo("kafka client initialized", map[string]interface{}{
				"topic": client.cfg.Topic,
				"role":  role,
			})
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
}
