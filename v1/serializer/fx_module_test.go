package serializer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
)

func TestFXModule(t *testing.T) {
	var s *Serializer
	app := fxtest.New(t,
		schema_registry.MemoryGatewayModule,
		schema_registry.FXModule,
		FXModule,
		fx.Supply(Config{DisableFastPath: true}),
		fx.Populate(&s),
	)
	app.RequireStart()
	defer app.RequireStop()

	ctx := context.Background()
	msg, err := s.EncodeRecordWithSchema(ctx, "orders", avro.MustParse(orderSchema), avro.Record{"name": "fx"}, false)
	require.NoError(t, err)

	record, err := s.DecodeMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, avro.Record{"name": "fx", "number": nil}, record)

	strategy, _ := s.DecodeStrategy(1)
	assert.Equal(t, StrategyGeneral, strategy)
}
