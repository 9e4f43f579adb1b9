package schema_registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incompatibleUserSchema = `{
  "type": "record",
  "name": "User",
  "namespace": "example.avro",
  "fields": [
    {"name": "name", "type": "string"},
    {"name": "age", "type": "int"}
  ]
}`

func TestMemoryGatewayRegister(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	id1, err := gw.Register(ctx, "users-value", userSchema)
	require.NoError(t, err)
	again, err := gw.Register(ctx, "users-value", userSchema)
	require.NoError(t, err)
	assert.Equal(t, id1, again, "registration is idempotent")

	shared, err := gw.Register(ctx, "accounts-value", userSchema)
	require.NoError(t, err)
	assert.Equal(t, id1, shared, "a schema keeps its id across subjects")

	id2, err := gw.Register(ctx, "users-value", userSchemaV2)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	latest, err := gw.LatestVersion(ctx, "users-value")
	require.NoError(t, err)
	assert.Equal(t, SchemaMetadata{Subject: "users-value", ID: id2, Version: 2, Schema: userSchemaV2}, latest)

	meta, err := gw.LookupVersion(ctx, "users-value", userSchema)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Version)
	assert.Equal(t, id1, meta.ID)
}

func TestMemoryGatewayCompatibilityEnforcement(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	_, err := gw.Register(ctx, "users-value", userSchema)
	require.NoError(t, err)

	_, err = gw.Register(ctx, "users-value", incompatibleUserSchema)
	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, http.StatusConflict, regErr.StatusCode)
	assert.Equal(t, ErrorCodeIncompatibleSchema, regErr.ErrorCode)

	ok, err := gw.TestCompatibility(ctx, "users-value", incompatibleUserSchema, "latest")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = gw.UpdateCompatibility(ctx, "users-value", CompatibilityNone)
	require.NoError(t, err)

	_, err = gw.Register(ctx, "users-value", incompatibleUserSchema)
	require.NoError(t, err)

	ok, err = gw.TestCompatibility(ctx, "users-value", userSchema, "1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryGatewayNotFound(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	_, err := gw.SchemaByID(ctx, 1)
	assert.True(t, IsNotFound(err))

	_, err = gw.LatestVersion(ctx, "missing")
	assert.True(t, IsNotFound(err))

	_, err = gw.LookupVersion(ctx, "missing", userSchema)
	assert.True(t, IsNotFound(err))

	_, err = gw.Register(ctx, "users-value", userSchema)
	require.NoError(t, err)

	_, err = gw.LookupVersion(ctx, "users-value", userSchemaV2)
	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, ErrorCodeSchemaNotFound, regErr.ErrorCode)

	_, err = gw.TestCompatibility(ctx, "users-value", userSchema, "9")
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, ErrorCodeVersionNotFound, regErr.ErrorCode)

	_, err = gw.TestCompatibility(ctx, "users-value", userSchema, "first")
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, http.StatusUnprocessableEntity, regErr.StatusCode)
}

func TestMemoryGatewayRejectsInvalidInput(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	_, err := gw.Register(ctx, "users-value", `{"type": "nope"}`)
	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, ErrorCodeInvalidSchema, regErr.ErrorCode)

	_, err = gw.UpdateCompatibility(ctx, "", "LOOSE")
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, ErrorCodeInvalidCompatibility, regErr.ErrorCode)
}

func TestMemoryGatewayCompatibilityLevels(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := context.Background()

	level, err := gw.Compatibility(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, CompatibilityBackward, level)

	_, err = gw.UpdateCompatibility(ctx, "", CompatibilityForward)
	require.NoError(t, err)
	_, err = gw.UpdateCompatibility(ctx, "users-value", CompatibilityFull)
	require.NoError(t, err)

	level, err = gw.Compatibility(ctx, "users-value")
	require.NoError(t, err)
	assert.Equal(t, CompatibilityFull, level)

	level, err = gw.Compatibility(ctx, "other-value")
	require.NoError(t, err)
	assert.Equal(t, CompatibilityForward, level)
}
