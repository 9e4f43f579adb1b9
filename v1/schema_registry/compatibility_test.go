package schema_registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
)

func TestCompatibilityLevelValid(t *testing.T) {
	for _, level := range []CompatibilityLevel{"NONE", "FULL", "FORWARD", "BACKWARD"} {
		assert.True(t, level.Valid(), level)
	}
	for _, level := range []CompatibilityLevel{"", "none", "FULL_TRANSITIVE", "SIDEWAYS"} {
		assert.False(t, level.Valid(), level)
	}
}

func TestParseCompatibilityLevel(t *testing.T) {
	level, err := ParseCompatibilityLevel(" forward ")
	require.NoError(t, err)
	assert.Equal(t, CompatibilityForward, level)

	_, err = ParseCompatibilityLevel("transitive")
	assert.ErrorIs(t, err, ErrInvalidCompatibilityLevel)
}

func TestCheckLevel(t *testing.T) {
	v1 := avro.MustParse(userSchema)
	addedOptional := avro.MustParse(userSchemaV2)
	addedRequired := avro.MustParse(incompatibleUserSchema)

	assert.NoError(t, CheckLevel(CompatibilityBackward, addedOptional, v1))
	assert.NoError(t, CheckLevel(CompatibilityFull, addedOptional, v1))
	assert.Error(t, CheckLevel(CompatibilityBackward, addedRequired, v1))
	assert.NoError(t, CheckLevel(CompatibilityForward, addedRequired, v1))
	assert.Error(t, CheckLevel(CompatibilityFull, addedRequired, v1))
	assert.NoError(t, CheckLevel(CompatibilityNone, addedRequired, v1))
	assert.ErrorIs(t, CheckLevel("SIDEWAYS", v1, v1), ErrInvalidCompatibilityLevel)
}
