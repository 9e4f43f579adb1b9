package schema_registry

import (
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
)

// CompatibilityLevel is a registry compatibility setting.
type CompatibilityLevel string

// Compatibility levels accepted by UpdateCompatibility.
const (
	CompatibilityNone     CompatibilityLevel = "NONE"
	CompatibilityFull     CompatibilityLevel = "FULL"
	CompatibilityForward  CompatibilityLevel = "FORWARD"
	CompatibilityBackward CompatibilityLevel = "BACKWARD"
)

// DefaultCompatibility is the level a registry applies when none is configured.
const DefaultCompatibility = CompatibilityBackward

// Valid reports whether l is one of the four supported levels. Matching is exact.
func (l CompatibilityLevel) Valid() bool {
	switch l {
	case CompatibilityNone, CompatibilityFull, CompatibilityForward, CompatibilityBackward:
		return true
	}
	return false
}

// ParseCompatibilityLevel converts s, case-insensitively, into a level.
func ParseCompatibilityLevel(s string) (CompatibilityLevel, error) {
	level := CompatibilityLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !level.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCompatibilityLevel, s)
	}
	return level, nil
}

// CheckLevel checks candidate against an existing schema of the same subject
// under level. BACKWARD requires that candidate can read data written with
// existing, FORWARD the reverse, FULL both. NONE accepts everything.
func CheckLevel(level CompatibilityLevel, candidate, existing *avro.Schema) error {
	switch level {
	case CompatibilityNone:
		return nil
	case CompatibilityBackward:
		return avro.CheckCompatibility(candidate, existing)
	case CompatibilityForward:
		return avro.CheckCompatibility(existing, candidate)
	case CompatibilityFull:
		if err := avro.CheckCompatibility(candidate, existing); err != nil {
			return err
		}
		return avro.CheckCompatibility(existing, candidate)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCompatibilityLevel, level)
	}
}
