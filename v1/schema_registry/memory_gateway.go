package schema_registry

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
)

// MemoryGateway is an in-process registry. It assigns ids and versions the
// way a registry service does and enforces compatibility levels with the
// Avro schema resolution rules. It is meant for tests and local development.
type MemoryGateway struct {
	mu sync.RWMutex

	nextID   int
	byID     map[int]*avro.Schema
	idByHash map[avro.Fingerprint]int

	// subjects holds the ids of a subject's schemas, index i is version i+1.
	subjects map[string][]int

	globalLevel CompatibilityLevel
	levels      map[string]CompatibilityLevel
}

// NewMemoryGateway returns an empty registry with BACKWARD global compatibility.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		nextID:      1,
		byID:        make(map[int]*avro.Schema),
		idByHash:    make(map[avro.Fingerprint]int),
		subjects:    make(map[string][]int),
		globalLevel: DefaultCompatibility,
		levels:      make(map[string]CompatibilityLevel),
	}
}

// Register implements Gateway. The same schema keeps its id across subjects.
func (m *MemoryGateway) Register(_ context.Context, subject, text string) (int, error) {
	schema, err := ParseSchema(text)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.subjects[subject]
	for _, id := range versions {
		if m.byID[id].Fingerprint() == schema.Fingerprint() {
			return id, nil
		}
	}

	if len(versions) > 0 {
		latest := m.byID[versions[len(versions)-1]]
		if err := CheckLevel(m.levelLocked(subject), schema, latest); err != nil {
			return 0, NewIncompatibleSchemaError(err)
		}
	}

	id, ok := m.idByHash[schema.Fingerprint()]
	if !ok {
		id = m.nextID
		m.nextID++
		m.byID[id] = schema
		m.idByHash[schema.Fingerprint()] = id
	}
	m.subjects[subject] = append(versions, id)
	return id, nil
}

// SchemaByID implements Gateway.
func (m *MemoryGateway) SchemaByID(_ context.Context, id int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	schema, ok := m.byID[id]
	if !ok {
		return "", NewSchemaNotFoundError("Schema " + strconv.Itoa(id) + " not found")
	}
	return schema.Text(), nil
}

// LatestVersion implements Gateway.
func (m *MemoryGateway) LatestVersion(_ context.Context, subject string) (SchemaMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, ok := m.subjects[subject]
	if !ok || len(versions) == 0 {
		return SchemaMetadata{}, NewSubjectNotFoundError(subject)
	}
	return m.metadataLocked(subject, len(versions)), nil
}

// LookupVersion implements Gateway.
func (m *MemoryGateway) LookupVersion(_ context.Context, subject, text string) (SchemaMetadata, error) {
	schema, err := ParseSchema(text)
	if err != nil {
		return SchemaMetadata{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, ok := m.subjects[subject]
	if !ok {
		return SchemaMetadata{}, NewSubjectNotFoundError(subject)
	}
	for i, id := range versions {
		if m.byID[id].Fingerprint() == schema.Fingerprint() {
			return m.metadataLocked(subject, i+1), nil
		}
	}
	return SchemaMetadata{}, NewSchemaNotFoundError("Schema not found")
}

// TestCompatibility implements Gateway.
func (m *MemoryGateway) TestCompatibility(_ context.Context, subject, text, version string) (bool, error) {
	schema, err := ParseSchema(text)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, ok := m.subjects[subject]
	if !ok {
		return false, NewSubjectNotFoundError(subject)
	}

	n, err := ResolveVersion(version, len(versions))
	if err != nil {
		return false, err
	}

	existing := m.byID[versions[n-1]]
	return CheckLevel(m.levelLocked(subject), schema, existing) == nil, nil
}

// UpdateCompatibility implements Gateway.
func (m *MemoryGateway) UpdateCompatibility(_ context.Context, subject string, level CompatibilityLevel) (CompatibilityLevel, error) {
	if !level.Valid() {
		return "", NewInvalidCompatibilityError()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if subject == "" {
		m.globalLevel = level
	} else {
		m.levels[subject] = level
	}
	return level, nil
}

// Compatibility implements Gateway. A subject without its own level reports the global one.
func (m *MemoryGateway) Compatibility(_ context.Context, subject string) (CompatibilityLevel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.levelLocked(subject), nil
}

func (m *MemoryGateway) levelLocked(subject string) CompatibilityLevel {
	if level, ok := m.levels[subject]; ok {
		return level
	}
	return m.globalLevel
}

func (m *MemoryGateway) metadataLocked(subject string, version int) SchemaMetadata {
	id := m.subjects[subject][version-1]
	return SchemaMetadata{
		Subject: subject,
		ID:      id,
		Version: version,
		Schema:  m.byID[id].Text(),
	}
}

// ParseSchema parses text the way a registry validates an incoming schema,
// reporting failures as a 422 RegistryError.
func ParseSchema(text string) (*avro.Schema, error) {
	schema, err := avro.Parse(text)
	if err != nil {
		return nil, NewInvalidSchemaError(err)
	}
	return schema, nil
}

// ResolveVersion turns "latest", "" or a 1-based number into a version that
// exists among count versions.
func ResolveVersion(version string, count int) (int, error) {
	if version == "" || version == LatestVersion || version == "-1" {
		return count, nil
	}
	n, err := strconv.Atoi(version)
	if err != nil || n < 1 {
		return 0, &RegistryError{
			StatusCode: http.StatusUnprocessableEntity,
			ErrorCode:  ErrorCodeInvalidVersion,
			Message:    "The specified version '" + version + "' is not a valid version id.",
		}
	}
	if n > count {
		return 0, NewVersionNotFoundError(version)
	}
	return n, nil
}
