package schema_registry

import "context"

//go:generate mockgen -source=gateway.go -destination=mock_gateway.go -package=schema_registry

// LatestVersion is the version string that addresses the newest schema of a subject.
const LatestVersion = "latest"

// SchemaMetadata is a registered schema as reported by the registry.
type SchemaMetadata struct {
	Subject string `json:"subject,omitempty"`
	ID      int    `json:"id"`
	Version int    `json:"version"`
	Schema  string `json:"schema,omitempty"`
}

// Gateway maps registry operations onto a registry backend. It keeps no
// state; caching is done by CachedClient.
//
// Failures are reported as *RegistryError. A missing subject, version or
// schema is a RegistryError with StatusCode 404 (see IsNotFound).
type Gateway interface {
	// Register stores schema under subject and returns its global id.
	// Registering the same schema again returns the existing id.
	Register(ctx context.Context, subject, schema string) (int, error)

	// SchemaByID returns the schema text registered under id.
	SchemaByID(ctx context.Context, id int) (string, error)

	// LatestVersion returns the newest schema of subject.
	LatestVersion(ctx context.Context, subject string) (SchemaMetadata, error)

	// LookupVersion returns id and version of schema within subject.
	LookupVersion(ctx context.Context, subject, schema string) (SchemaMetadata, error)

	// TestCompatibility checks schema against version ("latest" or a number) of subject.
	TestCompatibility(ctx context.Context, subject, schema, version string) (bool, error)

	// UpdateCompatibility sets the level of subject, or the global level when
	// subject is empty, and returns the level now in effect.
	UpdateCompatibility(ctx context.Context, subject string, level CompatibilityLevel) (CompatibilityLevel, error)

	// Compatibility returns the level of subject, or the global level when subject is empty.
	Compatibility(ctx context.Context, subject string) (CompatibilityLevel, error)
}
