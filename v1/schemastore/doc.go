// Package schemastore keeps a schema registry in Postgres.
//
// Store implements schema_registry.Gateway with the semantics of a registry
// service: schema ids are global and shared between subjects, versions count
// from 1 per subject, registering a known schema returns its id, and new
// versions must satisfy the compatibility level of the subject (BACKWARD
// unless configured). Errors are *schema_registry.RegistryError values with
// the status and error codes a registry service would return.
//
// Three tables back the store and are created on startup unless
// Config.SkipMigration is set:
//
//	registry_schemas           id, fingerprint, schema
//	registry_subject_versions  subject, version, schema_id
//	registry_configs           subject, compatibility ("" is the global level)
//
// # Usage
//
//	store, err := schemastore.NewStore(schemastore.Config{
//		Connection: schemastore.Connection{
//			Host: "localhost", Port: "5432",
//			User: "registry", Password: "secret", DbName: "registry",
//		},
//	})
//	client := schema_registry.NewCachedClient(store)
//
// With fx, schemastore.FXModule replaces HTTPGatewayModule and also runs the
// connection monitor, which reconnects after failed health checks.
package schemastore
