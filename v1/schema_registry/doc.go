// Package schema_registry provides a caching client for a Confluent
// compatible schema registry.
//
// The package has two layers:
//
//   - Gateway maps registry operations onto a backend and keeps no state.
//     HTTPGateway talks to a registry service over REST, MemoryGateway keeps
//     everything in process, and schemastore.Store persists to Postgres.
//   - CachedClient sits in front of a Gateway and caches schema ids,
//     parsed schemas and versions for the lifetime of the process.
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
//
//	gateway, err := schema_registry.NewHTTPGateway(schema_registry.Config{
//	    URL:      "http://localhost:8081",
//	    Username: "user",     // Optional
//	    Password: "password", // Optional
//	    Timeout:  10 * time.Second,
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := schema_registry.NewCachedClient(gateway)
//
//	schema := avro.MustParse(`{
//	    "type": "record",
//	    "name": "User",
//	    "fields": [
//	        {"name": "name", "type": "string"},
//	        {"name": "age", "type": "int"}
//	    ]
//	}`)
//
//	// Registers once; later calls for the same subject and schema are cache hits.
//	id, err := client.Register(ctx, "users-value", schema)
//
//	// found is false with a nil error when the id is unknown.
//	schema, found, err := client.GetByID(ctx, id)
//
//	// Always asks the registry.
//	latest, found, err := client.GetLatestSchema(ctx, "users-value")
//
//	// Fails closed: any error is reported as incompatible.
//	if !client.TestCompatibility(ctx, "users-value", newSchema, "") {
//	    log.Println("schema is not compatible")
//	}
//
// Results:
//
// Lookups distinguish three outcomes. A found value is (value, true, nil);
// a subject, version or id the registry does not have is (zero, false, nil);
// any other failure is (zero, false, err) where err is a *RegistryError.
// RegistryError.StatusCode is the HTTP status, or -1 for transport failures
// and requests rejected before they were sent.
//
// Using with FX:
//
//	app := fx.New(
//	    schema_registry.HTTPGatewayModule,  // or MemoryGatewayModule, schemastore.FXModule
//	    schema_registry.FXModule,
//	    fx.Provide(func() schema_registry.Config {
//	        return schema_registry.Config{URL: os.Getenv("SCHEMA_REGISTRY_URL")}
//	    }),
//	)
//
// Requests made by HTTPGateway run inside OpenTelemetry client spans and carry
// the W3C trace context in their headers.
//
// Thread Safety:
//
// CachedClient, HTTPGateway and MemoryGateway are safe for concurrent use.
package schema_registry
