// Package adapter defines the connection abstractions shared by the storage and database adapters.
package adapter

import (
	"context"
)

// ResourceConnection represents a connection to an external resource (object storage, database).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the backend type (e.g., "local", "gcs", "sqlite").
	Type() string
	// Name returns the configured connection name (e.g., "series", "mirror").
	Name() string
}

// ResourceConnectionResolver resolves a named connection, creating it on first use.
type ResourceConnectionResolver interface {
	// ResolveConnection resolves a resource connection instance by name.
	ResolveConnection(ctx context.Context, name string) (ResourceConnection, error)
}
