// Package database defines the common interfaces for the relational database adapters.
// The series mirror and the schema migrator reach their database through these interfaces.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/foottraffic/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/foottraffic/pkg/batch/core/adapter"
)

// DBExecutor defines the read and write operations shared by a connection and a transaction.
type DBExecutor interface {
	// ExecuteUpsert inserts model (a pointer to an entity or a slice of entities), updating
	// updateColumns when a row with the same conflictColumns exists. With no updateColumns
	// conflicting rows are left untouched.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// ExecuteQuery loads the rows matching query into target.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced executes a read operation with optional sorting and limiting.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection represents a named database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection
	DBExecutor

	// Transaction runs fn inside a database transaction. The transaction is committed when fn
	// returns nil and rolled back otherwise.
	Transaction(ctx context.Context, fn func(tx DBExecutor) error) error
	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves named database connections across providers.
type DBConnectionResolver interface {
	coreAdapter.ResourceConnectionResolver

	// ResolveDBConnection resolves a database connection by name, re-establishing it when
	// it no longer answers a ping.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider opens and caches connections of one database type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider (e.g., "sqlite", "postgres").
	Type() string
	// ForceReconnect closes and re-establishes the connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"
