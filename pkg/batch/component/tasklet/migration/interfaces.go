package migration

import (
	"context"
	"io/fs"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
)

// AppMigrationsTable tracks the applied application migrations.
const AppMigrationsTable = "foottraffic_schema_migrations"

// FrameworkMigrationsTable tracks the applied job repository migrations.
const FrameworkMigrationsTable = "foottraffic_batch_schema_migrations"

// Migrator handles database schema migrations.
type Migrator interface {
	// Up applies all pending migrations found under path in migrationFS.
	// tableName is the table used to track migration history.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down rolls back all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
}

// MigratorProvider creates Migrator instances for a connection.
type MigratorProvider interface {
	NewMigrator(dbConn database.DBConnection) Migrator
}

type migratorProviderImpl struct{}

// NewMigratorProvider creates a new MigratorProvider.
func NewMigratorProvider() MigratorProvider {
	return &migratorProviderImpl{}
}

func (p *migratorProviderImpl) NewMigrator(dbConn database.DBConnection) Migrator {
	return NewMigrator(dbConn)
}
