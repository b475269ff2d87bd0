package migration

import (
	"context"
	"io/fs"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

const taskletName = "migration_tasklet"

// MigrationTasklet applies the "up" migrations of migrationFS to a named database connection.
// The directory inside migrationFS defaults to the database type ("sqlite", "postgres", "mysql").
// With no connection name configured the tasklet does nothing and exits NO_OP.
type MigrationTasklet struct {
	dbResolver       database.DBConnectionResolver
	migratorProvider MigratorProvider
	migrationFS      fs.FS
	dbConnectionName string
	migrationDir     string
	ec               model.ExecutionContext
}

var _ port.Tasklet = (*MigrationTasklet)(nil)

// NewMigrationTasklet creates a new MigrationTasklet instance.
func NewMigrationTasklet(
	dbResolver database.DBConnectionResolver,
	migratorProvider MigratorProvider,
	migrationFS fs.FS,
	dbConnectionName string,
	migrationDir string,
) *MigrationTasklet {
	return &MigrationTasklet{
		dbResolver:       dbResolver,
		migratorProvider: migratorProvider,
		migrationFS:      migrationFS,
		dbConnectionName: dbConnectionName,
		migrationDir:     migrationDir,
		ec:               model.NewExecutionContext(),
	}
}

// Execute runs the migration and re-resolves the connection, since golang-migrate closes it.
func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if t.dbConnectionName == "" {
		logger.Infof("MigrationTasklet: no database connection configured. Skipping migration.")
		return model.ExitStatusNoOp, nil
	}

	dbConn, err := t.dbResolver.ResolveDBConnection(ctx, t.dbConnectionName)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(taskletName, "failed to resolve database connection '"+t.dbConnectionName+"'", err, false, true)
	}

	migrationDir := t.migrationDir
	if migrationDir == "" {
		migrationDir = dbConn.Type()
		logger.Debugf("MigrationTasklet: using DB type '%s' as migration directory.", migrationDir)
	}

	if err := t.migratorProvider.NewMigrator(dbConn).Up(ctx, t.migrationFS, migrationDir, AppMigrationsTable); err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(taskletName, "migration 'up' failed", err, false, false)
	}

	if _, err := t.dbResolver.ResolveDBConnection(ctx, t.dbConnectionName); err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(taskletName, "failed to re-establish database connection after migration", err, false, false)
	}
	t.ec.Put("migration.dir", migrationDir)
	return model.ExitStatusCompleted, nil
}

// Close is a no-op.
func (t *MigrationTasklet) Close(ctx context.Context) error {
	return nil
}

// SetExecutionContext sets the ExecutionContext for the tasklet.
func (t *MigrationTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

// GetExecutionContext retrieves the current ExecutionContext of the tasklet.
func (t *MigrationTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}
