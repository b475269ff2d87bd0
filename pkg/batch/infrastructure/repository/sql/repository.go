// Package sql provides a JobRepository that keeps the run history in a relational database
// reached through a named adapter.database connection.
package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	"github.com/tigerroll/foottraffic/pkg/batch/component/tasklet/migration"
	"github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/domain/repository"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

const moduleName = "SQLJobRepository"

// SQLJobRepository implements repository.JobRepository on a DBConnection.
// Execution contexts are stored with their scalar entries only.
type SQLJobRepository struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)

// NewSQLJobRepository creates a SQLJobRepository on the connection named dbName.
func NewSQLJobRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLJobRepository {
	return &SQLJobRepository{dbResolver: dbResolver, dbName: dbName}
}

// getDBConnection resolves the connection on every call so a connection closed by a migration is reopened.
func (r *SQLJobRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve DB connection '%s'", r.dbName), err, false, true)
	}
	return conn, nil
}

// Migrate applies the repository schema.
func (r *SQLJobRepository) Migrate(ctx context.Context, migrators migration.MigratorProvider) error {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if err := migrators.NewMigrator(conn).Up(ctx, Migrations, conn.Type(), migration.FrameworkMigrationsTable); err != nil {
		return exception.NewBatchError(moduleName, "job repository migration failed", err, false, false)
	}
	// golang-migrate closed the connection; resolving it again reconnects.
	_, err = r.getDBConnection(ctx)
	return err
}

// Close is a no-op; the resolver owns the connection.
func (r *SQLJobRepository) Close() error {
	return nil
}

// --- JobExecution ---

// SaveJobExecution inserts jobExecution. It fails when the ID is already stored.
func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity, err := fromDomainJobExecution(jobExecution)
	if err != nil {
		return err
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	n, err := conn.ExecuteUpsert(ctx, entity, jobExecutionTable, []string{"id"}, nil)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save JobExecution (ID: %s)", jobExecution.ID), err, false, true)
	}
	if n == 0 {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	return nil
}

// UpdateJobExecution updates the mutable columns of a stored JobExecution.
func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity, err := fromDomainJobExecution(jobExecution)
	if err != nil {
		return err
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if err := r.requireExists(ctx, conn, &JobExecutionEntity{}, jobExecution.ID, repository.ErrJobExecutionNotFound); err != nil {
		return err
	}
	if _, err := conn.ExecuteUpsert(ctx, entity, jobExecutionTable, []string{"id"}, jobExecutionUpdateColumns); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to update JobExecution (ID: %s)", jobExecution.ID), err, false, true)
	}
	return nil
}

// FindJobExecutionByID loads a JobExecution with its StepExecutions in start order.
func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error) {
	return r.findJobExecution(ctx, map[string]interface{}{"id": executionID}, "")
}

// FindLatestJobExecution returns the most recently created JobExecution of jobName.
func (r *SQLJobRepository) FindLatestJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	return r.findJobExecution(ctx, map[string]interface{}{"job_name": jobName}, "create_time DESC")
}

func (r *SQLJobRepository) findJobExecution(ctx context.Context, query map[string]interface{}, orderBy string) (*model.JobExecution, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []JobExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, query, orderBy, 1); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewBatchError(moduleName, "failed to find JobExecution", err, false, true)
	}
	if len(entities) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}
	je, err := toDomainJobExecution(&entities[0])
	if err != nil {
		return nil, err
	}

	var steps []StepExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &steps, map[string]interface{}{"job_execution_id": je.ID}, "start_time", 0); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to load StepExecutions of JobExecution (ID: %s)", je.ID), err, false, true)
	}
	for i := range steps {
		se, err := toDomainStepExecution(&steps[i])
		if err != nil {
			return nil, err
		}
		se.JobExecution = je
		je.StepExecutions = append(je.StepExecutions, se)
	}
	return je, nil
}

// --- StepExecution ---

// SaveStepExecution inserts stepExecution. It fails when the ID is already stored.
func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	entity, err := fromDomainStepExecution(stepExecution)
	if err != nil {
		return err
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	n, err := conn.ExecuteUpsert(ctx, entity, stepExecutionTable, []string{"id"}, nil)
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID), err, false, true)
	}
	if n == 0 {
		return fmt.Errorf("StepExecution with ID %s already exists", stepExecution.ID)
	}
	return nil
}

// UpdateStepExecution updates the mutable columns of a stored StepExecution.
func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	entity, err := fromDomainStepExecution(stepExecution)
	if err != nil {
		return err
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if err := r.requireExists(ctx, conn, &StepExecutionEntity{}, stepExecution.ID, repository.ErrStepExecutionNotFound); err != nil {
		return err
	}
	if _, err := conn.ExecuteUpsert(ctx, entity, stepExecutionTable, []string{"id"}, stepExecutionUpdateColumns); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to update StepExecution (ID: %s)", stepExecution.ID), err, false, true)
	}
	return nil
}

// FindStepExecutionByID loads a StepExecution. Its JobExecution is not attached.
func (r *SQLJobRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}
	var entities []StepExecutionEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": executionID}, "", 1); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrStepExecutionNotFound
		}
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to find StepExecution (ID: %s)", executionID), err, false, true)
	}
	if len(entities) == 0 {
		return nil, repository.ErrStepExecutionNotFound
	}
	return toDomainStepExecution(&entities[0])
}

func (r *SQLJobRepository) requireExists(ctx context.Context, conn database.DBConnection, entity interface{}, id string, notFound error) error {
	n, err := conn.Count(ctx, entity, map[string]interface{}{"id": id})
	if err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to look up ID %s", id), err, false, true)
	}
	if n == 0 {
		logger.Debugf("%s: ID %s not found for update.", moduleName, id)
		return fmt.Errorf("ID %s not found for update: %w", id, notFound)
	}
	return nil
}
