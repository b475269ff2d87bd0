package sql

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	"github.com/tigerroll/foottraffic/pkg/batch/component/tasklet/migration"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/core/domain/repository"
	"github.com/tigerroll/foottraffic/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// Params defines the dependencies of NewJobRepository.
type Params struct {
	fx.In
	Lifecycle   fx.Lifecycle
	BatchConfig *coreConfig.BatchConfig
	Resolver    database.DBConnectionResolver
	Migrators   migration.MigratorProvider
}

// NewJobRepository returns a SQLJobRepository on batch.repository, migrated when the application
// starts, or an in-memory repository when batch.repository is empty.
func NewJobRepository(p Params) repository.JobRepository {
	name := p.BatchConfig.Repository
	if name == "" {
		logger.Debugf("JobRepository: keeping run history in memory.")
		return inmemory.NewInMemoryJobRepository()
	}
	logger.Infof("JobRepository: keeping run history in database connection '%s'.", name)
	r := NewSQLJobRepository(p.Resolver, name)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return r.Migrate(ctx, p.Migrators) },
	})
	return r
}

// Module provides the repository.JobRepository.
var Module = fx.Options(
	fx.Provide(NewJobRepository),
)
