package app

import (
	"os"
	"strings"

	"go.uber.org/fx"

	appConfig "github.com/tigerroll/foottraffic/internal/config"
	"github.com/tigerroll/foottraffic/internal/export"
	appJob "github.com/tigerroll/foottraffic/internal/job"
	"github.com/tigerroll/foottraffic/internal/mail"
	"github.com/tigerroll/foottraffic/internal/series"
	"github.com/tigerroll/foottraffic/internal/step/tasklet"
	gormadapter "github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage/local"
	migrationTasklet "github.com/tigerroll/foottraffic/pkg/batch/component/tasklet/migration"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	jobRunner "github.com/tigerroll/foottraffic/pkg/batch/core/job/runner"
	infraMetrics "github.com/tigerroll/foottraffic/pkg/batch/infrastructure/metrics"
	jobRepository "github.com/tigerroll/foottraffic/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/foottraffic/pkg/batch/infrastructure/telemetry"
	batchlistener "github.com/tigerroll/foottraffic/pkg/batch/listener"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// DBProviderMap maps a database type to the module contributing its provider.
var DBProviderMap = map[string]fx.Option{
	"sqlite":   sqlite.Module,
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
}

// DBProviderOptions selects the database providers named in the comma-separated DB_ADAPTORS
// environment variable. All of them are registered when it is unset.
func DBProviderOptions() []fx.Option {
	adaptors := os.Getenv("DB_ADAPTORS")
	if adaptors == "" {
		adaptors = "sqlite,postgres,mysql"
	}

	options := make([]fx.Option, 0, len(DBProviderMap))
	for _, name := range strings.Split(adaptors, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if m, ok := DBProviderMap[name]; ok {
			options = append(options, m)
			logger.Debugf("DB Provider '%s' selected and registered.", name)
		} else {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
		}
	}
	return options
}

// Module wires the framework and the foot-traffic packages. Database providers are added separately.
var Module = fx.Options(
	logger.Module,
	coreConfig.Module,
	appConfig.Module,

	telemetry.Module,
	infraMetrics.Module,
	batchlistener.Module,

	storage.Module,
	local.Module,
	gcs.Module,
	gormadapter.Module,
	migrationTasklet.Module,

	jobRepository.Module,
	jobRunner.Module,

	mail.Module,
	series.Module,
	export.Module,
	tasklet.Module,
	appJob.Module,

	fx.Provide(NewLauncher),
)
