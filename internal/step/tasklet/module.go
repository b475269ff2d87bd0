// Package tasklet holds the steps of the foot-traffic job.
package tasklet

import (
	"go.uber.org/fx"

	appConfig "github.com/tigerroll/foottraffic/internal/config"
	"github.com/tigerroll/foottraffic/internal/domain/normalize"
	"github.com/tigerroll/foottraffic/internal/export"
	"github.com/tigerroll/foottraffic/internal/mail"
	"github.com/tigerroll/foottraffic/internal/series"
	"github.com/tigerroll/foottraffic/internal/sheet"
	"github.com/tigerroll/foottraffic/pkg/batch/adapter/database"
	"github.com/tigerroll/foottraffic/pkg/batch/component/tasklet/migration"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
)

// NewNormalizer builds the Normalizer from the pipeline section.
func NewNormalizer(cfg *appConfig.AppConfig) (*normalize.Normalizer, error) {
	pc := cfg.Foottraffic.Pipeline
	sched, err := pc.BuildSchedule()
	if err != nil {
		return nil, err
	}
	aliases, err := pc.VenueAliases()
	if err != nil {
		return nil, err
	}
	return normalize.New(sched, normalize.WithAliases(aliases), normalize.WithMultiplier(pc.EnteringMultiplier)), nil
}

// NewExtractTaskletFromConfig builds the ExtractTasklet.
func NewExtractTaskletFromConfig(cfg *appConfig.AppConfig, bc *coreConfig.BatchConfig, source mail.Source, recorder metrics.MetricRecorder) (*ExtractTasklet, error) {
	loc, err := cfg.Foottraffic.Pipeline.Location()
	if err != nil {
		return nil, err
	}
	return NewExtractTasklet(source, sheet.NewParser(), loc, bc.BackfillDays, recorder), nil
}

// NewExportTaskletFromConfig builds the ExportTasklet.
func NewExportTaskletFromConfig(store series.Store, exporter *export.Exporter, recorder metrics.MetricRecorder) *ExportTasklet {
	return NewExportTasklet(store, exporter, recorder)
}

// NewMirrorMigrationTasklet builds the tasklet creating the mirror table. It exits NO_OP when no mirror is configured.
func NewMirrorMigrationTasklet(cfg *appConfig.AppConfig, resolver database.DBConnectionResolver, migrators migration.MigratorProvider) *migration.MigrationTasklet {
	sc := cfg.Foottraffic.Series
	return migration.NewMigrationTasklet(resolver, migrators, series.Migrations, sc.Mirror, sc.MigrationDir)
}

// Module provides the tasklets of the job.
var Module = fx.Options(
	fx.Provide(NewNormalizer),
	fx.Provide(NewExtractTaskletFromConfig),
	fx.Provide(NewIngestTasklet),
	fx.Provide(NewExportTaskletFromConfig),
	fx.Provide(NewMirrorMigrationTasklet),
)
