// Package job assembles the foot-traffic job from its tasklets.
package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/foottraffic/internal/step/tasklet"
	"github.com/tigerroll/foottraffic/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	coreConfig "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	repository "github.com/tigerroll/foottraffic/pkg/batch/core/domain/repository"
	"github.com/tigerroll/foottraffic/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	taskletStep "github.com/tigerroll/foottraffic/pkg/batch/engine/step/tasklet"
)

// Step names, in execution order.
const (
	MigrateStep = "migrateStep"
	ExtractStep = "extractStep"
	IngestStep  = "ingestStep"
	ExportStep  = "exportStep"
)

// Params defines the dependencies of NewFootTrafficJob.
type Params struct {
	fx.In
	BatchConfig   *coreConfig.BatchConfig
	Repository    repository.JobRepository
	Migrate       *migration.MigrationTasklet
	Extract       *tasklet.ExtractTasklet
	Ingest        *tasklet.IngestTasklet
	Export        *tasklet.ExportTasklet
	JobListeners  []port.JobExecutionListener  `group:"jobListeners"`
	StepListeners []port.StepExecutionListener `group:"stepListeners"`
	Tracer        metrics.Tracer
}

// NewFootTrafficJob builds the job: migrate the mirror, extract reports, merge them into the
// series, then export the dashboard aggregates.
func NewFootTrafficJob(p Params) port.Job {
	step := func(id string, t port.Tasklet) port.Step {
		return taskletStep.NewTaskletStep(id, t, p.Repository, p.StepListeners, p.Tracer)
	}
	steps := []port.Step{
		step(MigrateStep, p.Migrate),
		step(ExtractStep, p.Extract),
		step(IngestStep, p.Ingest),
		step(ExportStep, p.Export),
	}
	return runner.NewSimpleJob(p.BatchConfig.JobName, steps, p.Repository, p.JobListeners, p.Tracer)
}

// Module provides the port.Job.
var Module = fx.Options(
	fx.Provide(NewFootTrafficJob),
)
