package runner

import (
	"context"
	"time"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/foottraffic/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	exception "github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// SimpleJob is an implementation of port.Job that executes its steps in order.
// Each step starts from a copy of the job ExecutionContext and its resulting context is promoted
// back into the job, so later steps see what earlier steps produced. The first failing step stops the job.
type SimpleJob struct {
	name          string
	steps         []port.Step
	jobRepository repository.JobRepository
	jobListeners  []port.JobExecutionListener
	tracer        metrics.Tracer
}

var _ port.Job = (*SimpleJob)(nil)

// NewSimpleJob creates a new instance of SimpleJob. A nil tracer falls back to a no-op.
// Job metrics are recorded by a JobExecutionListener.
func NewSimpleJob(
	name string,
	steps []port.Step,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	tracer metrics.Tracer,
) *SimpleJob {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleJob{
		name:          name,
		steps:         steps,
		jobRepository: jobRepository,
		jobListeners:  jobListeners,
		tracer:        tracer,
	}
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string {
	return j.name
}

// ValidateParameters checks that backfill_days, when present, is a positive integer.
func (j *SimpleJob) ValidateParameters(params model.JobParameters) error {
	logger.Debugf("Job '%s': Validating JobParameters: %s", j.name, params.String())
	if _, present := params.Params[ParamBackfillDays]; !present {
		return nil
	}
	days, ok := params.GetInt(ParamBackfillDays)
	if !ok || days < 1 {
		return exception.NewBatchErrorf(j.name, "job parameter '%s' must be a positive integer, got %v", ParamBackfillDays, params.Params[ParamBackfillDays])
	}
	return nil
}

// ParamBackfillDays is the job parameter bounding the mail search window.
const ParamBackfillDays = "backfill_days"

func (j *SimpleJob) notifyBeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *SimpleJob) notifyAfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run executes the steps sequentially.
func (j *SimpleJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		if jobExecution.EndTime == nil {
			now := time.Now()
			jobExecution.EndTime = &now
		}
		j.notifyAfterJob(ctx, jobExecution)

		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
		for _, se := range jobExecution.StepExecutions {
			logger.Debugf("  Step '%s': status=%s exit=%s read=%d write=%d filter=%d duration=%s",
				se.StepName, se.Status, se.ExitStatus, se.ReadCount, se.WriteCount, se.FilterCount, se.Duration())
		}
	}()

	if err := j.ValidateParameters(jobParameters); err != nil {
		jobExecution.MarkAsFailed(err)
		return err
	}

	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, err)
			jobExecution.AddFailureException(err)
			jobExecution.MarkAsStopped()
			j.tracer.RecordError(ctx, "job_runner", err)
			return err
		}

		stepName := step.StepName()
		jobExecution.CurrentStepName = stepName

		stepExecution := model.NewStepExecution(jobExecution, stepName)
		stepExecution.ExecutionContext = jobExecution.ExecutionContext.Copy()
		jobExecution.AddStepExecution(stepExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			wrapped := exception.NewBatchError(j.name, "failed to save StepExecution for step '"+stepName+"'", err, false, false)
			jobExecution.MarkAsFailed(wrapped)
			return wrapped
		}

		stepErr := step.Execute(ctx, jobExecution, stepExecution)

		for k, v := range stepExecution.ExecutionContext {
			jobExecution.ExecutionContext.Put(k, v)
		}
		if updateErr := j.jobRepository.UpdateJobExecution(ctx, jobExecution); updateErr != nil {
			logger.Errorf("Job '%s': Failed to update JobExecution after step '%s': %v", j.name, stepName, updateErr)
		}

		if stepErr != nil {
			logger.Errorf("Job '%s': Step '%s' failed: %v", j.name, stepName, stepErr)
			if ctx.Err() != nil {
				jobExecution.AddFailureException(stepErr)
				jobExecution.MarkAsStopped()
			} else {
				jobExecution.MarkAsFailed(stepErr)
			}
			j.tracer.RecordError(ctx, stepName, stepErr)
			return stepErr
		}
	}

	jobExecution.MarkAsCompleted()
	return nil
}
