package tasklet

import (
	"context"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/foottraffic/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	exception "github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// TaskletStep is an implementation of port.Step for Tasklet-oriented processing.
type TaskletStep struct {
	id                     string
	tasklet                port.Tasklet
	jobRepository          repository.JobRepository
	stepExecutionListeners []port.StepExecutionListener
	tracer                 metrics.Tracer
}

// NewTaskletStep creates a new TaskletStep instance. A nil tracer means no tracing.
func NewTaskletStep(
	id string,
	tasklet port.Tasklet,
	jobRepository repository.JobRepository,
	stepExecutionListeners []port.StepExecutionListener,
	tracer metrics.Tracer,
) *TaskletStep {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &TaskletStep{
		id:                     id,
		tasklet:                tasklet,
		jobRepository:          jobRepository,
		stepExecutionListeners: stepExecutionListeners,
		tracer:                 tracer,
	}
}

// ID returns the step ID.
func (s *TaskletStep) ID() string {
	return s.id
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.id
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// Execute runs the Tasklet and records the outcome on stepExecution.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	logger.Infof("TaskletStep '%s' executing.", s.id)

	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()

	stepExecution.MarkAsStarted()
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		return exception.NewBatchError(s.id, "Failed to update StepExecution status to STARTED", err, false, false)
	}

	if err := s.tasklet.SetExecutionContext(ctx, stepExecution.ExecutionContext); err != nil {
		stepExecution.MarkAsFailed(err)
		if updateErr := s.jobRepository.UpdateStepExecution(ctx, stepExecution); updateErr != nil {
			logger.Errorf("TaskletStep '%s': Failed to update StepExecution: %v", s.id, updateErr)
		}
		return exception.NewBatchError(s.id, "Failed to set Tasklet ExecutionContext", err, false, false)
	}

	s.notifyBeforeStep(ctx, stepExecution)

	var exitStatus model.ExitStatus
	exitStatus, err = s.tasklet.Execute(ctx, stepExecution)

	if taskletEC, getErr := s.tasklet.GetExecutionContext(ctx); getErr == nil {
		stepExecution.ExecutionContext = taskletEC
	} else {
		logger.Warnf("TaskletStep '%s': Failed to retrieve ExecutionContext from Tasklet: %v", s.id, getErr)
	}

	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to close Tasklet: %v", s.id, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	if err != nil {
		s.tracer.RecordError(ctx, s.id, err)
		stepExecution.MarkAsFailed(err)
	} else {
		stepExecution.MarkAsCompleted(exitStatus)
	}

	s.notifyAfterStep(ctx, stepExecution)

	if updateErr := s.jobRepository.UpdateStepExecution(ctx, stepExecution); updateErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to update final StepExecution state: %v", s.id, updateErr)
		if err == nil {
			err = updateErr
		}
	}

	logger.Infof("TaskletStep '%s' finished. ExitStatus: %s", s.id, stepExecution.ExitStatus)
	return err
}

var _ port.Step = (*TaskletStep)(nil)
