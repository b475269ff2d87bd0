// Package port defines the core interfaces (ports) for the batch application.
// These interfaces abstract the application's capabilities and dependencies,
// allowing for flexible implementation and testing.
package port

import (
	"context"
	"errors"

	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
)

// ErrExecutionContextNotSupported is returned when a component does not support getting or setting ExecutionContext.
var ErrExecutionContextNotSupported = errors.New("execution context not supported by this component")

// JobRunner is the interface responsible for executing a Job and persisting its final state.
type JobRunner interface {
	// Run executes job for jobExecution. The outcome is reflected in jobExecution.
	Run(ctx context.Context, job Job, jobExecution *model.JobExecution)
}

// Job is the interface for an executable batch job.
type Job interface {
	// Run executes every step of the job in order.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   jobExecution: The current JobExecution instance.
	//   jobParameters: The job parameters for the execution.
	//
	// Returns:
	//   error: An error if the job execution fails.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	// JobName returns the logical name of the job.
	JobName() string
	// ValidateParameters validates job parameters before job execution.
	ValidateParameters(params model.JobParameters) error
}

// Step is the interface for a single step executed within a job.
type Step interface {
	// Execute executes the business logic of the step.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   jobExecution: The current JobExecution instance.
	//   stepExecution: The current StepExecution instance.
	//
	// Returns:
	//   error: An error if the step execution encounters a fatal issue.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the logical name of the step.
	StepName() string
	// ID returns the unique ID of the step definition.
	ID() string
}

// Tasklet is the interface for a step that performs a single operation.
type Tasklet interface {
	// Execute runs the tasklet's business logic. The returned ExitStatus becomes the step's exit status.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources held by the tasklet.
	Close(ctx context.Context) error
	// SetExecutionContext hands the step's ExecutionContext to the tasklet before Execute.
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	// GetExecutionContext returns the tasklet's ExecutionContext after Execute.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// StepExecutionListener is an interface for handling step execution events.
type StepExecutionListener interface {
	// BeforeStep is called before a step starts.
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	// AfterStep is called after a step finishes, whatever its outcome.
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is an interface for handling job execution events.
type JobExecutionListener interface {
	// BeforeJob is called before a job starts.
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	// AfterJob is called after a job finishes, whatever its outcome.
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}
