package metrics

import (
	"context"

	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing of job and step executions.
type Tracer interface {
	// StartJobSpan starts a Span for a JobExecution.
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())

	// StartStepSpan starts a Span for a StepExecution, typically as a child of the job span.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: the component where the error occurred (e.g. "ingestStep", "store").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
