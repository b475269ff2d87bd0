package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics of a foot-traffic batch run.
//
// Job and step lifecycle metrics are recorded by listeners; the pipeline counters are recorded by
// the tasklets. Backends (Prometheus, OpenTelemetry) implement this interface.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)

	// RecordJobEnd records the end of a JobExecution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)

	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordRowsExtracted records raw rows parsed from one attachment.
	//
	// source: the attachment name.
	RecordRowsExtracted(ctx context.Context, source string, count int)

	// RecordRowsRejected records rows dropped at row level.
	//
	// stage: "parse", "normalize" or "merge".
	// reason: a short machine-friendly reason such as "unknown_venue".
	RecordRowsRejected(ctx context.Context, stage, reason string, count int)

	// RecordMergeOutcome records merged records by outcome ("inserted", "replaced", "unchanged", "retained").
	RecordMergeOutcome(ctx context.Context, outcome string, count int)

	// RecordBucketsExported records the number of aggregate buckets written by the export.
	RecordBucketsExported(ctx context.Context, count int)

	// RecordDuration records the execution time of a specific operation.
	//
	// name: the operation (e.g. "gmail_fetch", "series_save").
	// tags: additional attributes, e.g. {"status": "success"}.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)

	// Flush hands buffered metrics to the backend. It is called once after the job ends.
	Flush(ctx context.Context) error
}
