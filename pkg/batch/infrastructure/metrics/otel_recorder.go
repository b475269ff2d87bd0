package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
)

// MeterName is the instrumentation scope of the batch metrics.
const MeterName = "github.com/tigerroll/foottraffic/pkg/batch"

// OTelRecorder implements metrics.MetricRecorder on the OpenTelemetry metric API.
// Export is handled by the MeterProvider's reader; Flush forces a collection when the
// provider supports it.
type OTelRecorder struct {
	provider metric.MeterProvider

	jobDuration       metric.Float64Histogram
	jobRuns           metric.Int64Counter
	stepDuration      metric.Float64Histogram
	rowsExtracted     metric.Int64Counter
	rowsRejected      metric.Int64Counter
	mergeOutcomes     metric.Int64Counter
	bucketsExported   metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewOTelRecorder creates the instruments on provider.
func NewOTelRecorder(provider metric.MeterProvider) (*OTelRecorder, error) {
	meter := provider.Meter(MeterName)
	r := &OTelRecorder{provider: provider}
	var err error

	if r.jobDuration, err = meter.Float64Histogram("batch_job_duration_seconds",
		metric.WithDescription("Duration of batch job executions."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.jobRuns, err = meter.Int64Counter("batch_job_status_total",
		metric.WithDescription("Total number of finished batch job executions by status.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("batch_step_duration_seconds",
		metric.WithDescription("Duration of batch step executions."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.rowsExtracted, err = meter.Int64Counter("foottraffic_rows_extracted_total",
		metric.WithDescription("Raw rows parsed from report attachments.")); err != nil {
		return nil, err
	}
	if r.rowsRejected, err = meter.Int64Counter("foottraffic_rows_rejected_total",
		metric.WithDescription("Rows dropped at row level by stage and reason.")); err != nil {
		return nil, err
	}
	if r.mergeOutcomes, err = meter.Int64Counter("foottraffic_merge_records_total",
		metric.WithDescription("Records handled by the merge by outcome.")); err != nil {
		return nil, err
	}
	if r.bucketsExported, err = meter.Int64Counter("foottraffic_buckets_exported_total",
		metric.WithDescription("Aggregate buckets written to the dashboard export.")); err != nil {
		return nil, err
	}
	if r.operationDuration, err = meter.Float64Histogram("foottraffic_operation_duration_seconds",
		metric.WithDescription("Duration of collaborator operations."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

func (r *OTelRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := metric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobRuns.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OTelRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *OTelRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	r.stepDuration.Record(ctx, execution.Duration().Seconds(), metric.WithAttributes(
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
		attribute.String("exit_status", execution.ExitStatus.String()),
	))
}

func (r *OTelRecorder) RecordRowsExtracted(ctx context.Context, source string, count int) {
	r.rowsExtracted.Add(ctx, int64(count), metric.WithAttributes(attribute.String("source", source)))
}

func (r *OTelRecorder) RecordRowsRejected(ctx context.Context, stage, reason string, count int) {
	r.rowsRejected.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("reason", reason),
	))
}

func (r *OTelRecorder) RecordMergeOutcome(ctx context.Context, outcome string, count int) {
	r.mergeOutcomes.Add(ctx, int64(count), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (r *OTelRecorder) RecordBucketsExported(ctx context.Context, count int) {
	r.bucketsExported.Add(ctx, int64(count))
}

func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("operation", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

type forceFlusher interface {
	ForceFlush(ctx context.Context) error
}

// Flush forces the provider's readers to export when the provider is an SDK provider.
func (r *OTelRecorder) Flush(ctx context.Context) error {
	if f, ok := r.provider.(forceFlusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

var _ metrics.MetricRecorder = (*OTelRecorder)(nil)
