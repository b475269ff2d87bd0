package metrics

import (
	"context"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

// MetricsJobListener records job metrics and flushes the recorder once the job has ended.
type MetricsJobListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsJobListener(recorder metrics.MetricRecorder) *MetricsJobListener {
	return &MetricsJobListener{recorder: recorder}
}

func (l *MetricsJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.recorder.RecordJobStart(ctx, jobExecution)
}

func (l *MetricsJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.recorder.RecordJobEnd(ctx, jobExecution)
	// A failed push never fails the job.
	if err := l.recorder.Flush(context.WithoutCancel(ctx)); err != nil {
		logger.Warnf("MetricsJobListener: failed to flush metrics for job '%s': %v", jobExecution.JobName, err)
	}
}

var _ port.JobExecutionListener = (*MetricsJobListener)(nil)

// --- Step Execution Listener ---

type MetricsStepListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsStepListener(recorder metrics.MetricRecorder) *MetricsStepListener {
	return &MetricsStepListener{recorder: recorder}
}

func (l *MetricsStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.recorder.RecordStepStart(ctx, stepExecution)
}

func (l *MetricsStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.recorder.RecordStepEnd(ctx, stepExecution)
}

var _ port.StepExecutionListener = (*MetricsStepListener)(nil)
