package tasklet

import (
	"context"
	"time"

	"github.com/tigerroll/foottraffic/internal/domain/aggregate"
	"github.com/tigerroll/foottraffic/internal/series"
	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// BucketExporter writes aggregate buckets somewhere.
type BucketExporter interface {
	Export(ctx context.Context, buckets []aggregate.Bucket) (int, error)
}

// ExportTasklet recomputes the aggregates from the stored series and exports them.
type ExportTasklet struct {
	ecHolder
	store    series.Store
	exporter BucketExporter
	recorder metrics.MetricRecorder
}

var _ port.Tasklet = (*ExportTasklet)(nil)

// NewExportTasklet creates an ExportTasklet.
func NewExportTasklet(store series.Store, exporter BucketExporter, recorder metrics.MetricRecorder) *ExportTasklet {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &ExportTasklet{store: store, exporter: exporter, recorder: recorder}
}

// Execute implements port.Tasklet.
func (t *ExportTasklet) Execute(ctx context.Context, se *batchModel.StepExecution) (batchModel.ExitStatus, error) {
	s, err := t.store.Load(ctx)
	if err != nil {
		return batchModel.ExitStatusFailed, err
	}
	se.ReadCount += len(s)

	buckets := aggregate.Buckets(aggregate.Aggregate(s))
	logger.Infof("ExportTasklet: %d records -> %d buckets.", len(s), len(buckets))

	started := time.Now()
	n, err := t.exporter.Export(ctx, buckets)
	t.recorder.RecordDuration(ctx, "dashboard_export", time.Since(started), map[string]string{"status": status(err)})
	if err != nil {
		return batchModel.ExitStatusFailed, err
	}
	t.recorder.RecordBucketsExported(ctx, n)
	se.WriteCount += n
	t.context().Put(ECKeyBuckets, n)

	if len(s) == 0 {
		return batchModel.ExitStatusNoOp, nil
	}
	return batchModel.ExitStatusCompleted, nil
}

// Close is a no-op.
func (t *ExportTasklet) Close(ctx context.Context) error {
	return nil
}
