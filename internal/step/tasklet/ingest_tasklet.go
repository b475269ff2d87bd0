package tasklet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/foottraffic/internal/domain/merge"
	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/domain/normalize"
	"github.com/tigerroll/foottraffic/internal/series"
	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// IngestTasklet normalizes the extracted rows, merges them into the stored series and saves it.
// The series is saved only when the merge changed it; the mirror, when enabled, is synced on every run.
type IngestTasklet struct {
	ecHolder
	normalizer *normalize.Normalizer
	store      series.Store
	mirror     *series.Mirror
	recorder   metrics.MetricRecorder
}

var _ port.Tasklet = (*IngestTasklet)(nil)

// NewIngestTasklet creates an IngestTasklet. mirror may be nil.
func NewIngestTasklet(normalizer *normalize.Normalizer, store series.Store, mirror *series.Mirror, recorder metrics.MetricRecorder) *IngestTasklet {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &IngestTasklet{
		normalizer: normalizer,
		store:      store,
		mirror:     mirror,
		recorder:   recorder,
	}
}

// Execute implements port.Tasklet.
func (t *IngestTasklet) Execute(ctx context.Context, se *batchModel.StepExecution) (batchModel.ExitStatus, error) {
	ec := t.context()
	rows := RawRows(ec)
	se.ReadCount += len(rows)

	batch := t.normalizer.NormalizeBatch(rows)
	t.reject(ctx, "normalize", batch.Errors)

	started := time.Now()
	existing, err := t.store.Load(ctx)
	t.recorder.RecordDuration(ctx, "series_load", time.Since(started), map[string]string{"status": status(err)})
	if err != nil {
		return batchModel.ExitStatusFailed, err
	}

	merged, report := merge.Merge(existing, batch.Records)
	t.reject(ctx, "merge", report.Errors)
	t.recorder.RecordMergeOutcome(ctx, "inserted", report.Inserted)
	t.recorder.RecordMergeOutcome(ctx, "replaced", report.Replaced)
	t.recorder.RecordMergeOutcome(ctx, "unchanged", report.Unchanged)
	t.recorder.RecordMergeOutcome(ctx, "retained", report.Retained)
	logger.Infof("IngestTasklet: %d rows -> %d records (%d rejected); merge inserted=%d replaced=%d unchanged=%d retained=%d.",
		len(rows), len(batch.Records), len(batch.Errors), report.Inserted, report.Replaced, report.Unchanged, report.Retained)

	se.FilterCount += len(batch.Errors) + report.Rejected
	ec.Put(ECKeySeriesSize, len(merged))
	ec.Put(ECKeyInserted, report.Inserted)
	ec.Put(ECKeyReplaced, report.Replaced)

	changed := report.Inserted+report.Replaced > 0 || len(merged) != len(existing)
	exit := batchModel.ExitStatusNoOp
	if changed {
		started = time.Now()
		err = t.store.Save(ctx, merged)
		t.recorder.RecordDuration(ctx, "series_save", time.Since(started), map[string]string{"status": status(err)})
		if err != nil {
			return batchModel.ExitStatusFailed, err
		}
		se.WriteCount += report.Inserted + report.Replaced
		exit = batchModel.ExitStatusCompleted
	} else {
		logger.Infof("IngestTasklet: series unchanged, not rewriting it.")
	}

	if t.mirror.Enabled() {
		if _, err := t.mirror.Sync(ctx, merged); err != nil {
			return batchModel.ExitStatusFailed, err
		}
	}

	logger.Infof("IngestTasklet: %s", Summary(merged))
	return exit, nil
}

func (t *IngestTasklet) reject(ctx context.Context, stage string, errs []*model.RowError) {
	if len(errs) == 0 {
		return
	}
	byReason := make(map[string]int)
	for _, e := range errs {
		logger.Warnf("IngestTasklet: dropped %s", e)
		byReason[model.Reason(e)]++
	}
	for reason, n := range byReason {
		t.recorder.RecordRowsRejected(ctx, stage, reason, n)
	}
}

// Close is a no-op.
func (t *IngestTasklet) Close(ctx context.Context) error {
	return nil
}

// Summary describes the series by record count, business date range and per-venue counts.
func Summary(s model.Series) string {
	first, last, ok := s.Span()
	if !ok {
		return "series is empty"
	}
	perVenue := make(map[model.Venue]int)
	for _, r := range s {
		perVenue[r.Venue]++
	}
	venues := make([]string, 0, len(perVenue))
	for v, n := range perVenue {
		venues = append(venues, fmt.Sprintf("%s=%d", v, n))
	}
	sort.Strings(venues)
	return fmt.Sprintf("series holds %d records from %s to %s (%s)",
		len(s), first.Format("2006-01-02"), last.Format("2006-01-02"), strings.Join(venues, ", "))
}
