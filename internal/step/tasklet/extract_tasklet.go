package tasklet

import (
	"context"
	"time"

	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/mail"
	"github.com/tigerroll/foottraffic/internal/sheet"
	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/job/runner"
	"github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// ExecutionContext keys shared by the steps of the job.
const (
	ECKeyRawRows     = "foottraffic.raw_rows"
	ECKeyAttachments = "foottraffic.attachments"
	ECKeySeriesSize  = "foottraffic.series_records"
	ECKeyInserted    = "foottraffic.inserted"
	ECKeyReplaced    = "foottraffic.replaced"
	ECKeyBuckets     = "foottraffic.buckets"
	ECKeyWindowAfter = "foottraffic.window_after"
	ECKeyUnreadable  = "foottraffic.unreadable_attachments"
)

// ecHolder implements the ExecutionContext half of port.Tasklet.
type ecHolder struct {
	ec batchModel.ExecutionContext
}

func (h *ecHolder) SetExecutionContext(ctx context.Context, ec batchModel.ExecutionContext) error {
	h.ec = ec
	return nil
}

func (h *ecHolder) GetExecutionContext(ctx context.Context) (batchModel.ExecutionContext, error) {
	if h.ec == nil {
		h.ec = batchModel.NewExecutionContext()
	}
	return h.ec, nil
}

func (h *ecHolder) context() batchModel.ExecutionContext {
	if h.ec == nil {
		h.ec = batchModel.NewExecutionContext()
	}
	return h.ec
}

// ExtractTasklet fetches the report attachments in the backfill window and parses them into raw rows.
// The rows are handed to the next step through the ExecutionContext.
type ExtractTasklet struct {
	ecHolder
	source       mail.Source
	parser       *sheet.Parser
	loc          *time.Location
	backfillDays int
	recorder     metrics.MetricRecorder
	now          func() time.Time
}

var _ port.Tasklet = (*ExtractTasklet)(nil)

// NewExtractTasklet creates an ExtractTasklet. backfillDays applies when the job has no backfill_days parameter.
func NewExtractTasklet(source mail.Source, parser *sheet.Parser, loc *time.Location, backfillDays int, recorder metrics.MetricRecorder) *ExtractTasklet {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &ExtractTasklet{
		source:       source,
		parser:       parser,
		loc:          loc,
		backfillDays: backfillDays,
		recorder:     recorder,
		now:          time.Now,
	}
}

func (t *ExtractTasklet) window(se *batchModel.StepExecution) mail.Window {
	days := t.backfillDays
	if se.JobExecution != nil {
		if d, ok := se.JobExecution.Parameters.GetInt(runner.ParamBackfillDays); ok && d > 0 {
			days = d
		}
	}
	return mail.NewWindow(t.now(), days)
}

// Execute implements port.Tasklet.
func (t *ExtractTasklet) Execute(ctx context.Context, se *batchModel.StepExecution) (batchModel.ExitStatus, error) {
	w := t.window(se)
	logger.Infof("ExtractTasklet: fetching reports received after %s.", w.After.Format(time.RFC3339))

	started := time.Now()
	atts, err := t.source.Fetch(ctx, w)
	t.recorder.RecordDuration(ctx, "report_fetch", time.Since(started), map[string]string{"status": status(err)})
	if err != nil {
		if exception.IsBatchError(err) {
			return batchModel.ExitStatusFailed, err
		}
		return batchModel.ExitStatusFailed, exception.NewBatchError("mail", "failed to fetch report attachments", err, false, false)
	}

	selected := mail.SelectLatest(atts, t.loc)
	logger.Infof("ExtractTasklet: %d attachments found, %d selected (one per data date).", len(atts), len(selected))

	var rows []model.RawRow
	unreadable := 0
	for _, a := range selected {
		dataDate := mail.DataDate(a.ReceivedAt, t.loc)
		parsed, err := t.parser.Parse(a.Content, dataDate, a.Name)
		if err != nil {
			unreadable++
			logger.Warnf("ExtractTasklet: skipping attachment '%s' (message %s): %v", a.Name, a.MessageID, err)
			t.recorder.RecordRowsRejected(ctx, "parse", "unreadable_attachment", 1)
			continue
		}
		logger.Infof("ExtractTasklet: '%s' -> %d rows for %s.", a.Name, len(parsed), dataDate.Format("2006-01-02"))
		t.recorder.RecordRowsExtracted(ctx, a.Name, len(parsed))
		rows = append(rows, parsed...)
	}

	se.ReadCount += len(selected)
	se.WriteCount += len(rows)
	se.FilterCount += unreadable

	ec := t.context()
	ec.Put(ECKeyRawRows, rows)
	ec.Put(ECKeyAttachments, len(selected))
	ec.Put(ECKeyUnreadable, unreadable)
	ec.Put(ECKeyWindowAfter, w.After.Format(time.RFC3339))

	if len(rows) == 0 {
		logger.Warnf("ExtractTasklet: no rows extracted.")
		return batchModel.ExitStatusNoOp, nil
	}
	return batchModel.ExitStatusCompleted, nil
}

// Close is a no-op.
func (t *ExtractTasklet) Close(ctx context.Context) error {
	return nil
}

// RawRows returns the rows stored by ExtractTasklet, or nil.
func RawRows(ec batchModel.ExecutionContext) []model.RawRow {
	v, ok := ec.Get(ECKeyRawRows)
	if !ok {
		return nil
	}
	rows, _ := v.([]model.RawRow)
	return rows
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
