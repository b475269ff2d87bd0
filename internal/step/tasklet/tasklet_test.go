package tasklet_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tigerroll/foottraffic/internal/domain/aggregate"
	"github.com/tigerroll/foottraffic/internal/domain/model"
	"github.com/tigerroll/foottraffic/internal/domain/normalize"
	"github.com/tigerroll/foottraffic/internal/mail"
	"github.com/tigerroll/foottraffic/internal/sheet"
	"github.com/tigerroll/foottraffic/internal/step/tasklet"
	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	batchModel "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/job/runner"
	taskletStep "github.com/tigerroll/foottraffic/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/foottraffic/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/foottraffic/pkg/batch/infrastructure/repository/inmemory"
)

type fakeSource struct {
	atts    []mail.Attachment
	err     error
	windows []mail.Window
}

func (f *fakeSource) Fetch(ctx context.Context, w mail.Window) ([]mail.Attachment, error) {
	f.windows = append(f.windows, w)
	return f.atts, f.err
}

type memStore struct {
	s       model.Series
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (model.Series, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append(model.Series{}, m.s...), nil
}

func (m *memStore) Save(ctx context.Context, s model.Series) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.s = append(model.Series{}, s...)
	return nil
}

type captureExporter struct {
	buckets []aggregate.Bucket
	calls   int
}

func (c *captureExporter) Export(ctx context.Context, b []aggregate.Bucket) (int, error) {
	c.calls++
	c.buckets = b
	return len(b), nil
}

func melbourne(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Melbourne")
	require.NoError(t, err)
	return loc
}

// report builds a 24-hour workbook with the same figures in every row.
func report(t *testing.T, entering, inside int) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Yesterday"))

	rows := [][]interface{}{{"Date and time", "Mel Inside", "Mel Entering", "Syd Inside", "Syd Entering"}}
	for h := 0; h < 24; h++ {
		rows = append(rows, []interface{}{h, inside, entering, inside, entering})
	}
	rows = append(rows, []interface{}{"Total", 0, 0, 0, 0})
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Yesterday", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type pipeline struct {
	source   *fakeSource
	store    *memStore
	exporter *captureExporter
	recorder *metrics.PrometheusRecorder
	loc      *time.Location
}

func newPipeline(t *testing.T) *pipeline {
	return &pipeline{
		source:   &fakeSource{},
		store:    &memStore{},
		exporter: &captureExporter{},
		recorder: metrics.NewPrometheusRecorder("", "foottraffic"),
		loc:      melbourne(t),
	}
}

func (p *pipeline) run(t *testing.T, params batchModel.JobParameters) *batchModel.JobExecution {
	t.Helper()
	repo := inmemory.NewInMemoryJobRepository()
	steps := []port.Step{
		taskletStep.NewTaskletStep("extractStep", tasklet.NewExtractTasklet(p.source, sheet.NewParser(), p.loc, 30, p.recorder), repo, nil, nil),
		taskletStep.NewTaskletStep("ingestStep", tasklet.NewIngestTasklet(normalize.New(nil), p.store, nil, p.recorder), repo, nil, nil),
		taskletStep.NewTaskletStep("exportStep", tasklet.NewExportTasklet(p.store, p.exporter, p.recorder), repo, nil, nil),
	}
	job := runner.NewSimpleJob("footTrafficJob", steps, repo, nil, nil)
	je := batchModel.NewJobExecution(job.JobName(), params)
	runner.NewSimpleJobRunner(repo).Run(context.Background(), job, je)
	return je
}

func step(t *testing.T, je *batchModel.JobExecution, name string) *batchModel.StepExecution {
	t.Helper()
	for _, se := range je.StepExecutions {
		if se.StepName == name {
			return se
		}
	}
	t.Fatalf("step %s did not run", name)
	return nil
}

func TestJob_MondayEndToEnd(t *testing.T) {
	p := newPipeline(t)
	// Received Tuesday morning, so the data date is Monday 2024-03-04.
	p.source.atts = []mail.Attachment{{
		Name:       "Traffic By Hour - Mel Syd.xlsx",
		Content:    report(t, 100, 80),
		ReceivedAt: time.Date(2024, time.March, 5, 8, 0, 0, 0, p.loc),
		MessageID:  "m1",
	}}

	je := p.run(t, batchModel.NewJobParameters())
	require.Equal(t, batchModel.BatchStatusCompleted, je.Status, je.Failures)

	extract := step(t, je, "extractStep")
	assert.Equal(t, 1, extract.ReadCount)
	assert.Equal(t, 48, extract.WriteCount)

	ingest := step(t, je, "ingestStep")
	assert.Equal(t, batchModel.ExitStatusCompleted, ingest.ExitStatus)
	assert.Equal(t, 48, ingest.ReadCount)
	assert.Equal(t, 48, ingest.WriteCount)
	assert.Zero(t, ingest.FilterCount)

	require.Len(t, p.store.s, 48)
	assert.Equal(t, 1, p.store.saves)
	for _, r := range p.store.s {
		assert.InDelta(t, 95.0, r.Entering, 1e-9)
		assert.Equal(t, 80.0, r.Inside)
		assert.Equal(t, model.NewDate(2024, time.March, 4), r.Date)
		assert.Equal(t, r.Hour >= 12 && r.Hour <= 22, r.IsOpen, "hour %d", r.Hour)
	}

	require.Len(t, p.exporter.buckets, 48)
	for _, b := range p.exporter.buckets {
		assert.Equal(t, time.Monday, b.Weekday)
		assert.InDelta(t, 95.0, b.MeanEntering, 1e-9)
		assert.Equal(t, 1, b.Samples)
	}
	assert.Equal(t, 48, step(t, je, "exportStep").WriteCount)

	assert.Len(t, tasklet.RawRows(je.ExecutionContext), 48)
	inserted, _ := je.ExecutionContext.GetInt(tasklet.ECKeyInserted)
	assert.Equal(t, 48, inserted)

	expected := `
# HELP foottraffic_merge_records_total Records handled by the merge by outcome.
# TYPE foottraffic_merge_records_total counter
foottraffic_merge_records_total{outcome="inserted"} 48
foottraffic_merge_records_total{outcome="replaced"} 0
foottraffic_merge_records_total{outcome="retained"} 0
foottraffic_merge_records_total{outcome="unchanged"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(p.recorder.GetRegistry(), strings.NewReader(expected), "foottraffic_merge_records_total"))
}

func TestJob_ReingestionCorrectsAndRerunIsNoOp(t *testing.T) {
	p := newPipeline(t)
	received := time.Date(2024, time.March, 5, 8, 0, 0, 0, p.loc)
	p.source.atts = []mail.Attachment{{Name: "traffic.xlsx", Content: report(t, 100, 80), ReceivedAt: received, MessageID: "m1"}}
	require.Equal(t, batchModel.BatchStatusCompleted, p.run(t, batchModel.NewJobParameters()).Status)

	// Same report again: nothing changes, the series is not rewritten.
	je := p.run(t, batchModel.NewJobParameters())
	require.Equal(t, batchModel.BatchStatusCompleted, je.Status)
	assert.Equal(t, batchModel.ExitStatusNoOp, step(t, je, "ingestStep").ExitStatus)
	assert.Equal(t, 1, p.store.saves)

	// A corrected resend replaces every record of the day.
	p.source.atts = append(p.source.atts, mail.Attachment{Name: "traffic.xlsx", Content: report(t, 200, 80), ReceivedAt: received.Add(6 * time.Hour), MessageID: "m2"})
	je = p.run(t, batchModel.NewJobParameters())
	require.Equal(t, batchModel.BatchStatusCompleted, je.Status)
	assert.Equal(t, 2, p.store.saves)
	require.Len(t, p.store.s, 48)
	replaced, _ := je.ExecutionContext.GetInt(tasklet.ECKeyReplaced)
	assert.Equal(t, 48, replaced)
	for _, b := range p.exporter.buckets {
		assert.InDelta(t, 190.0, b.MeanEntering, 1e-9)
		assert.Equal(t, 1, b.Samples)
	}
}

func TestJob_UnreadableAttachmentIsSkipped(t *testing.T) {
	p := newPipeline(t)
	p.source.atts = []mail.Attachment{
		{Name: "broken.xlsx", Content: []byte("not a workbook"), ReceivedAt: time.Date(2024, time.March, 4, 8, 0, 0, 0, p.loc), MessageID: "m0"},
		{Name: "traffic.xlsx", Content: report(t, 10, 5), ReceivedAt: time.Date(2024, time.March, 5, 8, 0, 0, 0, p.loc), MessageID: "m1"},
	}

	je := p.run(t, batchModel.NewJobParameters())
	require.Equal(t, batchModel.BatchStatusCompleted, je.Status)
	extract := step(t, je, "extractStep")
	assert.Equal(t, 2, extract.ReadCount)
	assert.Equal(t, 1, extract.FilterCount)
	assert.Len(t, p.store.s, 48)
}

func TestJob_NoReportsStillExports(t *testing.T) {
	p := newPipeline(t)
	je := p.run(t, batchModel.NewJobParameters())

	require.Equal(t, batchModel.BatchStatusCompleted, je.Status)
	assert.Equal(t, batchModel.ExitStatusNoOp, step(t, je, "extractStep").ExitStatus)
	assert.Equal(t, batchModel.ExitStatusNoOp, step(t, je, "ingestStep").ExitStatus)
	assert.Zero(t, p.store.saves)
	assert.Equal(t, 1, p.exporter.calls)
	assert.Empty(t, p.exporter.buckets)
}

func TestJob_FetchFailureFailsJob(t *testing.T) {
	p := newPipeline(t)
	p.source.err = errors.New("oauth token expired")

	je := p.run(t, batchModel.NewJobParameters())
	assert.Equal(t, batchModel.BatchStatusFailed, je.Status)
	assert.Len(t, je.StepExecutions, 1)
	assert.Zero(t, p.store.saves)
	assert.Zero(t, p.exporter.calls)
}

func TestJob_StoreFailureLeavesNothingExported(t *testing.T) {
	p := newPipeline(t)
	p.source.atts = []mail.Attachment{{Name: "traffic.xlsx", Content: report(t, 10, 5), ReceivedAt: time.Date(2024, time.March, 5, 8, 0, 0, 0, p.loc)}}
	p.store.saveErr = errors.New("bucket is read-only")

	je := p.run(t, batchModel.NewJobParameters())
	assert.Equal(t, batchModel.BatchStatusFailed, je.Status)
	assert.Equal(t, batchModel.ExitStatusFailed, step(t, je, "ingestStep").ExitStatus)
	assert.Zero(t, p.exporter.calls)
}

func TestExtractTasklet_BackfillParameterSetsWindow(t *testing.T) {
	p := newPipeline(t)
	params := batchModel.NewJobParameters()
	params.Put(runner.ParamBackfillDays, 3)

	before := time.Now()
	p.run(t, params)
	require.Len(t, p.source.windows, 1)
	after := p.source.windows[0].After
	assert.WithinDuration(t, before.AddDate(0, 0, -3), after, time.Minute)

	p.run(t, batchModel.NewJobParameters())
	assert.WithinDuration(t, before.AddDate(0, 0, -30), p.source.windows[1].After, time.Minute)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "series is empty", tasklet.Summary(nil))

	day := model.NewDate(2024, time.March, 4)
	s := model.Series{
		{DateTime: day.Add(12 * time.Hour), Date: day, Hour: 12, Venue: model.VenueMelbourne},
		{DateTime: day.Add(13 * time.Hour), Date: day, Hour: 13, Venue: model.VenueMelbourne},
		{DateTime: day.Add(37 * time.Hour), Date: day.AddDate(0, 0, 1), Hour: 13, Venue: model.VenueSydney},
	}
	assert.Equal(t, "series holds 3 records from 2024-03-04 to 2024-03-05 (Melbourne=2, Sydney=1)", tasklet.Summary(s))
}
