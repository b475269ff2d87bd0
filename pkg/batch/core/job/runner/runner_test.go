package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/job/runner"
	"github.com/tigerroll/foottraffic/pkg/batch/infrastructure/repository/inmemory"
)

// scriptedStep writes its name into the ExecutionContext and optionally fails.
type scriptedStep struct {
	name string
	err  error
	seen []string
	ran  bool
}

func (s *scriptedStep) ID() string       { return s.name }
func (s *scriptedStep) StepName() string { return s.name }

func (s *scriptedStep) Execute(ctx context.Context, je *model.JobExecution, se *model.StepExecution) error {
	s.ran = true
	for k := range se.ExecutionContext {
		s.seen = append(s.seen, k)
	}
	se.MarkAsStarted()
	if s.err != nil {
		se.MarkAsFailed(s.err)
		return s.err
	}
	se.ExecutionContext.Put(s.name, true)
	se.MarkAsCompleted(model.ExitStatusCompleted)
	return nil
}

type countingListener struct {
	before, after int
	lastStatus    model.JobStatus
}

func (l *countingListener) BeforeJob(ctx context.Context, je *model.JobExecution) { l.before++ }
func (l *countingListener) AfterJob(ctx context.Context, je *model.JobExecution) {
	l.after++
	l.lastStatus = je.Status
}

func TestSimpleJob_RunsStepsInOrderAndPromotesContext(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	extract := &scriptedStep{name: "extractStep"}
	ingest := &scriptedStep{name: "ingestStep"}
	listener := &countingListener{}
	job := runner.NewSimpleJob("footTrafficJob", []port.Step{extract, ingest}, repo, []port.JobExecutionListener{listener}, nil)

	params := model.NewJobParameters()
	params.Put(runner.ParamBackfillDays, 30)
	je := model.NewJobExecution(job.JobName(), params)
	runner.NewSimpleJobRunner(repo).Run(context.Background(), job, je)

	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
	assert.Equal(t, []string{"extractStep"}, ingest.seen)
	require.Len(t, je.StepExecutions, 2)
	assert.Equal(t, 1, listener.before)
	assert.Equal(t, 1, listener.after)
	assert.Equal(t, model.BatchStatusCompleted, listener.lastStatus)

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
}

func TestSimpleJob_StepFailureStopsJob(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	boom := errors.New("mail service unavailable")
	extract := &scriptedStep{name: "extractStep", err: boom}
	ingest := &scriptedStep{name: "ingestStep"}
	job := runner.NewSimpleJob("footTrafficJob", []port.Step{extract, ingest}, repo, nil, nil)

	je := model.NewJobExecution(job.JobName(), model.NewJobParameters())
	runner.NewSimpleJobRunner(repo).Run(context.Background(), job, je)

	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitStatusFailed, je.ExitStatus)
	assert.Contains(t, je.Failures, "mail service unavailable")
	assert.False(t, ingest.ran)
	assert.NotNil(t, je.EndTime)
}

func TestSimpleJob_CancelledContextStopsJob(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	extract := &scriptedStep{name: "extractStep"}
	job := runner.NewSimpleJob("footTrafficJob", []port.Step{extract}, repo, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	je := model.NewJobExecution(job.JobName(), model.NewJobParameters())
	runner.NewSimpleJobRunner(repo).Run(ctx, job, je)

	assert.Equal(t, model.BatchStatusStopped, je.Status)
	assert.False(t, extract.ran)
}

func TestSimpleJob_ValidateParameters(t *testing.T) {
	job := runner.NewSimpleJob("footTrafficJob", nil, inmemory.NewInMemoryJobRepository(), nil, nil)

	params := model.NewJobParameters()
	assert.NoError(t, job.ValidateParameters(params))

	params.Put(runner.ParamBackfillDays, 0)
	assert.Error(t, job.ValidateParameters(params))

	params.Put(runner.ParamBackfillDays, "thirty")
	assert.Error(t, job.ValidateParameters(params))

	params.Put(runner.ParamBackfillDays, 7)
	assert.NoError(t, job.ValidateParameters(params))
}
