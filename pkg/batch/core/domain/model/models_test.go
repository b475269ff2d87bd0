package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
)

func TestJobExecutionTransitions(t *testing.T) {
	je := model.NewJobExecution("footTrafficJob", model.NewJobParameters())
	assert.Equal(t, model.BatchStatusStarting, je.Status)
	assert.NotEmpty(t, je.ID)

	je.MarkAsStarted()
	assert.Equal(t, model.BatchStatusStarted, je.Status)

	je.MarkAsCompleted()
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitStatusCompleted, je.ExitStatus)
	require.NotNil(t, je.EndTime)

	assert.Error(t, je.TransitionTo(model.BatchStatusStarted), "finished executions cannot restart")
}

func TestJobExecutionFailureDeduplicatesMessages(t *testing.T) {
	je := model.NewJobExecution("footTrafficJob", model.NewJobParameters())
	je.MarkAsStarted()

	storeErr := exception.NewBatchError("store", "failed to save series", errors.New("disk full"), false, false)
	je.MarkAsFailed(storeErr)
	je.AddFailureException(storeErr)
	je.AddFailureException(nil)

	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.FailureList{"failed to save series"}, je.Failures)
	assert.True(t, je.Status.IsFinished())
	assert.Equal(t, model.ExitStatusFailed, je.Status.ToExitStatus())
}

func TestJobExecutionStopFromStarted(t *testing.T) {
	je := model.NewJobExecution("footTrafficJob", model.NewJobParameters())
	je.MarkAsStarted()
	je.MarkAsStopped()
	assert.Equal(t, model.BatchStatusStopped, je.Status)
	assert.Equal(t, model.ExitStatusStopped, je.ExitStatus)
}

func TestStepExecution(t *testing.T) {
	je := model.NewJobExecution("footTrafficJob", model.NewJobParameters())
	se := model.NewStepExecution(je, "ingestStep")
	assert.Equal(t, je.ID, se.JobExecutionID)
	assert.Zero(t, se.Duration())

	se.MarkAsStarted()
	se.MarkAsCompleted("")
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)
	assert.GreaterOrEqual(t, int64(se.Duration()), int64(0))

	noop := model.NewStepExecution(je, "extractStep")
	noop.MarkAsStarted()
	noop.MarkAsCompleted(model.ExitStatusNoOp)
	assert.Equal(t, model.ExitStatusNoOp, noop.ExitStatus)
}

func TestExecutionContext(t *testing.T) {
	ec := model.NewExecutionContext()
	ec.Put("attachments", 2)
	ec.Put("source", "Traffic By Hour - Mel Syd.xlsx")
	ec.Put("decoded", float64(7))

	n, ok := ec.GetInt("attachments")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	n, ok = ec.GetInt("decoded")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = ec.GetInt("source")
	assert.False(t, ok)

	s, ok := ec.GetString("source")
	assert.True(t, ok)
	assert.Equal(t, "Traffic By Hour - Mel Syd.xlsx", s)

	cp := ec.Copy()
	cp.Remove("source")
	_, ok = ec.GetString("source")
	assert.True(t, ok, "copy is independent of the original")
}

func TestJobParametersStringMasksSecrets(t *testing.T) {
	params := model.NewJobParameters()
	params.Put("backfill_days", 30)
	params.Put("oauth_token", "ya29.secret")

	out := params.String()
	assert.Contains(t, out, `"backfill_days":30`)
	assert.Contains(t, out, `"oauth_token":"********"`)
	assert.NotContains(t, out, "ya29")

	days, ok := params.GetInt("backfill_days")
	assert.True(t, ok)
	assert.Equal(t, 30, days)
}
