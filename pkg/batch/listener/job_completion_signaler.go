package listener

import (
	"context"
	"sync"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// JobCompletionSignaler is a JobExecutionListener that closes a channel
// when a job completes, signaling its completion to the process shell.
type JobCompletionSignaler struct {
	done chan struct{}
	once sync.Once
}

// NewJobCompletionSignaler creates a new instance of JobCompletionSignaler.
func NewJobCompletionSignaler() *JobCompletionSignaler {
	return &JobCompletionSignaler{done: make(chan struct{})}
}

// Done returns a channel that is closed after the first job completes.
func (l *JobCompletionSignaler) Done() <-chan struct{} {
	return l.done
}

// BeforeJob does nothing.
func (l *JobCompletionSignaler) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

// AfterJob closes the done channel. Later calls are ignored.
func (l *JobCompletionSignaler) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.once.Do(func() {
		logger.Debugf("JobCompletionSignaler: Job '%s' (ID: %s) completed.", jobExecution.JobName, jobExecution.ID)
		close(l.done)
	})
}

var _ port.JobExecutionListener = (*JobCompletionSignaler)(nil)
