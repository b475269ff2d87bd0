package runner

import (
	"context"
	"time"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/foottraffic/pkg/batch/core/domain/repository"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// SimpleJobRunner is an implementation of port.JobRunner that persists the JobExecution
// around a call to the Job's Run method.
type SimpleJobRunner struct {
	jobRepository repository.JobRepository
}

// NewSimpleJobRunner creates an instance of SimpleJobRunner.
func NewSimpleJobRunner(repo repository.JobRepository) *SimpleJobRunner {
	return &SimpleJobRunner{jobRepository: repo}
}

// Run executes job. It blocks until the job finishes.
func (r *SimpleJobRunner) Run(ctx context.Context, job port.Job, jobExecution *model.JobExecution) {
	if err := r.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobRunner: Failed to save JobExecution (ID: %s): %v", jobExecution.ID, err)
		jobExecution.MarkAsFailed(err)
		return
	}

	if jobExecution.Status == model.BatchStatusStarting {
		jobExecution.MarkAsStarted()
		if err := r.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
			logger.Errorf("JobRunner: Failed to update JobExecution (ID: %s) status to STARTED: %v", jobExecution.ID, err)
		}
	}

	err := job.Run(ctx, jobExecution, jobExecution.Parameters)

	if err != nil {
		if jobExecution.Status.IsFinished() {
			logger.Debugf("JobRunner: Job execution finished with error, status already set to %s.", jobExecution.Status)
		} else {
			jobExecution.MarkAsFailed(err)
		}
	} else if !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsCompleted()
	}

	// Metadata persistence errors are not job failures.
	if updateErr := r.jobRepository.UpdateJobExecution(ctx, jobExecution); updateErr != nil {
		logger.Errorf("JobRunner: Failed to update final JobExecution (ID: %s) state: %v", jobExecution.ID, updateErr)
	}

	if jobExecution.EndTime == nil {
		now := time.Now()
		jobExecution.EndTime = &now
	}
}

var _ port.JobRunner = (*SimpleJobRunner)(nil)
