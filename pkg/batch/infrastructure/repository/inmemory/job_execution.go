package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/core/domain/repository"
)

// SaveJobExecution persists a new JobExecution.
// It returns an error if a JobExecution with the same ID already exists.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// UpdateJobExecution updates an existing JobExecution.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return fmt.Errorf("JobExecution with ID %s not found for update: %w", jobExecution.ID, repository.ErrJobExecutionNotFound)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// FindJobExecutionByID finds a JobExecution by its ID.
// The returned value is a copy with its StepExecutions attached in start order.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobExecution, ok := r.jobExecutions[id]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.cloneWithSteps(jobExecution), nil
}

// FindLatestJobExecution returns the most recently created JobExecution of jobName.
func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobName != jobName {
			continue
		}
		if latest == nil || je.CreateTime.After(latest.CreateTime) {
			latest = je
		}
	}
	if latest == nil {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.cloneWithSteps(latest), nil
}

// cloneWithSteps must be called with r.mu held.
func (r *InMemoryJobRepository) cloneWithSteps(je *model.JobExecution) *model.JobExecution {
	cloned := *je
	cloned.StepExecutions = make([]*model.StepExecution, 0)
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == cloned.ID {
			cloned.StepExecutions = append(cloned.StepExecutions, se)
		}
	}
	sort.Slice(cloned.StepExecutions, func(i, j int) bool {
		return cloned.StepExecutions[i].StartTime.Before(cloned.StepExecutions[j].StartTime)
	})
	return &cloned
}
