// Package inmemory provides an in-memory implementation of the JobRepository interface.
// It keeps execution metadata for the lifetime of the process only; the foot-traffic job
// runs once per invocation, so nothing needs to outlive it.
package inmemory

import (
	"sync"

	"github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
)

// InMemoryJobRepository is an in-memory implementation of the JobRepository interface.
type InMemoryJobRepository struct {
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
	mu             sync.RWMutex
}

// NewInMemoryJobRepository creates and initializes a new instance of InMemoryJobRepository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
	}
}

// Close always returns nil.
func (r *InMemoryJobRepository) Close() error {
	return nil
}
