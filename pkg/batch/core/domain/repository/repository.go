package repository

// JobRepository persists and manages batch execution metadata.
// It embeds the smaller repository interfaces to separate concerns.
type JobRepository interface {
	JobExecution
	StepExecution

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
