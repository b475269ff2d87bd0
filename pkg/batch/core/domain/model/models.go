package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// JobStatus represents the state of a job or step execution.
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusStopping  JobStatus = "STOPPING"
	BatchStatusStopped   JobStatus = "STOPPED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished checks if the JobStatus represents a finished state.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ToExitStatus converts the JobStatus to its corresponding ExitStatus.
func (s JobStatus) ToExitStatus() ExitStatus {
	switch s {
	case BatchStatusCompleted:
		return ExitStatusCompleted
	case BatchStatusFailed:
		return ExitStatusFailed
	case BatchStatusStopped:
		return ExitStatusStopped
	case BatchStatusAbandoned:
		return ExitStatusAbandoned
	default:
		return ExitStatusUnknown
	}
}

// ExitStatus represents the detailed status upon job/step completion.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusAbandoned ExitStatus = "ABANDONED"
	// ExitStatusNoOp marks a step that completed without anything to do (e.g. no new reports).
	ExitStatusNoOp ExitStatus = "NO_OP"
)

// String returns the ExitStatus as a string.
func (s ExitStatus) String() string {
	return string(s)
}

// ExecutionContext is a key-value store shared between the steps of one job execution.
type ExecutionContext map[string]interface{}

// NewExecutionContext creates a new empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put sets a value in the ExecutionContext.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get retrieves the value for the specified key.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	val, ok := ec[key]
	return val, ok
}

// GetString retrieves the value for the specified key as a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	val, ok := ec[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves the value for the specified key as an int.
// Numbers decoded from JSON arrive as float64 and are truncated.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	val, ok := ec[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Copy creates a shallow copy of the ExecutionContext.
func (ec ExecutionContext) Copy() ExecutionContext {
	newEC := make(ExecutionContext, len(ec))
	for k, v := range ec {
		newEC[k] = v
	}
	return newEC
}

// Remove removes the specified key from the ExecutionContext.
func (ec ExecutionContext) Remove(key string) {
	delete(ec, key)
}

// JobParameters holds the parameters a job was launched with (e.g. backfill_days).
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters creates a new instance of JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put sets a parameter.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// GetString retrieves the value for the specified key as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	val, ok := jp.Params[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// GetInt retrieves the value for the specified key as an int.
func (jp JobParameters) GetInt(key string) (int, bool) {
	val, ok := jp.Params[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// maskedParameterKeys are parameter name fragments whose values never reach the logs.
var maskedParameterKeys = []string{"password", "secret", "token", "credentials"}

// String renders the parameters as JSON with sensitive values masked and keys sorted.
func (jp JobParameters) String() string {
	keys := make([]string, 0, len(jp.Params))
	for k := range jp.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	masked := make(map[string]interface{}, len(jp.Params))
	for _, k := range keys {
		masked[k] = jp.Params[k]
		lower := strings.ToLower(k)
		for _, m := range maskedParameterKeys {
			if strings.Contains(lower, m) {
				masked[k] = "********"
				break
			}
		}
	}
	data, err := json.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("{[ERROR: Failed to marshal parameters: %v]}", err)
	}
	return string(data)
}

// FailureList holds a list of error messages.
type FailureList []string

// JobExecution is a single run of a job.
type JobExecution struct {
	ID               string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	CreateTime       time.Time
	LastUpdated      time.Time
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
	CurrentStepName  string
}

// StepExecution is a single run of one step inside a JobExecution.
type StepExecution struct {
	ID             string
	StepName       string
	JobExecution   *JobExecution
	JobExecutionID string
	StartTime      time.Time
	EndTime        *time.Time
	Status         JobStatus
	ExitStatus     ExitStatus
	Failures       FailureList
	// ReadCount counts input units consumed (attachments, raw rows, persisted records).
	ReadCount int
	// WriteCount counts output units produced (records stored, buckets exported).
	WriteCount int
	// FilterCount counts input units rejected at row level.
	FilterCount      int
	ExecutionContext ExecutionContext
	LastUpdated      time.Time
}

// Duration returns how long the step ran, or zero while it is still running.
func (se *StepExecution) Duration() time.Duration {
	if se.EndTime == nil {
		return 0
	}
	return se.EndTime.Sub(se.StartTime)
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewJobExecution creates a new JobExecution in the STARTING state.
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               NewID(),
		JobName:          jobName,
		Parameters:       params,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		Failures:         make(FailureList, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

func isValidJobTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusStopping || next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusAbandoned
	case BatchStatusStopping:
		return next == BatchStatusStopped || next == BatchStatusFailed || next == BatchStatusAbandoned
	default:
		return false
	}
}

// TransitionTo changes the status if the transition is legal.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidJobTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): Invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	return nil
}

func (je *JobExecution) forceStatus(status JobStatus) {
	if err := je.TransitionTo(status); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to %s: %v", je.ID, status, err)
		je.Status = status
	}
}

func (je *JobExecution) finish(exit ExitStatus) {
	je.ExitStatus = exit
	now := time.Now()
	je.EndTime = &now
	je.LastUpdated = now
}

// MarkAsStarted updates the JobExecution status to STARTED.
func (je *JobExecution) MarkAsStarted() {
	je.forceStatus(BatchStatusStarted)
	je.LastUpdated = time.Now()
}

// MarkAsCompleted updates the JobExecution status to COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	je.forceStatus(BatchStatusCompleted)
	je.finish(ExitStatusCompleted)
}

// MarkAsFailed updates the JobExecution status to FAILED and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	je.forceStatus(BatchStatusFailed)
	je.finish(ExitStatusFailed)
	je.AddFailureException(err)
}

// MarkAsStopped updates the JobExecution status to STOPPED.
func (je *JobExecution) MarkAsStopped() {
	if je.Status == BatchStatusStarted {
		je.forceStatus(BatchStatusStopping)
	}
	je.forceStatus(BatchStatusStopped)
	je.finish(ExitStatusStopped)
}

// AddFailureException records err once.
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	je.Failures = appendUnique(je.Failures, exception.ExtractErrorMessage(err))
	je.LastUpdated = time.Now()
}

// AddStepExecution adds a StepExecution to JobExecution.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// NewStepExecution creates a StepExecution attached to jobExecution.
func NewStepExecution(jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	return &StepExecution{
		ID:               NewID(),
		StepName:         stepName,
		JobExecutionID:   jobExecution.ID,
		JobExecution:     jobExecution,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make(FailureList, 0),
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      now,
	}
}

func isValidStepTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	default:
		return false
	}
}

// TransitionTo changes the status if the transition is legal.
func (se *StepExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidStepTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): Invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	return nil
}

func (se *StepExecution) forceStatus(status JobStatus) {
	if err := se.TransitionTo(status); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to %s: %v", se.ID, status, err)
		se.Status = status
	}
}

func (se *StepExecution) finish(exit ExitStatus) {
	se.ExitStatus = exit
	now := time.Now()
	se.EndTime = &now
	se.LastUpdated = now
}

// MarkAsStarted updates the StepExecution status to STARTED.
func (se *StepExecution) MarkAsStarted() {
	se.forceStatus(BatchStatusStarted)
	se.StartTime = time.Now()
	se.LastUpdated = se.StartTime
}

// MarkAsCompleted updates the StepExecution status to COMPLETED with the given exit status.
// An empty exit status means ExitStatusCompleted.
func (se *StepExecution) MarkAsCompleted(exit ExitStatus) {
	if exit == "" {
		exit = ExitStatusCompleted
	}
	se.forceStatus(BatchStatusCompleted)
	se.finish(exit)
}

// MarkAsFailed updates the StepExecution status to FAILED and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	se.forceStatus(BatchStatusFailed)
	se.finish(ExitStatusFailed)
	se.AddFailureException(err)
}

// MarkAsStopped updates the StepExecution status to STOPPED.
func (se *StepExecution) MarkAsStopped() {
	se.forceStatus(BatchStatusStopped)
	se.finish(ExitStatusStopped)
}

// AddFailureException records err once.
func (se *StepExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	se.Failures = appendUnique(se.Failures, exception.ExtractErrorMessage(err))
	se.LastUpdated = time.Now()
}

func appendUnique(list FailureList, msg string) FailureList {
	for _, existing := range list {
		if existing == msg {
			return list
		}
	}
	return append(list, msg)
}
