package sql

import (
	"github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/serialization"
)

func fromDomainJobExecution(je *model.JobExecution) (*JobExecutionEntity, error) {
	failures, err := serialization.MarshalFailures(je.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(je.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &JobExecutionEntity{
		ID:               je.ID,
		JobName:          je.JobName,
		Parameters:       je.Parameters.String(), // masked
		StartTime:        je.StartTime,
		EndTime:          je.EndTime,
		Status:           string(je.Status),
		ExitStatus:       string(je.ExitStatus),
		Failures:         string(failures),
		ExecutionContext: string(ec),
		CurrentStepName:  je.CurrentStepName,
		CreateTime:       je.CreateTime,
		LastUpdated:      je.LastUpdated,
	}, nil
}

func toDomainJobExecution(entity *JobExecutionEntity) (*model.JobExecution, error) {
	params, err := serialization.UnmarshalJobParameters([]byte(entity.Parameters))
	if err != nil {
		return nil, err
	}
	failures, err := serialization.UnmarshalFailures([]byte(entity.Failures))
	if err != nil {
		return nil, err
	}
	ec, err := serialization.UnmarshalExecutionContext([]byte(entity.ExecutionContext))
	if err != nil {
		return nil, err
	}
	return &model.JobExecution{
		ID:               entity.ID,
		JobName:          entity.JobName,
		Parameters:       model.JobParameters{Params: params},
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           model.JobStatus(entity.Status),
		ExitStatus:       model.ExitStatus(entity.ExitStatus),
		Failures:         failures,
		CreateTime:       entity.CreateTime,
		LastUpdated:      entity.LastUpdated,
		StepExecutions:   make([]*model.StepExecution, 0),
		ExecutionContext: ec,
		CurrentStepName:  entity.CurrentStepName,
	}, nil
}

func fromDomainStepExecution(se *model.StepExecution) (*StepExecutionEntity, error) {
	failures, err := serialization.MarshalFailures(se.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(se.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &StepExecutionEntity{
		ID:               se.ID,
		JobExecutionID:   se.JobExecutionID,
		StepName:         se.StepName,
		StartTime:        se.StartTime,
		EndTime:          se.EndTime,
		Status:           string(se.Status),
		ExitStatus:       string(se.ExitStatus),
		Failures:         string(failures),
		ReadCount:        se.ReadCount,
		WriteCount:       se.WriteCount,
		FilterCount:      se.FilterCount,
		ExecutionContext: string(ec),
		LastUpdated:      se.LastUpdated,
	}, nil
}

// toDomainStepExecution leaves JobExecution unset; the caller attaches it.
func toDomainStepExecution(entity *StepExecutionEntity) (*model.StepExecution, error) {
	failures, err := serialization.UnmarshalFailures([]byte(entity.Failures))
	if err != nil {
		return nil, err
	}
	ec, err := serialization.UnmarshalExecutionContext([]byte(entity.ExecutionContext))
	if err != nil {
		return nil, err
	}
	return &model.StepExecution{
		ID:               entity.ID,
		StepName:         entity.StepName,
		JobExecutionID:   entity.JobExecutionID,
		StartTime:        entity.StartTime,
		EndTime:          entity.EndTime,
		Status:           model.JobStatus(entity.Status),
		ExitStatus:       model.ExitStatus(entity.ExitStatus),
		Failures:         failures,
		ReadCount:        entity.ReadCount,
		WriteCount:       entity.WriteCount,
		FilterCount:      entity.FilterCount,
		ExecutionContext: ec,
		LastUpdated:      entity.LastUpdated,
	}, nil
}
