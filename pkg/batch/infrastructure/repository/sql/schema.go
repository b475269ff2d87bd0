package sql

import (
	"embed"
	"io/fs"
	"time"
)

const (
	jobExecutionTable  = "batch_job_execution"
	stepExecutionTable = "batch_step_execution"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrations holds the job repository schema, one directory per database type.
var Migrations fs.FS = mustSub(migrationFiles, "migrations")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// JobExecutionEntity is the persisted form of a JobExecution.
type JobExecutionEntity struct {
	ID               string     `gorm:"column:id;primaryKey"`
	JobName          string     `gorm:"column:job_name"`
	Parameters       string     `gorm:"column:parameters"`
	StartTime        time.Time  `gorm:"column:start_time"`
	EndTime          *time.Time `gorm:"column:end_time"`
	Status           string     `gorm:"column:status"`
	ExitStatus       string     `gorm:"column:exit_status"`
	Failures         string     `gorm:"column:failures"`
	ExecutionContext string     `gorm:"column:execution_context"`
	CurrentStepName  string     `gorm:"column:current_step_name"`
	CreateTime       time.Time  `gorm:"column:create_time"`
	LastUpdated      time.Time  `gorm:"column:last_updated"`
}

func (JobExecutionEntity) TableName() string {
	return jobExecutionTable
}

// StepExecutionEntity is the persisted form of a StepExecution.
type StepExecutionEntity struct {
	ID               string     `gorm:"column:id;primaryKey"`
	JobExecutionID   string     `gorm:"column:job_execution_id"`
	StepName         string     `gorm:"column:step_name"`
	StartTime        time.Time  `gorm:"column:start_time"`
	EndTime          *time.Time `gorm:"column:end_time"`
	Status           string     `gorm:"column:status"`
	ExitStatus       string     `gorm:"column:exit_status"`
	Failures         string     `gorm:"column:failures"`
	ReadCount        int        `gorm:"column:read_count"`
	WriteCount       int        `gorm:"column:write_count"`
	FilterCount      int        `gorm:"column:filter_count"`
	ExecutionContext string     `gorm:"column:execution_context"`
	LastUpdated      time.Time  `gorm:"column:last_updated"`
}

func (StepExecutionEntity) TableName() string {
	return stepExecutionTable
}

var (
	jobExecutionUpdateColumns = []string{
		"end_time", "status", "exit_status", "failures", "execution_context", "current_step_name", "last_updated",
	}
	stepExecutionUpdateColumns = []string{
		"start_time", "end_time", "status", "exit_status", "failures",
		"read_count", "write_count", "filter_count", "execution_context", "last_updated",
	}
)
