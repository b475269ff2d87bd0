package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
)

// Module contributes the logging listeners to the job and step listener groups.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"jobListeners"`),
	)),
	fx.Provide(fx.Annotate(
		NewLoggingStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"stepListeners"`),
	)),
)
