package runner

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
)

// Module provides the JobRunner implementation.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewSimpleJobRunner,
		fx.As(new(port.JobRunner)),
	)),
)
