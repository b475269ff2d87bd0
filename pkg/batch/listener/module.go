package listener

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	"github.com/tigerroll/foottraffic/pkg/batch/listener/logging"
	"github.com/tigerroll/foottraffic/pkg/batch/listener/metrics"
)

// Module aggregates all listener modules of the batch framework.
// The JobCompletionSignaler is both provided directly and contributed to the job listener group.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	fx.Provide(NewJobCompletionSignaler),
	fx.Provide(fx.Annotate(
		func(s *JobCompletionSignaler) port.JobExecutionListener { return s },
		fx.ResultTags(`group:"jobListeners"`),
	)),
)
