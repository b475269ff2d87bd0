// Package app wires the foot-traffic batch application with uber-fx and runs its job once.
package app

import (
	"context"
	"sync"

	"go.uber.org/fx"

	port "github.com/tigerroll/foottraffic/pkg/batch/core/application/port"
	config "github.com/tigerroll/foottraffic/pkg/batch/core/config"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	jobRunner "github.com/tigerroll/foottraffic/pkg/batch/core/job/runner"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// Launcher runs the job and keeps the last JobExecution.
type Launcher struct {
	runner port.JobRunner
	job    port.Job

	mu   sync.Mutex
	last *model.JobExecution
}

// NewLauncher creates a Launcher.
func NewLauncher(runner port.JobRunner, job port.Job) *Launcher {
	return &Launcher{runner: runner, job: job}
}

// Launch runs the job to completion. backfillDays of zero leaves the configured default in place.
func (l *Launcher) Launch(ctx context.Context, backfillDays int) *model.JobExecution {
	params := model.NewJobParameters()
	if backfillDays != 0 {
		params.Put(jobRunner.ParamBackfillDays, backfillDays)
	}
	je := model.NewJobExecution(l.job.JobName(), params)
	logger.Infof("Starting job '%s' (Execution ID: %s).", je.JobName, je.ID)

	l.runner.Run(ctx, l.job, je)

	l.mu.Lock()
	l.last = je
	l.mu.Unlock()
	return je
}

// LastExecution returns the execution of the last Launch, or nil.
func (l *Launcher) LastExecution() *model.JobExecution {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Options builds the fx options of the application for an already loaded configuration.
func Options(appCtx context.Context, cfg *config.Config, backfillDays int, dbProviderOptions []fx.Option) fx.Option {
	return fx.Options(
		fx.Supply(
			cfg,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
			fx.Annotate(backfillDays, fx.ResultTags(`name:"backfillDays"`)),
		),
		fx.Options(dbProviderOptions...),
		Module,
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",                    // lc fx.Lifecycle
			"",                    // shutdowner fx.Shutdowner
			"",                    // launcher *Launcher
			`name:"appCtx"`,       // appCtx context.Context
			`name:"backfillDays"`, // backfillDays int
		))),
	)
}

// RunApplication loads the configuration, runs the job once and stops the application.
// It returns the finished JobExecution.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, backfillDays int, dbProviderOptions []fx.Option) (*model.JobExecution, error) {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Foottraffic.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Foottraffic.System.Logging.Level)

	var launcher *Launcher
	app := fx.New(
		Options(appCtx, cfg, backfillDays, dbProviderOptions),
		fx.Populate(&launcher),
	)
	if err := app.Err(); err != nil {
		return nil, exception.NewBatchError("app", "failed to build application", err, false, false)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return nil, exception.NewBatchError("app", "failed to start application", err, false, false)
	}

	sig := <-app.Wait()
	logger.Debugf("Application shutdown requested (exit code %d).", sig.ExitCode)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Failed to stop application cleanly: %v", err)
	}

	je := launcher.LastExecution()
	if je == nil {
		return nil, exception.NewBatchErrorf("app", "job did not run")
	}
	return je, nil
}

// startJobExecution is invoked by Fx to run the job once the application has started.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	launcher *Launcher,
	appCtx context.Context,
	backfillDays int,
) {
	lc.Append(fx.Hook{
		OnStart: onStartJobExecution(launcher, shutdowner, appCtx, backfillDays),
		OnStop:  onStopApplication(),
	})
}

// onStartJobExecution runs the job in the background and requests shutdown when it finishes.
func onStartJobExecution(launcher *Launcher, shutdowner fx.Shutdowner, appCtx context.Context, backfillDays int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		go func() {
			exitCode := 1
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic recovered in job execution: %v", r)
				}
				logger.Infof("Requesting application shutdown after job completion.")
				if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					logger.Errorf("Failed to shutdown application: %v", err)
				}
			}()

			je := launcher.Launch(appCtx, backfillDays)
			logger.Infof("Job '%s' (Execution ID: %s) finished with status: %s, ExitStatus: %s",
				je.JobName, je.ID, je.Status, je.ExitStatus)
			if je.Status == model.BatchStatusCompleted {
				exitCode = 0
			}
		}()
		return nil
	}
}

// onStopApplication logs application shutdown.
func onStopApplication() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Infof("Application is shutting down.")
		return nil
	}
}
