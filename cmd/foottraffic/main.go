package main

import (
	"context"
	_ "embed"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/foottraffic/internal/app"
	model "github.com/tigerroll/foottraffic/pkg/batch/core/domain/model"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// embeddedConfig is the application configuration. ${VAR} placeholders and
// FOOTTRAFFIC_* environment variables override it at startup.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	backfill := flag.Int("backfill", 0, "days of mail to search (default: foottraffic.batch.backfill_days)")
	envFile := flag.String("env-file", "", "path of a .env file to load (default: $ENV_FILE_PATH or .env)")
	flag.Parse()

	if *backfill < 0 {
		logger.Errorf("--backfill must be positive, got %d", *backfill)
		os.Exit(2)
	}

	envFilePath := *envFile
	if envFilePath == "" {
		envFilePath = os.Getenv("ENV_FILE_PATH")
	}
	if envFilePath == "" {
		envFilePath = ".env"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	je, err := app.RunApplication(ctx, envFilePath, embeddedConfig, *backfill, app.DBProviderOptions())
	if err != nil {
		logger.Errorf("Application run failed: %v", err)
		os.Exit(1)
	}
	if je.Status != model.BatchStatusCompleted {
		for _, f := range je.Failures {
			logger.Errorf("Job failure: %s", f)
		}
		cancel()
		os.Exit(1)
	}
}
