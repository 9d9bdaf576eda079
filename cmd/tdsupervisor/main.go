// Command tdsupervisor drives one work unit end to end: it launches the
// harness binary for the unit's request and reports the outcome to the
// Tabsdata server. Work units for one checkpoint must be serialized by
// whoever schedules this command.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tabsdata-labs/tabsdata-go/internal/apiclient"
	"github.com/tabsdata-labs/tabsdata-go/internal/invoker"
	"github.com/tabsdata-labs/tabsdata-go/internal/platform/env"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workID := flag.String("work", "", "work unit identifier")
	requestFile := flag.String("request", "", "path to the request document")
	bundleFolder := flag.String("bundle", "", "path to the extracted function bundle")
	runnerBinary := flag.String("runner", env.String("TD_RUNNER_BINARY", "tdrunner"), "harness binary to launch")
	flag.Parse()

	if *workID == "" || *requestFile == "" {
		logger.Error("missing arguments", "work", *workID, "request", *requestFile)
		os.Exit(2)
	}

	apiCfg := apiclient.ConfigFromEnv()
	client, err := apiclient.New(ctx, apiCfg)
	if err != nil {
		logger.Error("api client unavailable", "error", err)
		os.Exit(2)
	}

	launcher, err := invoker.NewLocalLauncher(*runnerBinary, logger)
	if err != nil {
		logger.Error("launcher unavailable", "error", err)
		os.Exit(2)
	}

	outcome, err := launcher.Launch(ctx, invoker.WorkSpec{
		WorkID:       *workID,
		RequestFile:  *requestFile,
		BundleFolder: *bundleFolder,
	})
	if err != nil {
		logger.Error("launch failed", "work_id", *workID, "error", err)
		os.Exit(1)
	}

	status := apiclient.FunctionRunStatus{Status: outcome.Status}
	if outcome.Status != invoker.StatusDone {
		status.Message = outcome.Output
	}
	if err := client.UpdateFunctionRunStatus(ctx, *workID, status); err != nil {
		logger.Error("status report failed", "work_id", *workID, "error", err)
		os.Exit(1)
	}

	logger.Info("work unit reported",
		"work_id", *workID,
		"status", outcome.Status,
		"exit_code", outcome.ExitCode,
		"duration", outcome.Duration)
	if outcome.Status != invoker.StatusDone {
		os.Exit(1)
	}
}
