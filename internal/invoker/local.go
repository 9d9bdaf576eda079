package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// LocalLauncher runs work units as direct subprocesses of the harness
// binary on the same host.
type LocalLauncher struct {
	binary string
	logger *slog.Logger
}

func NewLocalLauncher(binary string, logger *slog.Logger) (*LocalLauncher, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("launcher binary is required")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("launcher binary not found: %w", err)
	}
	return &LocalLauncher{binary: binary, logger: logger}, nil
}

func (l *LocalLauncher) Kind() string { return "local" }

func (l *LocalLauncher) Launch(ctx context.Context, spec WorkSpec) (Outcome, error) {
	if err := spec.validate(); err != nil {
		return Outcome{}, err
	}

	args := []string{"--request", spec.RequestFile}
	if strings.TrimSpace(spec.BundleFolder) != "" {
		args = append(args, "--bundle", spec.BundleFolder)
	}

	cmd := exec.CommandContext(ctx, l.binary, args...)
	cmd.Env = append(os.Environ(), sortedEnv(spec.Env)...)

	l.logger.Info("launching work unit", "work_id", spec.WorkID, "request", spec.RequestFile)
	started := time.Now()
	out, err := cmd.CombinedOutput()
	outcome := Outcome{
		Output:   strings.TrimSpace(string(out)),
		Duration: time.Since(started),
	}

	if err != nil {
		var exit *exec.ExitError
		if !errors.As(err, &exit) {
			return outcome, fmt.Errorf("launch work %s: %w", spec.WorkID, err)
		}
		outcome.ExitCode = exit.ExitCode()
	}
	outcome.Status = statusForExitCode(outcome.ExitCode)

	l.logger.Info("work unit finished",
		"work_id", spec.WorkID,
		"status", outcome.Status,
		"exit_code", outcome.ExitCode,
		"duration", outcome.Duration)
	return outcome, nil
}
