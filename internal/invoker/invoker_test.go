package invoker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestStatusForExitCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, StatusDone},
		{1, StatusFailed},
		{2, StatusRejected},
		{137, StatusFailed},
	}
	for _, tt := range tests {
		if got := statusForExitCode(tt.code); got != tt.want {
			t.Fatalf("statusForExitCode(%d)=%q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestWorkSpecValidate(t *testing.T) {
	if err := (WorkSpec{RequestFile: "r.yaml"}).validate(); !errors.Is(err, ErrWorkIDRequired) {
		t.Fatalf("validate() err=%v, want ErrWorkIDRequired", err)
	}
	if err := (WorkSpec{WorkID: "w1"}).validate(); !errors.Is(err, ErrRequestFileRequired) {
		t.Fatalf("validate() err=%v, want ErrRequestFileRequired", err)
	}
	if err := (WorkSpec{WorkID: "w1", RequestFile: "r.yaml"}).validate(); err != nil {
		t.Fatalf("validate() err=%v", err)
	}
}

func TestSortedEnv(t *testing.T) {
	got := sortedEnv(map[string]string{"B": "2", "A": "1", " ": "skip"})
	if len(got) != 2 || got[0] != "A=1" || got[1] != "B=2" {
		t.Fatalf("sortedEnv()=%v", got)
	}
}

func TestNewLocalLauncher_MissingBinary(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewLocalLauncher("", logger); err == nil {
		t.Fatalf("expected error for empty binary")
	}
	if _, err := NewLocalLauncher("definitely-not-a-binary-9f2c", logger); err == nil {
		t.Fatalf("expected error for unresolvable binary")
	}
}

func TestLocalLauncher_LaunchMapsExitCodes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-script launch target")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	script := filepath.Join(t.TempDir(), "fake-runner")
	body := "#!/bin/sh\necho ran \"$@\"\nexit ${FAKE_EXIT:-0}\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	launcher, err := NewLocalLauncher(script, logger)
	if err != nil {
		t.Fatalf("NewLocalLauncher() err=%v", err)
	}

	spec := WorkSpec{WorkID: "w1", RequestFile: "request.yaml"}

	outcome, err := launcher.Launch(context.Background(), spec)
	if err != nil {
		t.Fatalf("Launch() err=%v", err)
	}
	if outcome.Status != StatusDone || outcome.ExitCode != 0 {
		t.Fatalf("outcome=%+v, want done/0", outcome)
	}

	spec.Env = map[string]string{"FAKE_EXIT": "2"}
	outcome, err = launcher.Launch(context.Background(), spec)
	if err != nil {
		t.Fatalf("Launch() err=%v", err)
	}
	if outcome.Status != StatusRejected || outcome.ExitCode != 2 {
		t.Fatalf("outcome=%+v, want rejected/2", outcome)
	}

	spec.Env = map[string]string{"FAKE_EXIT": "1"}
	outcome, err = launcher.Launch(context.Background(), spec)
	if err != nil {
		t.Fatalf("Launch() err=%v", err)
	}
	if outcome.Status != StatusFailed || outcome.ExitCode != 1 {
		t.Fatalf("outcome=%+v, want failed/1", outcome)
	}
}
