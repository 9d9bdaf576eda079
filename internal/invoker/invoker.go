// Package invoker launches one work unit per subprocess on behalf of a
// supervisor. The harness process is the unit of isolation: a crashing
// user function takes down its own invocation only, and the supervisor
// reads the outcome from the exit code and the response document.
package invoker

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// Launcher defines the execution surface supervisors drive.
type Launcher interface {
	Kind() string
	Launch(ctx context.Context, spec WorkSpec) (Outcome, error)
}

// WorkSpec describes one invocation to launch.
type WorkSpec struct {
	WorkID       string
	RequestFile  string
	BundleFolder string
	Env          map[string]string
}

// Outcome is the observed result of a finished launch. Status is one of
// StatusDone, StatusFailed, StatusRejected.
type Outcome struct {
	Status   string
	ExitCode int
	Output   string
	Duration time.Duration
}

const (
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

// Exit codes of the harness binary. Rejected runs had an invalid request
// or configuration and must not be retried.
const (
	exitOK       = 0
	exitFailed   = 1
	exitRejected = 2
)

var ErrWorkIDRequired = errors.New("work id is required")
var ErrRequestFileRequired = errors.New("request file is required")

func (s WorkSpec) validate() error {
	if strings.TrimSpace(s.WorkID) == "" {
		return ErrWorkIDRequired
	}
	if strings.TrimSpace(s.RequestFile) == "" {
		return ErrRequestFileRequired
	}
	return nil
}

func statusForExitCode(code int) string {
	switch code {
	case exitOK:
		return StatusDone
	case exitRejected:
		return StatusRejected
	default:
		return StatusFailed
	}
}

// sortedEnv flattens the work spec's env map into deterministic KEY=VALUE
// pairs, skipping blank keys.
func sortedEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		if strings.TrimSpace(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
