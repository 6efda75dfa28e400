// Package agentexec is the concrete scheduler.AgentInvoker: it spawns the
// external agent subprocess, lets it write its own event stream to disk,
// and ingests that stream afterward. Prompt assembly, sandboxing, and the
// subprocess's own git operations are its business, not this package's —
// it is specified only by the event stream it emits (spec §1, §6).
package agentexec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/ralphcore/ralph/internal/metrics"
	"github.com/ralphcore/ralph/internal/scheduler"
)

// exitCodeContextExhausted is the convention an agent subprocess uses to
// signal it hit a context-window limit mid-stage, distinct from an
// ordinary failure exit.
const exitCodeContextExhausted = 2

// Invoker spawns Command (with placeholders substituted) as the agent
// subprocess for each stage invocation.
type Invoker struct {
	Command     []string
	SessionsDir string
	WorkDir     string
}

var _ scheduler.AgentInvoker = (*Invoker)(nil)

// Invoke runs the configured command for one stage. The subprocess writes
// its own newline-delimited event stream to the path this Invoker computes
// and passes via the {events} placeholder and RALPH_EVENTS_PATH env var;
// Invoke ingests that file once the process exits to decide the outcome.
func (inv *Invoker) Invoke(ctx context.Context, req scheduler.InvokeRequest) (scheduler.InvokeResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}
	eventsPath := metrics.EventStreamPath(inv.SessionsDir, sessionID)
	if err := os.MkdirAll(filepath.Dir(eventsPath), 0o700); err != nil {
		return scheduler.InvokeResult{}, fmt.Errorf("agentexec: preparing session dir: %w", err)
	}

	args := inv.substitute(req.TaskPath, req.Stage, req.Message, sessionID, eventsPath)
	if len(args) == 0 {
		return scheduler.InvokeResult{}, fmt.Errorf("agentexec: empty agent command")
	}

	// #nosec G204 -- args come from operator configuration (daemon.agent_command), not untrusted input
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = inv.WorkDir
	cmd.Env = append(os.Environ(),
		"RALPH_TASK_PATH="+req.TaskPath,
		"RALPH_STAGE="+req.Stage,
		"RALPH_SESSION_ID="+sessionID,
		"RALPH_EVENTS_PATH="+eventsPath,
	)

	runErr := cmd.Run()

	if runErr != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(runErr, &exitErr); ok && exitErr.ExitCode() == exitCodeContextExhausted {
			return scheduler.InvokeResult{Outcome: scheduler.OutcomeContextExhausted, SessionID: sessionID}, nil
		}
		return scheduler.InvokeResult{}, runErr
	}

	failed, failText, err := lastRunEndFailure(eventsPath)
	if err != nil {
		return scheduler.InvokeResult{}, fmt.Errorf("agentexec: reading event stream: %w", err)
	}
	if failed {
		return scheduler.InvokeResult{Outcome: scheduler.OutcomeFailed, SessionID: sessionID, ErrorText: failText}, nil
	}

	return scheduler.InvokeResult{Outcome: scheduler.OutcomeOK, SessionID: sessionID}, nil
}

// Compact starts a fresh session (a new sessionId, per scheduler.AgentInvoker's
// contract) and runs the configured command with a "compact" stage so the
// subprocess can carry forward a condensed transcript under the old session
// before resuming.
func (inv *Invoker) Compact(ctx context.Context, sessionID string) (string, error) {
	resumed := ulid.Make().String()
	eventsPath := metrics.EventStreamPath(inv.SessionsDir, resumed)
	if err := os.MkdirAll(filepath.Dir(eventsPath), 0o700); err != nil {
		return "", fmt.Errorf("agentexec: preparing session dir: %w", err)
	}

	args := inv.substitute("", "compact", "", sessionID, eventsPath)
	if len(args) == 0 {
		return "", fmt.Errorf("agentexec: empty agent command")
	}

	// #nosec G204 -- args come from operator configuration (daemon.agent_command), not untrusted input
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = inv.WorkDir
	cmd.Env = append(os.Environ(),
		"RALPH_STAGE=compact",
		"RALPH_COMPACT_FROM_SESSION_ID="+sessionID,
		"RALPH_SESSION_ID="+resumed,
		"RALPH_EVENTS_PATH="+eventsPath,
	)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("agentexec: compaction subprocess: %w", err)
	}
	return resumed, nil
}

func (inv *Invoker) substitute(taskPath, stage, message, sessionID, eventsPath string) []string {
	replacer := strings.NewReplacer(
		"{task}", taskPath,
		"{stage}", stage,
		"{message}", message,
		"{session}", sessionID,
		"{events}", eventsPath,
	)
	args := make([]string, len(inv.Command))
	for i, a := range inv.Command {
		args[i] = replacer.Replace(a)
	}
	return args
}

// lastRunEndFailure scans the session's event stream for its last run-end
// event and reports whether it explicitly marked the run unsuccessful. A
// stream with no run-end event, or one that omits success, is treated as
// successful: a hard failure must be unambiguous, not inferred from
// absence.
func lastRunEndFailure(eventsPath string) (failed bool, reason string, err error) {
	f, err := os.Open(eventsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "", nil
		}
		return false, "", err
	}
	defer f.Close()

	events, _ := metrics.ParseEvents(f)
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Type != metrics.EventRunEnd {
			continue
		}
		if ev.HasSuccess && !ev.Success {
			return true, "agent reported run-end success=false", nil
		}
		return false, "", nil
	}
	return false, "", nil
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}
