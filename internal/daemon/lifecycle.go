package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ralphcore/ralph/internal/tunables"
)

// Process owns the canonical daemon record and control file for the
// lifetime of a running ralph process: registers on startup, heartbeats on
// a ticker, and exposes the current control mode to the scheduler.
type Process struct {
	DaemonID    string
	ControlRoot string
	RecordPath  string
	ControlPath string
}

// Register writes the initial daemon record and control file (mode=running)
// for this process. Call once at startup, after EnsureDir-equivalent setup.
func Register(daemonID, controlRoot, ralphVersion string, command []string) (*Process, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("daemon: getting cwd: %w", err)
	}
	recordPath := CanonicalRecordPath(controlRoot)
	controlPath := CanonicalControlPath(controlRoot)
	now := time.Now().UTC()

	rec := &Record{
		Version:         1,
		DaemonID:        daemonID,
		PID:             os.Getpid(),
		StartedAt:       now,
		HeartbeatAt:     now,
		ControlRoot:     controlRoot,
		ControlFilePath: controlPath,
		Cwd:             cwd,
		Command:         command,
		RalphVersion:    &ralphVersion,
	}
	if err := WriteRecord(recordPath, rec); err != nil {
		return nil, err
	}

	if _, err := ReadControlState(controlPath); err != nil {
		if err := WriteControlState(controlPath, &ControlState{Version: 1, Mode: ModeRunning}); err != nil {
			return nil, err
		}
	}

	return &Process{DaemonID: daemonID, ControlRoot: controlRoot, RecordPath: recordPath, ControlPath: controlPath}, nil
}

// Heartbeat updates the daemon record's heartbeatAt on a fixed interval
// until ctx is cancelled.
func (p *Process) Heartbeat(ctx context.Context) {
	ticker := time.NewTicker(tunables.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.touch()
		}
	}
}

func (p *Process) touch() {
	rec, err := ReadRecord(p.RecordPath)
	if err != nil {
		return
	}
	rec.HeartbeatAt = time.Now().UTC()
	_ = WriteRecord(p.RecordPath, rec)
}

// Mode returns the current control mode, defaulting to running if the
// control file is unreadable (fail open rather than stall all workers on a
// transient read glitch).
func (p *Process) Mode() string {
	state, err := ReadControlState(p.ControlPath)
	if err != nil {
		return ModeRunning
	}
	return state.Mode
}

// RequestDrain transitions the control file to draining.
func (p *Process) RequestDrain() error {
	return WriteControlState(p.ControlPath, &ControlState{Version: 1, Mode: ModeDraining})
}

// RequestPause transitions the control file to paused.
func (p *Process) RequestPause() error {
	return WriteControlState(p.ControlPath, &ControlState{Version: 1, Mode: ModePaused})
}
