package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// LivenessState classifies a daemon record after probing its pid.
type LivenessState string

const (
	Live       LivenessState = "live"
	Stale      LivenessState = "stale"
	Unreadable LivenessState = "unreadable"
	Missing    LivenessState = "missing"
)

// processAlive checks for a running process with the given pid via
// signal-0, which the kernel delivers without actually signaling anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// cmdlineBasenames returns the basename (case-insensitive) of each token in
// /proc/<pid>/cmdline, for identity verification against a daemon record's
// recorded command line.
func cmdlineBasenames(pid int) ([]string, error) {
	data, err := os.ReadFile(filepath.Join("/proc", itoa(pid), "cmdline"))
	if err != nil {
		return nil, err
	}
	tokens := strings.Split(string(data), "\x00")
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		out = append(out, strings.ToLower(filepath.Base(t)))
	}
	return out, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// verifyIdentity confirms at least one of the record's top-3 command tokens
// (by basename, case-insensitive) appears in the live process's actual
// command line. Returns false (not verified) if /proc is unreadable —
// callers should then fall back to liveness-only (signal-0) trust.
func verifyIdentity(pid int, recordedCommand []string) (verified bool, checked bool) {
	actual, err := cmdlineBasenames(pid)
	if err != nil {
		return false, false
	}
	want := recordedCommand
	if len(want) > 3 {
		want = want[:3]
	}
	actualSet := map[string]struct{}{}
	for _, a := range actual {
		actualSet[a] = struct{}{}
	}
	for _, w := range want {
		if _, ok := actualSet[strings.ToLower(filepath.Base(w))]; ok {
			return true, true
		}
	}
	return false, true
}

// ClassifyRecord probes a daemon record's liveness: signal-0 on the pid,
// then (if alive) identity verification via /proc/<pid>/cmdline when
// available.
func ClassifyRecord(r *Record) LivenessState {
	if r == nil {
		return Missing
	}
	if !processAlive(r.PID) {
		return Stale
	}
	verified, checked := verifyIdentity(r.PID, r.Command)
	if checked && !verified {
		return Stale
	}
	return Live
}
