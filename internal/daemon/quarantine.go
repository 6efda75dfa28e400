package daemon

import (
	"fmt"
	"os"
	"time"
)

// QuarantineReason names why a file is being quarantined; it becomes part
// of the suffix appended to the file's name.
type QuarantineReason string

const (
	ReasonStale     QuarantineReason = "stale"
	ReasonCorrupt   QuarantineReason = "corrupt"
	ReasonDuplicate QuarantineReason = "duplicate"
	ReasonLegacy    QuarantineReason = "legacy"
)

// compactISO formats a time as YYYYMMDDTHHMMSSZ for quarantine suffixes.
func compactISO(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// QuarantineSuffix builds the suffix appended to a quarantined file's name.
// Stale quarantines embed the pid; others don't carry one.
func QuarantineSuffix(reason QuarantineReason, at time.Time, pid int) string {
	switch reason {
	case ReasonStale:
		return fmt.Sprintf(".stale-%s-%d", compactISO(at), pid)
	case ReasonCorrupt:
		return fmt.Sprintf(".corrupt-%s", compactISO(at))
	case ReasonDuplicate:
		return fmt.Sprintf(".duplicate-%s", compactISO(at))
	case ReasonLegacy:
		return fmt.Sprintf(".legacy-%s", compactISO(at))
	default:
		return fmt.Sprintf(".quarantined-%s", compactISO(at))
	}
}

// Quarantine renames path to path+suffix via atomic rename. Returns the new
// path.
func Quarantine(path string, reason QuarantineReason, at time.Time, pid int) (string, error) {
	newPath := path + QuarantineSuffix(reason, at, pid)
	if err := os.Rename(path, newPath); err != nil {
		return "", fmt.Errorf("daemon: quarantining %s: %w", path, err)
	}
	return newPath, nil
}
