// Package queue projects GitHub issue labels to logical task status and
// computes the minimal label delta needed to converge on a target status.
package queue

import "strings"

// Status is the logical task status derived from an issue's labels.
type Status string

const (
	StatusDone        Status = "done"
	StatusInBot       Status = "in-bot"
	StatusThrottled   Status = "throttled"
	StatusPaused      Status = "paused"
	StatusBlocked     Status = "blocked"
	StatusEscalated   Status = "escalated"
	StatusInProgress  Status = "in-progress"
	StatusQueued      Status = "queued"
	StatusNone        Status = ""
)

// precedence lists statuses from highest to lowest priority for projection.
var precedence = []Status{
	StatusDone, StatusInBot, StatusThrottled, StatusPaused,
	StatusBlocked, StatusEscalated, StatusInProgress, StatusQueued,
}

const statusLabelPrefix = "ralph:status:"

// StatusLabel returns the canonical label name for a status. escalated has
// no GitHub label of its own (it's a Task-row-level refinement the
// scheduler tracks internally, not something the label set can encode) and
// surfaces on GitHub as blocked.
func StatusLabel(s Status) string {
	switch s {
	case StatusNone:
		return ""
	case StatusEscalated:
		return statusLabelPrefix + string(StatusBlocked)
	default:
		return statusLabelPrefix + string(s)
	}
}

// statusFromLabel extracts the Status encoded by a single label, or
// StatusNone if the label isn't a status label.
func statusFromLabel(label string) Status {
	lower := strings.ToLower(label)
	if !strings.HasPrefix(lower, statusLabelPrefix) {
		return StatusNone
	}
	return Status(strings.TrimPrefix(lower, statusLabelPrefix))
}

// statusLabelsIn returns every status label present in labels, in input order.
func statusLabelsIn(labels []string) []Status {
	var out []Status
	for _, l := range labels {
		if s := statusFromLabel(l); s != StatusNone {
			out = append(out, s)
		}
	}
	return out
}

// DeriveStatus projects a label set to a logical status by precedence. Open
// is currently unused by the precedence table itself (precedence is
// label-driven, not issue-state-driven) but is accepted for parity with the
// spec's deriveStatus signature and future open/closed-sensitive rules.
func DeriveStatus(labels []string, _ IssueState) Status {
	present := map[Status]bool{}
	for _, s := range statusLabelsIn(labels) {
		present[s] = true
	}
	for _, candidate := range precedence {
		if present[candidate] {
			return candidate
		}
	}
	return StatusNone
}

// IssueState is the open/closed state of a GitHub issue.
type IssueState string

const (
	Open   IssueState = "open"
	Closed IssueState = "closed"
)

// Delta is the label mutation needed to reach a target status.
type Delta struct {
	Add    []string
	Remove []string
}

// ComputeDelta returns the add/remove sets to move labels to exactly one
// status label (the target), removing every other status-prefixed label.
// Non-status labels are never touched.
func ComputeDelta(labels []string, target Status) Delta {
	var d Delta
	targetLabel := StatusLabel(target)
	hasTarget := false
	for _, l := range labels {
		s := statusFromLabel(l)
		if s == StatusNone {
			continue
		}
		if strings.EqualFold(l, targetLabel) {
			hasTarget = true
			continue
		}
		d.Remove = append(d.Remove, l)
	}
	if target != StatusNone && !hasTarget {
		d.Add = append(d.Add, targetLabel)
	}
	return d
}

// NeedsHealing reports whether a label set violates the single-status-label
// invariant: zero or two-or-more status labels present.
func NeedsHealing(labels []string) bool {
	return len(statusLabelsIn(labels)) != 1
}

// HealTarget picks the status a healing pass should converge on.
// desiredHint wins unless dependencyBlocked, in which case queued wins even
// over an in-progress hint (the blocked label itself is the blocking
// engine's responsibility, not the driver's).
func HealTarget(desiredHint Status, dependencyBlocked bool) Status {
	if dependencyBlocked {
		return StatusQueued
	}
	if desiredHint != StatusNone {
		return desiredHint
	}
	return StatusQueued
}

// Claimable reports whether an issue's labels make it eligible for a worker
// to claim: queued present, and none of the exclusion set.
func Claimable(labels []string) bool {
	status := DeriveStatus(labels, Open)
	if status != StatusQueued {
		return false
	}
	excluded := map[Status]bool{
		StatusInProgress: true, StatusBlocked: true, StatusPaused: true,
		StatusThrottled: true, StatusInBot: true, StatusDone: true,
	}
	for _, s := range statusLabelsIn(labels) {
		if excluded[s] {
			return false
		}
	}
	return true
}

// ClaimDelta returns the delta to atomically claim a claimable issue:
// add in-progress, remove queued.
func ClaimDelta(labels []string) Delta {
	return ComputeDelta(labels, StatusInProgress)
}
