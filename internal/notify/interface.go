package notify

import "context"

// Event represents a notification event raised by the scheduler,
// reconcilers, or doctor.
type Event struct {
	Type     string         // "escalation" | "guardrail_kill" | "doctor_error" | "pr_opened" | "task_blocked"
	Title    string
	Body     string
	URL      string         // optional deep link (issue/PR URL)
	Severity string         // "critical" | "high" | "medium" | "low" | ""
	RepoKey  string         // "owner/repo"
	Metadata map[string]any // extra structured data (e.g. guardrailKind, issueNumber)
}

// Channel is implemented by each notification provider.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, evt Event) error
}
