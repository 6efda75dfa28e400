// Package relate aggregates dependency/sub-issue signals for an issue from
// both GitHub's native APIs and body-text parsing, and decides whether an
// issue is blocked, unblocked, or eligible for parent-verification.
package relate

// SignalSource distinguishes a GitHub-native signal from one parsed out of
// issue body text.
type SignalSource string

const (
	SourceGitHub SignalSource = "github"
	SourceBody   SignalSource = "body"
)

// SignalKind is the relationship a signal describes.
type SignalKind string

const (
	KindBlockedBy SignalKind = "blocked_by"
	KindSubIssue  SignalKind = "sub_issue"
)

// SignalState is the referenced item's resolution state.
type SignalState string

const (
	StateOpen    SignalState = "open"
	StateClosed  SignalState = "closed"
	StateUnknown SignalState = "unknown"
)

// Signal is one relationship reference for an issue.
type Signal struct {
	Source SignalSource
	Kind   SignalKind
	State  SignalState
	Ref    string // "owner/repo#N"
}

// Coverage reports whether the aggregator believes it has seen every signal
// of a kind (no more pages to fetch).
type Coverage struct {
	DepsComplete       bool
	SubIssuesComplete  bool
	BodyDeps           bool // true if the body contributed any blocked_by refs
}

// Result is the full aggregation output for one issue.
type Result struct {
	Signals  []Signal
	Coverage Coverage
}

// hasOpen reports whether any github-source signal of the given kind is open.
func hasOpen(signals []Signal, kind SignalKind) bool {
	for _, s := range signals {
		if s.Source == SourceGitHub && s.Kind == kind && s.State == StateOpen {
			return true
		}
	}
	return false
}

// hasUnknown reports whether any signal of the given kind is unknown.
func hasUnknown(signals []Signal, kind SignalKind) bool {
	for _, s := range signals {
		if s.Kind == kind && s.State == StateUnknown {
			return true
		}
	}
	return false
}

// anyOfKind reports whether at least one signal of the given kind exists.
func anyOfKind(signals []Signal, kind SignalKind) bool {
	for _, s := range signals {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// Confidence qualifies a blocked/unblocked decision.
type Confidence string

const (
	ConfidenceCertain   Confidence = "certain"
	ConfidenceUndecided Confidence = "undecided"
)

// Decision is the blocked/unblocked verdict for an issue.
type Decision struct {
	Blocked    bool
	Unblocked  bool
	Confidence Confidence
}

// Decide applies spec §4.E's blocked/unblocked rules. Blocking transitions
// require certain confidence; an undecided result means "don't act".
func Decide(r Result) Decision {
	if hasOpen(r.Signals, KindBlockedBy) || hasOpen(r.Signals, KindSubIssue) {
		return Decision{Blocked: true, Confidence: ConfidenceCertain}
	}

	coverageComplete := r.Coverage.DepsComplete && r.Coverage.SubIssuesComplete
	noOpenOrUnknown := !hasUnknown(r.Signals, KindBlockedBy) && !hasUnknown(r.Signals, KindSubIssue)
	if coverageComplete && noOpenOrUnknown {
		return Decision{Unblocked: true, Confidence: ConfidenceCertain}
	}

	return Decision{Confidence: ConfidenceUndecided}
}

// ChildEvidence is what parent-verification eligibility requires per
// sub-issue child: at least one pr or commit item.
type ChildEvidence struct {
	Ref        string
	HasPROrCommit bool
}

// ParentVerificationEligible reports whether an issue is eligible for
// parent-verification writeback per spec §4.E.
func ParentVerificationEligible(r Result, children []ChildEvidence) bool {
	if !r.Coverage.SubIssuesComplete {
		return false
	}
	if !anyOfKind(r.Signals, KindSubIssue) {
		return false
	}
	if hasOpen(r.Signals, KindSubIssue) {
		return false
	}
	if hasOpen(r.Signals, KindBlockedBy) || hasUnknown(r.Signals, KindBlockedBy) || hasUnknown(r.Signals, KindSubIssue) {
		return false
	}
	for _, c := range children {
		if !c.HasPROrCommit {
			return false
		}
	}
	return true
}
