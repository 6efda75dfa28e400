package relate

import "testing"

func TestDecideBlockedWhenAnyOpenBlockedByOrSubIssue(t *testing.T) {
	r := Result{Signals: []Signal{{Source: SourceGitHub, Kind: KindBlockedBy, State: StateOpen}}}
	d := Decide(r)
	if !d.Blocked || d.Confidence != ConfidenceCertain {
		t.Fatalf("Decide() = %+v, want blocked/certain", d)
	}
}

func TestDecideBlockedIgnoresBodySourcedOpenSignals(t *testing.T) {
	// Only a github-sourced open signal is certain enough to block; a
	// body-parsed reference with unknown resolution state is not.
	r := Result{
		Signals: []Signal{{Source: SourceBody, Kind: KindBlockedBy, State: StateOpen}},
		Coverage: Coverage{DepsComplete: true, SubIssuesComplete: true},
	}
	d := Decide(r)
	if d.Blocked {
		t.Fatalf("Decide() = %+v, want not blocked from a body-sourced signal alone", d)
	}
}

func TestDecideUnblockedRequiresCompleteCoverageAndNoUnknowns(t *testing.T) {
	r := Result{
		Signals:  []Signal{{Source: SourceGitHub, Kind: KindBlockedBy, State: StateClosed}},
		Coverage: Coverage{DepsComplete: true, SubIssuesComplete: true},
	}
	d := Decide(r)
	if !d.Unblocked || d.Confidence != ConfidenceCertain {
		t.Fatalf("Decide() = %+v, want unblocked/certain", d)
	}
}

func TestDecideUndecidedWhenCoverageIncomplete(t *testing.T) {
	r := Result{
		Signals:  []Signal{{Source: SourceGitHub, Kind: KindBlockedBy, State: StateClosed}},
		Coverage: Coverage{DepsComplete: false, SubIssuesComplete: true},
	}
	d := Decide(r)
	if d.Blocked || d.Unblocked || d.Confidence != ConfidenceUndecided {
		t.Fatalf("Decide() = %+v, want undecided", d)
	}
}

func TestDecideUndecidedWhenAnySignalIsUnknownState(t *testing.T) {
	r := Result{
		Signals:  []Signal{{Source: SourceGitHub, Kind: KindSubIssue, State: StateUnknown}},
		Coverage: Coverage{DepsComplete: true, SubIssuesComplete: true},
	}
	d := Decide(r)
	if d.Blocked || d.Unblocked || d.Confidence != ConfidenceUndecided {
		t.Fatalf("Decide() = %+v, want undecided on an unresolved reference", d)
	}
}

func TestParentVerificationEligibleRequiresAllChildrenHaveEvidence(t *testing.T) {
	r := Result{
		Signals:  []Signal{{Source: SourceGitHub, Kind: KindSubIssue, State: StateClosed}},
		Coverage: Coverage{SubIssuesComplete: true},
	}
	children := []ChildEvidence{{Ref: "acme/repo#2", HasPROrCommit: true}, {Ref: "acme/repo#3", HasPROrCommit: false}}
	if ParentVerificationEligible(r, children) {
		t.Fatalf("expected ineligible when one child lacks PR/commit evidence")
	}

	children[1].HasPROrCommit = true
	if !ParentVerificationEligible(r, children) {
		t.Fatalf("expected eligible once every child has PR/commit evidence")
	}
}

func TestParentVerificationEligibleRejectsIncompleteCoverage(t *testing.T) {
	r := Result{
		Signals:  []Signal{{Source: SourceGitHub, Kind: KindSubIssue, State: StateClosed}},
		Coverage: Coverage{SubIssuesComplete: false},
	}
	if ParentVerificationEligible(r, nil) {
		t.Fatalf("expected ineligible when sub-issue coverage is incomplete")
	}
}

func TestParentVerificationEligibleRejectsWithNoSubIssues(t *testing.T) {
	r := Result{Coverage: Coverage{SubIssuesComplete: true}}
	if ParentVerificationEligible(r, nil) {
		t.Fatalf("expected ineligible when the issue has no sub-issues at all")
	}
}

func TestParentVerificationEligibleRejectsOpenSubIssue(t *testing.T) {
	r := Result{
		Signals:  []Signal{{Source: SourceGitHub, Kind: KindSubIssue, State: StateOpen}},
		Coverage: Coverage{SubIssuesComplete: true},
	}
	if ParentVerificationEligible(r, nil) {
		t.Fatalf("expected ineligible while any sub-issue is still open")
	}
}
