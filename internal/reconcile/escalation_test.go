package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
)

func comment(id int64, association, body string, createdAt time.Time) *github.IssueComment {
	return &github.IssueComment{
		ID:                &id,
		AuthorAssociation: &association,
		Body:              &body,
		CreatedAt:         &github.Timestamp{Time: createdAt},
	}
}

func TestFindResolutionPicksFirstAuthorizedMatchNewestFirst(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	// comments passed newest-first, matching GitHub's desc sort.
	comments := []*github.IssueComment{
		comment(3, "OWNER", "RALPH RESOLVED: ship it", t0.Add(3*time.Hour)),
		comment(2, "NONE", "RALPH APPROVE", t0.Add(2*time.Hour)),
		comment(1, "MEMBER", "just a note", t0.Add(time.Hour)),
	}
	got := findResolution(comments, 0)
	if got == nil || got.GetID() != 3 {
		t.Fatalf("findResolution() = %v, want comment id 3", got)
	}
}

func TestFindResolutionIgnoresUnauthorizedAssociation(t *testing.T) {
	comments := []*github.IssueComment{
		comment(1, "NONE", "RALPH RESOLVED: nope, random commenter", time.Now()),
	}
	if got := findResolution(comments, 0); got != nil {
		t.Fatalf("findResolution() = %v, want nil for an unauthorized commenter", got)
	}
}

func TestFindResolutionStopsAtLastResolvedComment(t *testing.T) {
	comments := []*github.IssueComment{
		comment(5, "OWNER", "RALPH RESOLVED: newer one", time.Now()),
		comment(4, "OWNER", "RALPH RESOLVED: already handled", time.Now().Add(-time.Hour)),
	}
	got := findResolution(comments, 5)
	if got != nil {
		t.Fatalf("findResolution() = %v, want nil once the newest comment is the last-resolved one", got)
	}
}

func TestFindResolutionReturnsNilWhenNoneMatch(t *testing.T) {
	comments := []*github.IssueComment{
		comment(1, "OWNER", "looks good but no magic words", time.Now()),
	}
	if got := findResolution(comments, 0); got != nil {
		t.Fatalf("findResolution() = %v, want nil", got)
	}
}

func TestProposedResolutionTextExtractsAndUnescapes(t *testing.T) {
	body := `consultant output: {"proposed_resolution_text": "use a \"retry\" strategy"}`
	text, ok := proposedResolutionText(body)
	if !ok {
		t.Fatalf("expected proposedResolutionText to find a match")
	}
	if text != `use a "retry" strategy` {
		t.Fatalf("text = %q, want unescaped quotes", text)
	}
}

func TestProposedResolutionTextMissingField(t *testing.T) {
	if _, ok := proposedResolutionText("no json here"); ok {
		t.Fatalf("expected no match")
	}
}
