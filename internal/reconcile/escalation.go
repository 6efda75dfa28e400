package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/ralphcore/ralph/internal/store"
	"github.com/ralphcore/ralph/internal/tunables"
)

var (
	resolvedRE = regexp.MustCompile(`(?i)RALPH RESOLVED:`)
	approveRE  = regexp.MustCompile(`(?i)RALPH APPROVE`)
	proposedResolutionRE = regexp.MustCompile(`(?is)"proposed_resolution_text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

var authorizedAssociations = map[string]bool{
	"OWNER": true, "MEMBER": true, "COLLABORATOR": true,
}

// EscalationResolver scans escalated issues' comments for an authorized
// RALPH RESOLVED:/RALPH APPROVE comment and, on finding one, returns the
// task to the queue.
type EscalationResolver struct {
	GH  *ghclient.Client
	DB  store.DB
	Q   *queue.Driver
	Now func() time.Time
}

func (r *EscalationResolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Resolve checks one escalated issue, skipping the fetch entirely if the
// minimum check interval hasn't elapsed and GitHub hasn't reported a newer
// githubUpdatedAt since the last check.
func (r *EscalationResolver) Resolve(ctx context.Context, owner, repoName string, issueNumber int, githubUpdatedAt time.Time) error {
	repo := owner + "/" + repoName
	state, _, err := store.GetEscalationCheckState(ctx, r.DB, repo, issueNumber)
	if err != nil {
		return fmt.Errorf("reconcile: loading escalation state for %s#%d: %w", repo, issueNumber, err)
	}

	if r.now().Sub(state.LastCheckedAt) < tunables.EscalationMinCheckInterval &&
		!githubUpdatedAt.After(state.LastSeenUpdatedAt) {
		return nil
	}

	comments, _, err := r.GH.ListIssueComments(ctx, owner, repoName, issueNumber, &github.IssueListCommentsOptions{
		Sort: github.String("created"), Direction: github.String("desc"),
	})
	if err != nil {
		return fmt.Errorf("reconcile: listing comments for %s#%d: %w", repo, issueNumber, err)
	}

	state.LastCheckedAt = r.now()
	state.LastSeenUpdatedAt = githubUpdatedAt

	resolution := findResolution(comments, state.LastResolvedCommentID)
	if resolution == nil {
		return store.PutEscalationCheckState(ctx, r.DB, state)
	}

	if approveRE.MatchString(resolution.GetBody()) && !resolvedRE.MatchString(resolution.GetBody()) {
		if err := r.translateApproval(ctx, owner, repoName, issueNumber, comments, resolution); err != nil {
			return fmt.Errorf("reconcile: translating approval for %s#%d: %w", repo, issueNumber, err)
		}
	}

	if err := r.applyResolution(ctx, owner, repoName, issueNumber); err != nil {
		return fmt.Errorf("reconcile: applying resolution for %s#%d: %w", repo, issueNumber, err)
	}

	state.LastResolvedCommentID = resolution.GetID()
	state.LastResolvedCommentAt = resolution.GetCreatedAt().Time
	return store.PutEscalationCheckState(ctx, r.DB, state)
}

// findResolution scans comments newest-first for the first authorized
// RALPH RESOLVED:/RALPH APPROVE comment not already recorded as resolved.
func findResolution(comments []*github.IssueComment, lastResolvedID int64) *github.IssueComment {
	for _, c := range comments {
		if c.GetID() == lastResolvedID {
			return nil // already resolved at or before this comment
		}
		if !authorizedAssociations[strings.ToUpper(c.GetAuthorAssociation())] {
			continue
		}
		body := c.GetBody()
		if resolvedRE.MatchString(body) || approveRE.MatchString(body) {
			return c
		}
	}
	return nil
}

// proposedResolutionText extracts proposed_resolution_text from a prior
// consultant JSON block embedded in a RALPH APPROVE comment's thread. The
// approving comment itself rarely carries the text, so callers scanning for
// it should search the surrounding comments; this helper just extracts the
// field when present in a given comment body.
func proposedResolutionText(body string) (string, bool) {
	m := proposedResolutionRE.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], `\"`, `"`), true
}

// translateApproval turns a bare RALPH APPROVE into a RALPH RESOLVED:
// comment by copying proposed_resolution_text out of the nearest prior
// consultant JSON block in the comment thread.
func (r *EscalationResolver) translateApproval(ctx context.Context, owner, repoName string, issueNumber int, comments []*github.IssueComment, approval *github.IssueComment) error {
	text, found := "", false
	for _, c := range comments {
		if c.GetCreatedAt().After(approval.GetCreatedAt().Time) {
			continue
		}
		if text, found = proposedResolutionText(c.GetBody()); found {
			break
		}
	}
	if !found {
		text = "approved, no proposed resolution text found"
	}
	_, err := r.GH.CreateComment(ctx, owner, repoName, issueNumber, "RALPH RESOLVED: "+text)
	return err
}

func (r *EscalationResolver) applyResolution(ctx context.Context, owner, repoName string, issueNumber int) error {
	if err := r.Q.Converge(ctx, owner, repoName, issueNumber, queue.StatusQueued, false); err != nil {
		return err
	}
	task, found, err := store.GetTask(ctx, r.DB, owner+"/"+repoName, issueNumber)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	task.Status = store.StatusQueued
	task.BlockedSource = ""
	task.UpdatedAt = r.now()
	return store.UpsertTask(ctx, r.DB, task)
}
