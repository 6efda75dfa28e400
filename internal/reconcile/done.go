// Package reconcile drives the cursor-based reconcilers: read a cursor,
// query GitHub over a bounded window since that cursor, apply idempotent
// local+remote mutations, advance the cursor on success. Every reconciler
// in this package follows that same read→query→mutate→advance shape.
package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/ralphcore/ralph/internal/store"
)

// closingKeywordRE extracts issue numbers from GitHub's standard
// closing-keyword syntax ("closes #12", "fixes org/repo#34", ...).
var closingKeywordRE = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s*:?\s*(?:[\w.-]+/[\w.-]+)?#(\d+)`)

// DoneReconciler watches merges to a repo's base branch and projects
// closed-via-reference issues to the done status.
type DoneReconciler struct {
	GH *ghclient.Client
	DB store.DB
	Q  *queue.Driver
}

// ClosingIssueNumbers scans a PR body for closing-keyword references.
func ClosingIssueNumbers(body string) []int {
	matches := closingKeywordRE.FindAllStringSubmatch(body, -1)
	seen := map[int]bool{}
	var out []int
	for _, m := range matches {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		if n > 0 && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Run processes merged PRs into the base branch since the repo's cursor,
// advancing it on success.
func (r *DoneReconciler) Run(ctx context.Context, owner, repoName, baseBranch string) error {
	repo := owner + "/" + repoName
	cursor, _, err := store.GetDoneReconcileCursor(ctx, r.DB, repo)
	if err != nil {
		return fmt.Errorf("reconcile: loading done cursor for %s: %w", repo, err)
	}

	prs, err := r.mergedSince(ctx, owner, repoName, baseBranch, cursor.LastMergedAt, cursor.LastPRNumber)
	if err != nil {
		return fmt.Errorf("reconcile: listing merged PRs for %s: %w", repo, err)
	}

	for _, pr := range prs {
		for _, issueNumber := range ClosingIssueNumbers(pr.GetBody()) {
			if err := r.Q.Converge(ctx, owner, repoName, issueNumber, queue.StatusDone, false); err != nil {
				return fmt.Errorf("reconcile: marking %s#%d done: %w", repo, issueNumber, err)
			}
			if err := r.clearOperationalFields(ctx, repo, issueNumber); err != nil {
				return fmt.Errorf("reconcile: clearing task fields for %s#%d: %w", repo, issueNumber, err)
			}
		}
		mergedAt := pr.GetMergedAt().Time
		if err := store.AdvanceDoneReconcileCursor(ctx, r.DB, repo, mergedAt, pr.GetNumber()); err != nil {
			return fmt.Errorf("reconcile: advancing done cursor for %s: %w", repo, err)
		}
	}
	return nil
}

func (r *DoneReconciler) clearOperationalFields(ctx context.Context, repo string, issueNumber int) error {
	task, found, err := store.GetTask(ctx, r.DB, repo, issueNumber)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	task.SessionID = ""
	task.WorktreePath = ""
	task.WorkerID = ""
	task.RepoSlot = 0
	task.DaemonID = ""
	task.HeartbeatAt = nil
	task.Status = store.StatusDone
	task.UpdatedAt = time.Now().UTC()
	return store.UpsertTask(ctx, r.DB, task)
}

// mergedSince lists PRs into base merged strictly after (mergedAt, prNumber)
// in ascending merge order, using the REST PR list (sorted by update time)
// filtered to merged state.
func (r *DoneReconciler) mergedSince(ctx context.Context, owner, repoName, base string, since time.Time, lastPRNumber int) ([]*github.PullRequest, error) {
	all, err := r.GH.ListMergedPullRequests(ctx, owner, repoName, base)
	if err != nil {
		return nil, err
	}
	var out []*github.PullRequest
	for _, pr := range all {
		if pr.MergedAt == nil {
			continue
		}
		mergedAt := pr.GetMergedAt().Time
		if mergedAt.Before(since) {
			continue
		}
		if mergedAt.Equal(since) && pr.GetNumber() <= lastPRNumber {
			continue
		}
		out = append(out, pr)
	}
	// Ascending by merge time so the cursor advances monotonically.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].GetMergedAt().Time.After(out[j].GetMergedAt().Time); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}
