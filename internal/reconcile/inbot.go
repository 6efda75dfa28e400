package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/ralphcore/ralph/internal/store"
)

// InBotReconciler watches merges to the bot integration branch and labels
// each referenced issue in-bot, retrying label-write failures via a pending
// row queue rather than blocking the cursor on them.
type InBotReconciler struct {
	GH  *ghclient.Client
	DB  store.DB
	Q   *queue.Driver
	Now func() time.Time
}

func (r *InBotReconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Run retries pending rows first, then processes newly merged bot-branch
// PRs since the cursor. On first run (no cursor) it initializes the cursor
// to now rather than scanning history, avoiding a stampede of label writes
// across every already-merged bot PR.
func (r *InBotReconciler) Run(ctx context.Context, owner, repoName, botBranch string) error {
	repo := owner + "/" + repoName
	cursor, found, err := store.GetInBotReconcileCursor(ctx, r.DB, repo)
	if err != nil {
		return fmt.Errorf("reconcile: loading in-bot cursor for %s: %w", repo, err)
	}
	if !found {
		return store.AdvanceInBotReconcileCursor(ctx, r.DB, repo, botBranch, r.now(), 0)
	}
	if cursor.BotBranch != botBranch {
		if err := store.ResetInBotReconcileCursor(ctx, r.DB, repo, botBranch, r.now()); err != nil {
			return fmt.Errorf("reconcile: resetting in-bot cursor for %s: %w", repo, err)
		}
		return nil
	}

	if err := r.retryPending(ctx, owner, repoName); err != nil {
		return err
	}

	prs, err := r.mergedSinceForRef(ctx, owner, repoName, botBranch, cursor.LastMergedAt, cursor.LastPRNumber)
	if err != nil {
		return fmt.Errorf("reconcile: listing bot-branch merges for %s: %w", repo, err)
	}

	for _, pr := range prs {
		mergedAt := pr.GetMergedAt().Time
		for _, issueNumber := range ClosingIssueNumbers(pr.GetBody()) {
			r.labelAndClear(ctx, owner, repoName, issueNumber, pr.GetNumber(), mergedAt)
		}
		if err := store.AdvanceInBotReconcileCursor(ctx, r.DB, repo, botBranch, mergedAt, pr.GetNumber()); err != nil {
			return fmt.Errorf("reconcile: advancing in-bot cursor for %s: %w", repo, err)
		}
	}
	return nil
}

// labelAndClear attempts the in-bot label write and task clear; on failure
// it enqueues a pending row rather than propagating the error, so one bad
// label write never blocks the cursor from advancing.
func (r *InBotReconciler) labelAndClear(ctx context.Context, owner, repoName string, issueNumber, prNumber int, mergedAt time.Time) {
	repo := owner + "/" + repoName
	if err := r.Q.Converge(ctx, owner, repoName, issueNumber, queue.StatusInBot, false); err != nil {
		_ = store.AddInBotPending(ctx, r.DB, store.InBotPendingRow{
			Repo: repo, IssueNumber: issueNumber, PRNumber: prNumber,
			MergedAt: mergedAt, AttemptedAt: r.now(), AttemptError: err.Error(),
		})
		return
	}
	_ = r.clearTaskFields(ctx, repo, issueNumber)
}

func (r *InBotReconciler) clearTaskFields(ctx context.Context, repo string, issueNumber int) error {
	task, found, err := store.GetTask(ctx, r.DB, repo, issueNumber)
	if err != nil || !found {
		return err
	}
	task.SessionID = ""
	task.WorktreePath = ""
	task.WorkerID = ""
	task.RepoSlot = 0
	task.DaemonID = ""
	task.HeartbeatAt = nil
	task.UpdatedAt = r.now()
	return store.UpsertTask(ctx, r.DB, task)
}

// retryPending re-attempts every pending row for repo, deleting each on
// success and leaving failures in place for the next tick.
func (r *InBotReconciler) retryPending(ctx context.Context, owner, repoName string) error {
	repo := owner + "/" + repoName
	pending, err := store.ListInBotPending(ctx, r.DB, repo)
	if err != nil {
		return fmt.Errorf("reconcile: listing pending in-bot rows for %s: %w", repo, err)
	}
	for _, p := range pending {
		if err := r.Q.Converge(ctx, owner, repoName, p.IssueNumber, queue.StatusInBot, false); err != nil {
			continue
		}
		_ = r.clearTaskFields(ctx, repo, p.IssueNumber)
		if err := store.DeleteInBotPending(ctx, r.DB, p.ID); err != nil {
			return fmt.Errorf("reconcile: deleting resolved pending row %d: %w", p.ID, err)
		}
	}
	return nil
}

func (r *InBotReconciler) mergedSinceForRef(ctx context.Context, owner, repoName, ref string, since time.Time, lastPRNumber int) ([]*github.PullRequest, error) {
	all, err := r.GH.ListMergedPullRequests(ctx, owner, repoName, ref)
	if err != nil {
		return nil, err
	}
	var out []*github.PullRequest
	for _, pr := range all {
		mergedAt := pr.GetMergedAt().Time
		if mergedAt.Before(since) {
			continue
		}
		if mergedAt.Equal(since) && pr.GetNumber() <= lastPRNumber {
			continue
		}
		out = append(out, pr)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].GetMergedAt().Time.After(out[j].GetMergedAt().Time); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}
