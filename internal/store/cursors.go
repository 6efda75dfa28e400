package store

import (
	"context"
	"errors"
	"time"
)

// GetRepoSyncCursor returns the last full issue-sync time for repo, or the
// zero time if no cursor exists yet.
func GetRepoSyncCursor(ctx context.Context, db DB, repo string) (time.Time, error) {
	var c RepoSyncCursor
	err := db.Get(ctx, &c, `SELECT repo, last_sync_at FROM repo_github_issue_sync WHERE repo = ?`, repo)
	if errors.Is(err, ErrNoRows) {
		return time.Time{}, nil
	}
	return c.LastSyncAt, err
}

// AdvanceRepoSyncCursor records the last full issue-sync time for repo.
func AdvanceRepoSyncCursor(ctx context.Context, db DB, repo string, at time.Time) error {
	return db.Upsert(ctx, "repo_github_issue_sync",
		&RepoSyncCursor{Repo: repo, LastSyncAt: at}, []string{"repo"})
}

// GetDoneReconcileCursor returns the done-reconciler cursor for repo.
func GetDoneReconcileCursor(ctx context.Context, db DB, repo string) (DoneReconcileCursor, bool, error) {
	var c DoneReconcileCursor
	err := db.Get(ctx, &c,
		`SELECT repo, last_merged_at, last_pr_number FROM repo_github_done_reconcile_cursor WHERE repo = ?`, repo)
	if errors.Is(err, ErrNoRows) {
		return DoneReconcileCursor{Repo: repo}, false, nil
	}
	return c, true, err
}

// AdvanceDoneReconcileCursor moves the done-reconciler cursor forward. The
// caller is responsible for only calling this after the underlying
// side-effects (label writes, task clears) have committed, and only with a
// strictly non-decreasing (lastMergedAt, lastPrNumber) pair.
func AdvanceDoneReconcileCursor(ctx context.Context, db DB, repo string, lastMergedAt time.Time, lastPRNumber int) error {
	return db.Upsert(ctx, "repo_github_done_reconcile_cursor",
		&DoneReconcileCursor{Repo: repo, LastMergedAt: lastMergedAt, LastPRNumber: lastPRNumber},
		[]string{"repo"})
}

// GetInBotReconcileCursor returns the in-bot-reconciler cursor for repo.
func GetInBotReconcileCursor(ctx context.Context, db DB, repo string) (InBotReconcileCursor, bool, error) {
	var c InBotReconcileCursor
	err := db.Get(ctx, &c,
		`SELECT repo, bot_branch, last_merged_at, last_pr_number FROM repo_github_in_bot_reconcile_cursor WHERE repo = ?`, repo)
	if errors.Is(err, ErrNoRows) {
		return InBotReconcileCursor{Repo: repo}, false, nil
	}
	return c, true, err
}

// AdvanceInBotReconcileCursor moves the in-bot-reconciler cursor forward.
func AdvanceInBotReconcileCursor(ctx context.Context, db DB, repo, botBranch string, lastMergedAt time.Time, lastPRNumber int) error {
	return db.Upsert(ctx, "repo_github_in_bot_reconcile_cursor",
		&InBotReconcileCursor{Repo: repo, BotBranch: botBranch, LastMergedAt: lastMergedAt, LastPRNumber: lastPRNumber},
		[]string{"repo"})
}

// ResetInBotReconcileCursor clears pending rows and resets the cursor when
// the configured bot branch changes underneath an existing cursor.
func ResetInBotReconcileCursor(ctx context.Context, db DB, repo, newBotBranch string, now time.Time) error {
	if err := db.Exec(ctx, `DELETE FROM in_bot_pending WHERE repo = ?`, repo); err != nil {
		return err
	}
	return AdvanceInBotReconcileCursor(ctx, db, repo, newBotBranch, now, 0)
}

// AddInBotPending enqueues a retry-pending label write.
func AddInBotPending(ctx context.Context, db DB, row InBotPendingRow) error {
	_, err := db.Insert(ctx, "in_bot_pending", &row)
	return err
}

// ListInBotPending returns all pending rows for repo, oldest first.
func ListInBotPending(ctx context.Context, db DB, repo string) ([]InBotPendingRow, error) {
	var rows []InBotPendingRow
	err := db.Select(ctx, &rows,
		`SELECT id, repo, issue_number, pr_number, merged_at, attempted_at, attempt_error
		 FROM in_bot_pending WHERE repo = ? ORDER BY id ASC`, repo)
	return rows, err
}

// DeleteInBotPending removes a resolved pending row.
func DeleteInBotPending(ctx context.Context, db DB, id int64) error {
	return db.Exec(ctx, `DELETE FROM in_bot_pending WHERE id = ?`, id)
}

// GetEscalationCheckState returns the comment-poll cadence state for an issue.
func GetEscalationCheckState(ctx context.Context, db DB, repo string, issue int) (EscalationCommentCheckState, bool, error) {
	var s EscalationCommentCheckState
	err := db.Get(ctx, &s, `SELECT repo, issue_number, last_checked_at, last_seen_updated_at,
		last_resolved_comment_id, last_resolved_comment_at
		FROM escalation_comment_check_state WHERE repo = ? AND issue_number = ?`, repo, issue)
	if errors.Is(err, ErrNoRows) {
		return EscalationCommentCheckState{Repo: repo, IssueNumber: issue}, false, nil
	}
	return s, true, err
}

// PutEscalationCheckState upserts the comment-poll cadence state.
func PutEscalationCheckState(ctx context.Context, db DB, s EscalationCommentCheckState) error {
	return db.Upsert(ctx, "escalation_comment_check_state", &s, []string{"repo", "issue_number"})
}

// GetRepoLabelWriteState returns the per-repo label-write circuit breaker state.
func GetRepoLabelWriteState(ctx context.Context, db DB, repo string) (RepoLabelWriteState, error) {
	var s RepoLabelWriteState
	err := db.Get(ctx, &s, `SELECT repo, blocked_until_ms, last_error FROM repo_label_write_state WHERE repo = ?`, repo)
	if errors.Is(err, ErrNoRows) {
		return RepoLabelWriteState{Repo: repo}, nil
	}
	return s, err
}

// PutRepoLabelWriteState upserts the per-repo label-write circuit breaker state.
func PutRepoLabelWriteState(ctx context.Context, db DB, s RepoLabelWriteState) error {
	return db.Upsert(ctx, "repo_label_write_state", &s, []string{"repo"})
}
