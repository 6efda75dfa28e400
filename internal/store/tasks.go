package store

import (
	"context"
	"errors"
	"time"
)

// GetTask returns the task row for (repo, issueNumber), if any.
func GetTask(ctx context.Context, db DB, repo string, issueNumber int) (*Task, bool, error) {
	var t Task
	err := db.Get(ctx, &t, `SELECT id, repo, issue_number, status, session_id, worker_id, repo_slot,
		daemon_id, heartbeat_at, worktree_path, checkpoint, checkpoint_seq, pause_requested,
		paused_at_checkpoint, blocked_source, resume_at, watchdog_retries, task_path, created_at, updated_at
		FROM tasks WHERE repo = ? AND issue_number = ?`, repo, issueNumber)
	if errors.Is(err, ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &t, true, nil
}

// UpsertTask inserts or updates the task row for (repo, issueNumber).
// Fields set to their zero value in patch ARE written (explicit-empty is
// distinct from absence) — callers should read-modify-write the full row
// rather than pass partial patches, matching the task-row update contract
// in spec §4.D.
func UpsertTask(ctx context.Context, db DB, t *Task) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	return db.Upsert(ctx, "tasks", t, []string{"repo", "issue_number"})
}

// ListTasksByStatus returns all tasks with the given status.
func ListTasksByStatus(ctx context.Context, db DB, status TaskStatus) ([]Task, error) {
	var rows []Task
	err := db.Select(ctx, &rows, `SELECT id, repo, issue_number, status, session_id, worker_id, repo_slot,
		daemon_id, heartbeat_at, worktree_path, checkpoint, checkpoint_seq, pause_requested,
		paused_at_checkpoint, blocked_source, resume_at, watchdog_retries, task_path, created_at, updated_at
		FROM tasks WHERE status = ?`, string(status))
	return rows, err
}

// ListStaleInProgressTasks returns in-progress tasks whose heartbeat is
// older than cutoff — candidates for stale-claim recovery or, at process
// startup, for unconditional recovery regardless of heartbeat age.
func ListStaleInProgressTasks(ctx context.Context, db DB, cutoff time.Time) ([]Task, error) {
	var rows []Task
	err := db.Select(ctx, &rows, `SELECT id, repo, issue_number, status, session_id, worker_id, repo_slot,
		daemon_id, heartbeat_at, worktree_path, checkpoint, checkpoint_seq, pause_requested,
		paused_at_checkpoint, blocked_source, resume_at, watchdog_retries, task_path, created_at, updated_at
		FROM tasks WHERE status = 'in-progress' AND (heartbeat_at IS NULL OR heartbeat_at < ?)`,
		cutoff.UTC().Format(time.RFC3339Nano))
	return rows, err
}

// RecoverStaleTask resets a stale in-progress task back to queued and clears
// its operational fields.
func RecoverStaleTask(ctx context.Context, db DB, repo string, issueNumber int) error {
	return db.Exec(ctx, `UPDATE tasks SET status = 'queued', session_id = '', worker_id = '',
		repo_slot = 0, daemon_id = '', heartbeat_at = NULL, checkpoint = '', checkpoint_seq = 0,
		pause_requested = 0, paused_at_checkpoint = '', watchdog_retries = watchdog_retries + 1,
		updated_at = ?
		WHERE repo = ? AND issue_number = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), repo, issueNumber)
}

// RecoverAllInProgressAtStartup resets every in-progress task unconditionally
// to queued. Mirrors the orchestrator's startup recovery UPDATE: any task
// still marked in-progress when this process starts cannot have a live
// heartbeat from this daemon, because this daemon just started.
func RecoverAllInProgressAtStartup(ctx context.Context, db DB, daemonID string) (int64, error) {
	return db.ExecResult(ctx, `UPDATE tasks SET status = 'queued', session_id = '', worker_id = '',
		repo_slot = 0, daemon_id = '', heartbeat_at = NULL, checkpoint = '', checkpoint_seq = 0,
		pause_requested = 0, paused_at_checkpoint = '', watchdog_retries = watchdog_retries + 1,
		updated_at = ?
		WHERE status = 'in-progress' AND daemon_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), daemonID)
}

// TouchHeartbeat refreshes heartbeat_at for all in-progress tasks owned by
// (daemonID, workerID).
func TouchHeartbeat(ctx context.Context, db DB, daemonID, workerID string, at time.Time) (int64, error) {
	return db.ExecResult(ctx, `UPDATE tasks SET heartbeat_at = ? WHERE status = 'in-progress'
		AND daemon_id = ? AND worker_id = ?`, at.UTC().Format(time.RFC3339Nano), daemonID, workerID)
}
