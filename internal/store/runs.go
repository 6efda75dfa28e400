package store

import (
	"context"
	"errors"
	"time"
)

// CreateRun inserts a new run row.
func CreateRun(ctx context.Context, db DB, r *Run) error {
	_, err := db.Insert(ctx, "runs", r)
	return err
}

// CompleteRun marks a run terminal with its outcome and detail payload.
func CompleteRun(ctx context.Context, db DB, runID string, outcome RunOutcome, detailsJSON string, at time.Time) error {
	return db.Exec(ctx, `UPDATE runs SET completed_at = ?, outcome = ?, details_json = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), string(outcome), detailsJSON, runID)
}

// RecordRunSessionUse upserts a session's first/last step+agent bookkeeping
// for a run, deduplicating repeated events for the same session.
func RecordRunSessionUse(ctx context.Context, db DB, runID, sessionID, step, agent string, at time.Time) error {
	var existing RunSession
	err := db.Get(ctx, &existing,
		`SELECT id, run_id, session_id, first_step, last_step, first_agent, last_agent, first_seen_at, last_seen_at
		 FROM run_sessions WHERE run_id = ? AND session_id = ?`, runID, sessionID)
	if errors.Is(err, ErrNoRows) {
		return db.Exec(ctx, `INSERT INTO run_sessions
			(run_id, session_id, first_step, last_step, first_agent, last_agent, first_seen_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, sessionID, step, step, agent, agent,
			at.UTC().Format(time.RFC3339Nano), at.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		return err
	}
	lastStep, lastAgent := existing.LastStep, existing.LastAgent
	if step != "" {
		lastStep = step
	}
	if agent != "" {
		lastAgent = agent
	}
	return db.Exec(ctx, `UPDATE run_sessions SET last_step = ?, last_agent = ?, last_seen_at = ?
		WHERE run_id = ? AND session_id = ?`, lastStep, lastAgent, at.UTC().Format(time.RFC3339Nano), runID, sessionID)
}

// EnsureRunGateRows creates one pending row per gate in AllGateKinds for a
// run, if not already present.
func EnsureRunGateRows(ctx context.Context, db DB, runID, repo string, issueNumber int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, gate := range AllGateKinds {
		row := RunGateResult{
			RunID: runID, Repo: repo, IssueNumber: issueNumber,
			Gate: string(gate), Status: string(GatePending), UpdatedAt: time.Now().UTC(),
		}
		_, err := db.ExecResult(ctx, `INSERT OR IGNORE INTO run_gate_results
			(run_id, repo, issue_number, gate, status, detail, updated_at) VALUES (?, ?, ?, ?, ?, '', ?)`,
			row.RunID, row.Repo, row.IssueNumber, row.Gate, row.Status, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpsertRunGateResult updates only the provided fields for (runID, gate),
// never clobbering the other gate rows and never resetting an already-set
// status/detail to empty unless explicitly asked to.
func UpsertRunGateResult(ctx context.Context, db DB, runID string, gate GateKind, status GateStatus, detail string) error {
	return db.Exec(ctx, `UPDATE run_gate_results SET status = ?, detail = ?, updated_at = ?
		WHERE run_id = ? AND gate = ?`,
		string(status), detail, time.Now().UTC().Format(time.RFC3339Nano), runID, string(gate))
}

// LatestGateResultsForIssue returns, for each gate, the most-recently-updated
// row for that issue, tie-broken by highest run_id.
func LatestGateResultsForIssue(ctx context.Context, db DB, repo string, issueNumber int) (map[GateKind]RunGateResult, error) {
	var rows []RunGateResult
	err := db.Select(ctx, &rows, `SELECT id, run_id, repo, issue_number, gate, status, detail, updated_at
		FROM run_gate_results WHERE repo = ? AND issue_number = ? ORDER BY updated_at ASC, run_id ASC`,
		repo, issueNumber)
	if err != nil {
		return nil, err
	}
	out := map[GateKind]RunGateResult{}
	for _, r := range rows {
		out[GateKind(r.Gate)] = r // later rows (later ORDER BY) overwrite earlier ones
	}
	return out, nil
}

// UpsertRunMetrics writes the computed aggregate metrics for a run.
func UpsertRunMetrics(ctx context.Context, db DB, m *RunMetrics) error {
	return db.Upsert(ctx, "run_metrics", m, []string{"run_id"})
}

// InsertRunStepMetric records one step's wall time.
func InsertRunStepMetric(ctx context.Context, db DB, m *RunStepMetrics) error {
	_, err := db.Insert(ctx, "run_step_metrics", m)
	return err
}

// UpsertRunSessionTokenTotals records per-session token accounting.
func UpsertRunSessionTokenTotals(ctx context.Context, db DB, t *RunSessionTokenTotals) error {
	return db.Upsert(ctx, "run_session_token_totals", t, []string{"run_id", "session_id"})
}
