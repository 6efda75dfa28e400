package metrics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ralphcore/ralph/internal/store"
)

// Engine drives run/session bookkeeping against the persistent store:
// createRalphRun, recordRalphRunSessionUse, event ingest, and the final
// aggregate-metrics + triage-score writeback.
type Engine struct {
	DB store.DB
}

// CreateRun starts a new run row, returning its ULID.
func (e *Engine) CreateRun(ctx context.Context, repo string, issueNumber int, taskPath, attemptKind string, at time.Time) (string, error) {
	runID := ulid.Make().String()
	run := &store.Run{
		ID: runID, Repo: repo, IssueNumber: issueNumber,
		TaskPath: taskPath, AttemptKind: attemptKind, StartedAt: at,
	}
	if err := store.CreateRun(ctx, e.DB, run); err != nil {
		return "", fmt.Errorf("metrics: creating run: %w", err)
	}
	if err := store.EnsureRunGateRows(ctx, e.DB, runID, repo, issueNumber); err != nil {
		return "", fmt.Errorf("metrics: seeding gate rows: %w", err)
	}
	return runID, nil
}

// RecordSessionUse deduplicates a session's first/last step+agent bookkeeping
// for a run.
func (e *Engine) RecordSessionUse(ctx context.Context, runID, sessionID, step, agent string, at time.Time) error {
	return store.RecordRunSessionUse(ctx, e.DB, runID, sessionID, step, agent, at)
}

// EventStreamPath computes the on-disk path of a session's event stream,
// per spec §6's per-session layout.
func EventStreamPath(sessionsDir, sessionID string) string {
	return strings.TrimRight(sessionsDir, "/") + "/" + sessionID + "/events.jsonl"
}

// IngestSession reads and parses a session's event stream from disk and
// computes its metrics. A missing file is reported via QualityInputs.Missing
// rather than returned as an error, since a missing event stream is a
// quality signal, not a process failure.
func (e *Engine) IngestSession(sessionID, path string, extra QualityInputs) (SessionMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			extra.Missing = true
			return ComputeSessionMetrics(sessionID, nil, 0, string(DeriveQuality(extra))), nil
		}
		return SessionMetrics{}, fmt.Errorf("metrics: opening event stream %s: %w", path, err)
	}
	defer f.Close()

	events, parseErrorCount := ParseEvents(f)
	extra.ParseErrorCount = parseErrorCount
	quality := DeriveQuality(extra)
	return ComputeSessionMetrics(sessionID, events, parseErrorCount, string(quality)), nil
}

// FinalizeRun aggregates a run's session metrics, writes run_metrics and
// per-step metrics, and completes the run row with its outcome.
func (e *Engine) FinalizeRun(ctx context.Context, runID string, sessions []SessionMetrics, tokensComplete bool, triage TriageInputs, outcome store.RunOutcome, detailsJSON string, at time.Time) error {
	agg := AggregateRun(sessions, tokensComplete)
	agg.RunID = runID

	triage.MaxStepWallMs = MaxStepWallMs(sessions)
	triage.Outcome = outcome
	score, reasons := ComputeTriageScore(triage)
	agg.TriageScore = score
	agg.TriageReasons = strings.Join(reasons, ",")

	if err := store.UpsertRunMetrics(ctx, e.DB, &agg); err != nil {
		return fmt.Errorf("metrics: upserting run metrics: %w", err)
	}

	for _, s := range sessions {
		for step, wall := range s.StepWallMs {
			row := &store.RunStepMetrics{RunID: runID, StepName: step, WallMs: wall}
			if err := store.InsertRunStepMetric(ctx, e.DB, row); err != nil {
				return fmt.Errorf("metrics: inserting step metric %s: %w", step, err)
			}
		}
	}

	if err := store.CompleteRun(ctx, e.DB, runID, outcome, detailsJSON, at); err != nil {
		return fmt.Errorf("metrics: completing run: %w", err)
	}
	return nil
}

// RecordSessionTokens persists token accounting for one session.
func (e *Engine) RecordSessionTokens(ctx context.Context, runID, sessionID string, input, output, cache int64, complete bool) error {
	t := &store.RunSessionTokenTotals{
		RunID: runID, SessionID: sessionID,
		InputTokens: input, OutputTokens: output, CacheTokens: cache,
		TokensComplete: complete,
	}
	return store.UpsertRunSessionTokenTotals(ctx, e.DB, t)
}
