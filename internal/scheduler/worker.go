package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/metrics"
	"github.com/ralphcore/ralph/internal/notify"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/ralphcore/ralph/internal/store"
	"github.com/ralphcore/ralph/internal/tunables"
)

// Notifier is the subset of notify.Dispatcher the worker needs; nil means
// no notifications are sent.
type Notifier interface {
	Notify(ctx context.Context, evt notify.Event)
}

// Candidate is a queued issue eligible for claiming, projected from an issue
// label snapshot (or fetched directly from GitHub when no snapshot exists).
type Candidate struct {
	Repo        string
	IssueNumber int
	TaskPath    string
}

// CandidateSource refreshes the set of currently-claimable issues for a
// repo. Implementations typically read internal/store's issue-snapshot
// cache and fall back to a direct GitHub fetch when the cache is cold.
type CandidateSource interface {
	Candidates(ctx context.Context, repo string) ([]Candidate, error)
}

// Worker owns one repo's concurrent claim slots: it polls for claimable
// issues, drives each claimed task through the stage pipeline under
// guardrail supervision, and classifies failures into retry/block/escalate
// transitions.
type Worker struct {
	Repo       string
	DaemonID   string
	Slots      int
	DB         store.DB
	GH         *ghclient.Client
	Driver     *queue.Driver
	Invoker    AgentInvoker
	Candidates CandidateSource
	Metrics    *metrics.Engine
	Notifier   Notifier
	Log        *slog.Logger

	mu       sync.Mutex
	inFlight map[int]struct{} // issue numbers currently occupying a slot
	draining bool
}

// WorkerStatus is a point-in-time snapshot of one worker's load, surfaced by
// the doctor report.
type WorkerStatus struct {
	Repo       string
	SlotsTotal int
	SlotsBusy  int
	Draining   bool
}

func (w *Worker) log() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

// Status reports the worker's current slot occupancy.
func (w *Worker) Status() WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerStatus{Repo: w.Repo, SlotsTotal: w.Slots, SlotsBusy: len(w.inFlight), Draining: w.draining}
}

// Drain marks the worker as draining: it finishes in-flight tasks but
// claims no new ones. Callers poll Status until SlotsBusy reaches zero.
func (w *Worker) Drain() {
	w.mu.Lock()
	w.draining = true
	w.mu.Unlock()
}

func (w *Worker) freeSlots() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draining {
		return 0
	}
	return w.Slots - len(w.inFlight)
}

func (w *Worker) occupy(issueNumber int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draining || len(w.inFlight) >= w.Slots {
		return false
	}
	if w.inFlight == nil {
		w.inFlight = make(map[int]struct{})
	}
	w.inFlight[issueNumber] = struct{}{}
	return true
}

func (w *Worker) release(issueNumber int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, issueNumber)
}

// Run drives the claim loop until ctx is cancelled. poll fires an
// immediate tick in addition to the tunables.PollInterval-cadenced one, so
// external triggers (a webhook, a manual "check now") don't wait out a full
// tick.
func (w *Worker) Run(ctx context.Context, poll <-chan struct{}, pollInterval time.Duration) {
	w.recoverStaleAtStartup(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	heartbeat := time.NewTicker(tunables.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		case <-poll:
			w.tick(ctx)
		case <-heartbeat.C:
			w.touchHeartbeats(ctx)
		}
	}
}

func (w *Worker) touchHeartbeats(ctx context.Context) {
	if _, err := store.TouchHeartbeat(ctx, w.DB, w.DaemonID, w.Repo, time.Now().UTC()); err != nil {
		w.log().Warn("heartbeat update failed", "repo", w.Repo, "error", err)
	}
}

// recoverStaleAtStartup resets every task this daemon owns that is still
// marked in-progress: a restart means no live goroutine can be updating its
// heartbeat, regardless of the heartbeat's recorded age.
func (w *Worker) recoverStaleAtStartup(ctx context.Context) {
	n, err := store.RecoverAllInProgressAtStartup(ctx, w.DB, w.DaemonID)
	if err != nil {
		w.log().Error("startup stale-task recovery failed", "repo", w.Repo, "error", err)
		return
	}
	if n > 0 {
		w.log().Info("recovered stale in-progress tasks at startup", "repo", w.Repo, "count", n)
	}
}

func (w *Worker) tick(ctx context.Context) {
	free := w.freeSlots()
	if free <= 0 {
		return
	}

	candidates, err := w.Candidates.Candidates(ctx, w.Repo)
	if err != nil {
		w.log().Warn("refreshing candidates failed", "repo", w.Repo, "error", err)
		return
	}

	for _, c := range candidates {
		if free <= 0 {
			return
		}
		if !w.occupy(c.IssueNumber) {
			continue
		}
		free--
		go w.runTask(ctx, c)
	}
}

func (w *Worker) runTask(ctx context.Context, c Candidate) {
	defer w.release(c.IssueNumber)

	owner, name, err := queue.OwnerRepo(w.Repo)
	if err != nil {
		w.log().Error("invalid repo slug", "repo", w.Repo, "error", err)
		return
	}

	slot := w.slotIndex(c.IssueNumber)
	claimed, err := w.Driver.Claim(ctx, owner, name, c.IssueNumber, w.DaemonID, workerID(w.Repo), slot)
	if err != nil {
		w.log().Warn("claim failed", "repo", w.Repo, "issue", c.IssueNumber, "error", err)
		return
	}
	if !claimed {
		return // lost the race, or no longer claimable
	}

	runID, err := w.Metrics.CreateRun(ctx, w.Repo, c.IssueNumber, c.TaskPath, "scheduled", time.Now().UTC())
	if err != nil {
		w.log().Error("creating run row failed", "repo", w.Repo, "issue", c.IssueNumber, "error", err)
		return
	}

	outcome, detail := w.runPipeline(ctx, c, runID)

	if err := store.CompleteRun(ctx, w.DB, runID, outcome, detail, time.Now().UTC()); err != nil {
		w.log().Error("completing run row failed", "run", runID, "error", err)
	}

	target := queue.StatusDone
	if outcome != store.OutcomeSuccess {
		target = queue.StatusQueued
	}
	if err := w.Driver.Converge(ctx, owner, name, c.IssueNumber, target, false); err != nil {
		w.log().Warn("post-run label converge failed", "repo", w.Repo, "issue", c.IssueNumber, "error", err)
	}
}

// runPipeline drives a claimed task through DefaultStages, retrying
// context-exhausted stages via compaction and handling a guardrail kill as
// a terminal failure for this run. It returns the run's terminal outcome
// and a short JSON-ish detail string recorded alongside it.
func (w *Worker) runPipeline(ctx context.Context, c Candidate, runID string) (store.RunOutcome, string) {
	task, found, err := store.GetTask(ctx, w.DB, c.Repo, c.IssueNumber)
	if err != nil {
		return store.OutcomeFailed, fmt.Sprintf("{\"error\":%q}", err.Error())
	}
	if !found {
		// Driver.Claim always upserts the task row on a successful claim, so
		// this only happens if the row was deleted concurrently.
		return store.OutcomeFailed, `{"error":"task row missing after claim"}`
	}

	sessionID := task.SessionID
	checkpointSeq := task.CheckpointSeq
	unknownRetries := 0

	for _, stage := range DefaultStages() {
		key := StepKey(c.TaskPath, stage.Name, checkpointSeq)
		claimed, err := store.Claim(ctx, w.DB, "scheduler:step:"+key, "stage")
		if err != nil {
			return store.OutcomeFailed, fmt.Sprintf("{\"error\":%q}", err.Error())
		}
		if !claimed {
			// already executed (worker restarted mid-stage); move on.
			checkpointSeq++
			continue
		}

		req := InvokeRequest{
			TaskPath:  c.TaskPath,
			Stage:     stage.Name,
			StepKey:   key,
			Message:   stage.Message,
			SessionID: sessionID,
			Guardrail: GuardrailSpec{WallSoftMs: 0, WallHardMs: 0},
		}

		result, err := Supervise(ctx, w.Invoker, req)
		if err != nil {
			cls := Classify(err.Error())
			if err := store.Delete(ctx, w.DB, "scheduler:step:"+key); err != nil {
				w.log().Warn("releasing failed step claim", "key", key, "error", err)
			}
			return w.handleFailure(ctx, c, task, cls, err.Error())
		}

		switch result.Outcome {
		case OutcomeOK:
			sessionID = result.SessionID
			checkpointSeq++
		case OutcomeContextExhausted:
			resumed, cerr := w.Invoker.Compact(ctx, sessionID)
			if cerr != nil {
				return w.handleFailure(ctx, c, task, Classification{Class: ErrorUnknown}, cerr.Error())
			}
			sessionID = resumed
			// retry the same stage under the compacted session without
			// advancing checkpointSeq; release the claim so it can be
			// reclaimed after the compaction retry.
			if err := store.Delete(ctx, w.DB, "scheduler:step:"+key); err != nil {
				w.log().Warn("releasing compaction retry claim", "key", key, "error", err)
			}
		case OutcomeGuardrailKilled:
			if w.Notifier != nil {
				w.Notifier.Notify(ctx, notify.Event{
					Type:     "guardrail_kill",
					Title:    fmt.Sprintf("%s#%d killed by guardrail", c.Repo, c.IssueNumber),
					Body:     result.GuardrailReason,
					URL:      notify.IssueURL(c.Repo, c.IssueNumber),
					Severity: "high",
					RepoKey:  c.Repo,
					Metadata: map[string]any{"issueNumber": c.IssueNumber, "guardrailKind": result.GuardrailKind},
				})
			}
			return store.OutcomeFailed, fmt.Sprintf("{\"guardrail_kind\":%q,\"guardrail_reason\":%q}", result.GuardrailKind, result.GuardrailReason)
		case OutcomeFailed:
			cls := Classify(result.ErrorText)
			if cls.Class == ErrorUnknown {
				unknownRetries++
				if unknownRetries > tunables.UnknownErrorMaxRetries {
					return store.OutcomeFailed, fmt.Sprintf("{\"escalated\":true,\"error\":%q}", result.ErrorText)
				}
			}
			return w.handleFailure(ctx, c, task, cls, result.ErrorText)
		}

		task.SessionID = sessionID
		task.Checkpoint = stage.Name
		task.CheckpointSeq = checkpointSeq
		task.UpdatedAt = time.Now().UTC()
		if err := store.UpsertTask(ctx, w.DB, task); err != nil {
			w.log().Warn("checkpoint persist failed", "task", c.TaskPath, "error", err)
		}
	}

	return store.OutcomeSuccess, ""
}

// handleFailure maps a classified error onto the task's operational state
// and returns the run's terminal outcome/detail.
func (w *Worker) handleFailure(ctx context.Context, c Candidate, task *store.Task, cls Classification, errText string) (store.RunOutcome, string) {
	switch cls.Class {
	case ErrorNonRetriable:
		task.Status = store.StatusBlocked
		task.BlockedSource = string(cls.BlockedSource)
		w.notifyBlocked(ctx, c, cls, errText)
	case ErrorRateLimit:
		task.Status = store.StatusThrottled
		resume := time.Now().UTC().Add(tunables.TransientBackoffMax)
		task.ResumeAt = &resume
	case ErrorTransient:
		task.Status = store.StatusQueued
	default:
		task.Status = store.StatusQueued
	}
	task.UpdatedAt = time.Now().UTC()
	if err := store.UpsertTask(ctx, w.DB, task); err != nil {
		w.log().Warn("failure-state persist failed", "task", c.TaskPath, "error", err)
	}
	return store.OutcomeFailed, fmt.Sprintf("{\"class\":%q,\"error\":%q}", cls.Class, errText)
}

// notifyBlocked fans out a task_blocked event when a non-retriable failure
// hands an issue to an operator. A missing Notifier is normal (no channels
// configured) and silently skipped.
func (w *Worker) notifyBlocked(ctx context.Context, c Candidate, cls Classification, errText string) {
	if w.Notifier == nil {
		return
	}
	w.Notifier.Notify(ctx, notify.Event{
		Type:     "task_blocked",
		Title:    fmt.Sprintf("%s#%d blocked", c.Repo, c.IssueNumber),
		Body:     errText,
		URL:      notify.IssueURL(c.Repo, c.IssueNumber),
		Severity: "high",
		RepoKey:  c.Repo,
		Metadata: map[string]any{"issueNumber": c.IssueNumber, "blockedSource": string(cls.BlockedSource)},
	})
}

// slotIndex picks a stable repo-local slot number for this issue among the
// worker's configured concurrency, used only for diagnostics (it's not a
// mutex; Driver.Claim is the actual ownership gate).
func (w *Worker) slotIndex(issueNumber int) int {
	if w.Slots <= 0 {
		return 0
	}
	return issueNumber % w.Slots
}

func workerID(repo string) string {
	return repo + "-" + ulid.Make().String()[:8]
}
