package store

import "time"

// TaskStatus is the logical scheduling status of a task, derived from GitHub
// labels by the queue driver (internal/queue).
type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusStarting   TaskStatus = "starting"
	StatusInProgress TaskStatus = "in-progress"
	StatusThrottled  TaskStatus = "throttled"
	StatusBlocked    TaskStatus = "blocked"
	StatusEscalated  TaskStatus = "escalated"
	StatusPaused     TaskStatus = "paused"
	StatusInBot      TaskStatus = "in-bot"
	StatusDone       TaskStatus = "done"
)

// BlockedSource classifies why a task is blocked.
type BlockedSource string

const (
	BlockedDeps        BlockedSource = "deps"
	BlockedAuth        BlockedSource = "auth"
	BlockedCI          BlockedSource = "ci"
	BlockedRateLimit   BlockedSource = "rate-limit"
	BlockedGuardrail   BlockedSource = "guardrail"
	BlockedUnknown     BlockedSource = "unknown"
)

// Task is the logical unit of work keyed by (repo, issue number).
type Task struct {
	ID                 int64      `db:"id"`
	Repo               string     `db:"repo"`
	IssueNumber        int        `db:"issue_number"`
	Status             TaskStatus `db:"status"`
	SessionID          string     `db:"session_id"`
	WorkerID           string     `db:"worker_id"`
	RepoSlot           int        `db:"repo_slot"`
	DaemonID           string     `db:"daemon_id"`
	HeartbeatAt        *time.Time `db:"heartbeat_at"`
	WorktreePath        string    `db:"worktree_path"`
	Checkpoint         string     `db:"checkpoint"`
	CheckpointSeq      int        `db:"checkpoint_seq"`
	PauseRequested     bool       `db:"pause_requested"`
	PausedAtCheckpoint string     `db:"paused_at_checkpoint"`
	BlockedSource      string     `db:"blocked_source"`
	ResumeAt           *time.Time `db:"resume_at"`
	WatchdogRetries    int        `db:"watchdog_retries"`
	TaskPath           string     `db:"task_path"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// IssueSnapshot is the cached view of a GitHub issue's title/state/labels.
type IssueSnapshot struct {
	ID              int64     `db:"id"`
	Repo            string    `db:"repo"`
	IssueNumber     int       `db:"issue_number"`
	Title           string    `db:"title"`
	State           string    `db:"state"`
	URL             string    `db:"url"`
	GithubNodeID    string    `db:"github_node_id"`
	GithubUpdatedAt time.Time `db:"github_updated_at"`
	LabelsJSON      string    `db:"labels_json"`
	FetchedAt       time.Time `db:"fetched_at"`
}

// PRSnapshot records a pull request associated with an issue.
type PRSnapshot struct {
	ID          int64     `db:"id"`
	Repo        string    `db:"repo"`
	IssueRef    int       `db:"issue_ref"`
	PRURL       string    `db:"pr_url"`
	PRNumber    int       `db:"pr_number"`
	State       string    `db:"state"` // open|merged|closed
	BaseRef     string    `db:"base_ref"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// RunOutcome is the terminal result of an agent invocation.
type RunOutcome string

const (
	OutcomeSuccess   RunOutcome = "success"
	OutcomeFailed    RunOutcome = "failed"
	OutcomeCancelled RunOutcome = "cancelled"
	OutcomeThrottled RunOutcome = "throttled"
)

// Run is a single agent invocation.
type Run struct {
	ID           string     `db:"id"` // ULID
	Repo         string     `db:"repo"`
	IssueNumber  int        `db:"issue_number"`
	TaskPath     string     `db:"task_path"`
	AttemptKind  string     `db:"attempt_kind"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	Outcome      string     `db:"outcome"`
	DetailsJSON  string     `db:"details_json"`
}

// RunSession records one agent session used within a run.
type RunSession struct {
	ID          int64     `db:"id"`
	RunID       string    `db:"run_id"`
	SessionID   string    `db:"session_id"`
	FirstStep   string    `db:"first_step"`
	LastStep    string    `db:"last_step"`
	FirstAgent  string    `db:"first_agent"`
	LastAgent   string    `db:"last_agent"`
	FirstSeenAt time.Time `db:"first_seen_at"`
	LastSeenAt  time.Time `db:"last_seen_at"`
}

// RunSessionTokenTotals records token accounting for a session.
type RunSessionTokenTotals struct {
	ID             int64 `db:"id"`
	RunID          string `db:"run_id"`
	SessionID      string `db:"session_id"`
	InputTokens    int64  `db:"input_tokens"`
	OutputTokens   int64  `db:"output_tokens"`
	CacheTokens    int64  `db:"cache_tokens"`
	TokensComplete bool   `db:"tokens_complete"`
}

// GateKind enumerates the fixed set of gates tracked per run.
type GateKind string

const (
	GateCI       GateKind = "ci"
	GateMidpoint GateKind = "midpoint"
	GateChecks   GateKind = "checks"
	GateReview   GateKind = "review"
)

var AllGateKinds = []GateKind{GateCI, GateMidpoint, GateChecks, GateReview}

// GateStatus is the boolean-ish outcome of a gate.
type GateStatus string

const (
	GatePending GateStatus = "pending"
	GatePass    GateStatus = "pass"
	GateFail    GateStatus = "fail"
)

// RunGateResult is one row per (run, gate).
type RunGateResult struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	Repo      string    `db:"repo"`
	IssueNumber int     `db:"issue_number"`
	Gate      string    `db:"gate"`
	Status    string    `db:"status"`
	Detail    string    `db:"detail"`
	UpdatedAt time.Time `db:"updated_at"`
}

// RunGateArtifact stores a failure excerpt for a gate, capped and redacted.
type RunGateArtifact struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	Gate      string    `db:"gate"`
	Kind      string    `db:"kind"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// RunQuality ranks session/run output quality, worst-wins.
type RunQuality string

const (
	QualityOK       RunQuality = "ok"
	QualityPartial  RunQuality = "partial"
	QualityMissing  RunQuality = "missing"
	QualityTooLarge RunQuality = "too_large"
	QualityTimeout  RunQuality = "timeout"
	QualityError    RunQuality = "error"
)

// qualityRank gives the total order used when combining session qualities:
// ok < partial < missing < too_large < timeout < error.
var qualityRank = map[RunQuality]int{
	QualityOK:       0,
	QualityPartial:  1,
	QualityMissing:  2,
	QualityTooLarge: 3,
	QualityTimeout:  4,
	QualityError:    5,
}

// WorstQuality returns whichever of a, b ranks worse.
func WorstQuality(a, b RunQuality) RunQuality {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if qualityRank[b] > qualityRank[a] {
		return b
	}
	return a
}

// RunMetrics holds computed aggregate metrics for a run.
type RunMetrics struct {
	ID               int64   `db:"id"`
	RunID            string  `db:"run_id"`
	WallMs           int64   `db:"wall_ms"`
	ToolMs           int64   `db:"tool_ms"`
	AnomalyCount     int     `db:"anomaly_count"`
	RecentBurstAtEnd bool    `db:"recent_burst_at_end"`
	ParseErrorCount  int     `db:"parse_error_count"`
	Quality          string  `db:"quality"`
	TriageScore      float64 `db:"triage_score"`
	TriageReasons    string  `db:"triage_reasons"`
}

// RunStepMetrics holds per-step wall time within a run.
type RunStepMetrics struct {
	ID       int64  `db:"id"`
	RunID    string `db:"run_id"`
	StepName string `db:"step_name"`
	WallMs   int64  `db:"wall_ms"`
}

// IdempotencyEntry is a claimed key guarding an at-most-once side effect.
type IdempotencyEntry struct {
	Key         string    `db:"key"`
	Scope       string    `db:"scope"`
	CreatedAt   time.Time `db:"created_at"`
	PayloadJSON string    `db:"payload_json"`
}

// RepoSyncCursor tracks the last full issue-sync time for a repo.
type RepoSyncCursor struct {
	Repo       string    `db:"repo"`
	LastSyncAt time.Time `db:"last_sync_at"`
}

// DoneReconcileCursor tracks base-branch merge-reconcile progress.
type DoneReconcileCursor struct {
	Repo          string    `db:"repo"`
	LastMergedAt  time.Time `db:"last_merged_at"`
	LastPRNumber  int       `db:"last_pr_number"`
}

// InBotReconcileCursor tracks bot-branch merge-reconcile progress.
type InBotReconcileCursor struct {
	Repo         string    `db:"repo"`
	BotBranch    string    `db:"bot_branch"`
	LastMergedAt time.Time `db:"last_merged_at"`
	LastPRNumber int       `db:"last_pr_number"`
}

// InBotPendingRow is a retry-pending label write from the in-bot reconciler.
type InBotPendingRow struct {
	ID            int64     `db:"id"`
	Repo          string    `db:"repo"`
	IssueNumber   int       `db:"issue_number"`
	PRNumber      int       `db:"pr_number"`
	MergedAt      time.Time `db:"merged_at"`
	AttemptedAt   time.Time `db:"attempted_at"`
	AttemptError  string    `db:"attempt_error"`
}

// EscalationCommentCheckState tracks escalation comment poll cadence per issue.
type EscalationCommentCheckState struct {
	Repo                  string    `db:"repo"`
	IssueNumber           int       `db:"issue_number"`
	LastCheckedAt         time.Time `db:"last_checked_at"`
	LastSeenUpdatedAt     time.Time `db:"last_seen_updated_at"`
	LastResolvedCommentID int64     `db:"last_resolved_comment_id"`
	LastResolvedCommentAt time.Time `db:"last_resolved_comment_at"`
}

// RepoLabelWriteState is the per-repo label-write circuit breaker state.
type RepoLabelWriteState struct {
	Repo           string `db:"repo"`
	BlockedUntilMs int64  `db:"blocked_until_ms"`
	LastError      string `db:"last_error"`
}

// RollupBatchStatus enumerates a rollup batch's lifecycle.
type RollupBatchStatus string

const (
	RollupOpen     RollupBatchStatus = "open"
	RollupClosed   RollupBatchStatus = "closed"
	RollupRolledUp RollupBatchStatus = "rolledUp"
)

// RollupBatch groups bot-branch PRs awaiting a base-branch rollup PR.
type RollupBatch struct {
	ID            int64  `db:"id"`
	Repo          string `db:"repo"`
	BotBranch     string `db:"bot_branch"`
	BatchSize     int    `db:"batch_size"`
	Status        string `db:"status"`
	RollupPRURL   string `db:"rollup_pr_url"`
	RollupPRNumber int   `db:"rollup_pr_number"`
}

// RollupBatchPR is a child PR merged into a rollup batch.
type RollupBatchPR struct {
	ID            int64     `db:"id"`
	BatchID       int64     `db:"batch_id"`
	PRURL         string    `db:"pr_url"`
	IssueRefsJSON string    `db:"issue_refs_json"`
	MergedAt      time.Time `db:"merged_at"`
}
