// Package tunables centralizes the timing constants that drive scheduling,
// retries, and backoff across ralph-core. Keeping them in one place avoids
// the drift that comes from redefining "the heartbeat interval" in three
// different packages with three slightly different values.
package tunables

import "time"

const (
	// HeartbeatInterval is how often a worker refreshes heartbeatAt on its
	// in-progress tasks.
	HeartbeatInterval = 30 * time.Second

	// StaleTaskTTL is how long a task may go without a heartbeat update
	// before it is eligible for stale-claim recovery.
	StaleTaskTTL = 5 * time.Minute

	// CoalesceWindow is the width of the per-issue label-write coalescing
	// window.
	CoalesceWindow = 10 * time.Millisecond

	// RequiredChecksBaseDelay is the initial poll delay for required status
	// checks on an open PR.
	RequiredChecksBaseDelay = 5 * time.Second
	// RequiredChecksMaxDelay caps the required-checks poll backoff.
	RequiredChecksMaxDelay = 5 * time.Minute
	// RequiredChecksMultiplier is applied to the poll delay each tick the
	// check-set signature is unchanged.
	RequiredChecksMultiplier = 1.5

	// TransientBackoffBase and TransientBackoffMax bound the exponential
	// backoff applied to transient GitHub/network errors.
	TransientBackoffBase = 1 * time.Second
	TransientBackoffMax  = 20 * time.Second
	// TransientJitterMax is the maximum jitter added atop the transient
	// backoff delay.
	TransientJitterMax = 400 * time.Millisecond

	// PauseBackoffMin and PauseBackoffMax bound the poll interval while a
	// worker waits for pause_requested to clear.
	PauseBackoffMin = 250 * time.Millisecond
	PauseBackoffMax = 2 * time.Second
	// PauseJitterMax is the maximum jitter added atop the pause poll delay.
	PauseJitterMax = 125 * time.Millisecond

	// InstallationTokenRefreshSkew is how long before expiry an installation
	// token is proactively refreshed.
	InstallationTokenRefreshSkew = 2 * time.Minute
	// InstallationJWTLifetime and InstallationJWTBackdate bound the signed
	// JWT used to mint installation tokens.
	InstallationJWTLifetime = 9 * time.Minute
	InstallationJWTBackdate = 1 * time.Minute

	// EscalationMinCheckInterval is the minimum spacing between comment
	// re-fetches for an escalated issue.
	EscalationMinCheckInterval = 2 * time.Minute

	// GateArtifactCap is the maximum number of artifact rows retained per
	// (runId, gate, kind).
	GateArtifactCap = 10
	// GateArtifactMaxLines is the line cap applied to artifact content after
	// secret redaction.
	GateArtifactMaxLines = 200

	// RecentAnomalyBurstWindow and RecentAnomalyBurstThreshold define
	// recentBurstAtEnd: true iff at least this many anomalies occurred within
	// this window of the run's end.
	RecentAnomalyBurstWindow    = 10 * time.Second
	RecentAnomalyBurstThreshold = 20

	// ParentVerifyCommentScanLimit bounds how many recent comments the
	// parent-verification writeback scans for an existing marker.
	ParentVerifyCommentScanLimit = 100

	// UnknownErrorMaxRetries is how many consecutive unknown-class failures
	// a task tolerates before the claim loop escalates it instead of
	// retrying again.
	UnknownErrorMaxRetries = 3
)

// Triage score weights and normalization caps (internal/metrics). Each
// normalized component is clamped to [0,1] before its weight is applied;
// the six weights sum to 100 so an unflagged run scores 0 and a run maxing
// out every component scores 100 before the failed-with-high-tokens penalty.
const (
	TriageWeightTokens       = 25.0
	TriageWeightToolCalls    = 15.0
	TriageWeightAnomalies    = 20.0
	TriageWeightBurstBonus   = 15.0
	TriageWeightWallHours    = 15.0
	TriageWeightMaxStepWall  = 10.0

	TriageTokenCap           = 200_000
	TriageToolCallCap        = 200
	TriageAnomalyCap         = 50
	TriageWallHoursCap       = 4.0
	TriageMaxStepWallMinCap  = 60.0

	// TriageFailedHighTokenThreshold gates the extra penalty applied when a
	// run's outcome isn't success and it still burned a lot of tokens.
	TriageFailedHighTokenThreshold = 50_000
	TriageFailedHighTokenPenalty   = 20.0
)
