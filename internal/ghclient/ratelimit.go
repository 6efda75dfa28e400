package ghclient

import "time"

// RateLimitSnapshot tags a RateLimitPlan with the kind of condition that
// produced it, per spec §4.B/§4.I's `{resumeAt, snapshot{kind:...}}` shape.
type RateLimitSnapshot struct {
	Kind string
}

// RateLimitSnapshotKindGitHub is the only snapshot kind ralph-core derives
// today: a GitHub-reported primary or secondary rate limit.
const RateLimitSnapshotKindGitHub = "github-rate-limit"

// RateLimitPlan is the scheduler-facing verdict for whether a request should
// proceed now, and if not, when to retry.
type RateLimitPlan struct {
	Throttled bool
	ResumeAt  time.Time
	Snapshot  RateLimitSnapshot
}

// DeriveRateLimitPlan inspects a classified error for rate-limit signals.
// Primary-limit responses carry resume timestamps in response headers;
// secondary (abuse) limits often only embed a "timestamp ... UTC" string in
// the error body, which Classify already extracts into ResumeAtTs.
func DeriveRateLimitPlan(err error) RateLimitPlan {
	apiErr := Classify(err)
	if apiErr == nil || apiErr.Code != ErrRateLimit {
		return RateLimitPlan{}
	}
	snapshot := RateLimitSnapshot{Kind: RateLimitSnapshotKindGitHub}
	if apiErr.ResumeAtTs != nil {
		return RateLimitPlan{Throttled: true, ResumeAt: *apiErr.ResumeAtTs, Snapshot: snapshot}
	}
	// No timestamp could be recovered; fall back to a short fixed delay so
	// the scheduler doesn't spin-retry immediately.
	return RateLimitPlan{Throttled: true, ResumeAt: time.Now().UTC().Add(1 * time.Minute), Snapshot: snapshot}
}
