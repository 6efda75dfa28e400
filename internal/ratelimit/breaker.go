package ratelimit

import (
	"context"
	"time"

	"github.com/ralphcore/ralph/internal/store"
)

// LabelWriteBreaker is a per-repo circuit breaker over label writes,
// distinct from the global rate-limit plan because label mutations are the
// most abusive GitHub write path the scheduler has.
type LabelWriteBreaker struct {
	DB store.DB
}

// CanAttempt reports whether a label write may be attempted for repo now.
func (b *LabelWriteBreaker) CanAttempt(ctx context.Context, repo string, now time.Time) (bool, error) {
	state, err := store.GetRepoLabelWriteState(ctx, b.DB, repo)
	if err != nil {
		return false, err
	}
	if state.BlockedUntilMs == 0 {
		return true, nil
	}
	return now.UnixMilli() >= state.BlockedUntilMs, nil
}

// Trip opens the circuit for repo until resumeAt, recording lastErr.
func (b *LabelWriteBreaker) Trip(ctx context.Context, repo string, resumeAt time.Time, lastErr string) error {
	return store.PutRepoLabelWriteState(ctx, b.DB, store.RepoLabelWriteState{
		Repo: repo, BlockedUntilMs: resumeAt.UnixMilli(), LastError: lastErr,
	})
}

// Clear closes the circuit after a successful write.
func (b *LabelWriteBreaker) Clear(ctx context.Context, repo string) error {
	return store.PutRepoLabelWriteState(ctx, b.DB, store.RepoLabelWriteState{Repo: repo, BlockedUntilMs: 0})
}
