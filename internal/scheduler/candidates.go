package scheduler

import (
	"context"

	"github.com/ralphcore/ralph/internal/store"
)

// StoreCandidateSource projects claimable candidates straight from the
// local task table: any row already converged to StatusQueued by the queue
// driver is claimable, whether that convergence came from a label-snapshot
// poll or a reconciler's post-run delta.
type StoreCandidateSource struct {
	DB store.DB
}

var _ CandidateSource = (*StoreCandidateSource)(nil)

// Candidates lists every queued task for repo, oldest-updated first.
func (s *StoreCandidateSource) Candidates(ctx context.Context, repo string) ([]Candidate, error) {
	tasks, err := store.ListTasksByStatus(ctx, s.DB, store.StatusQueued)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(tasks))
	for _, t := range tasks {
		if t.Repo != repo {
			continue
		}
		candidates = append(candidates, Candidate{Repo: t.Repo, IssueNumber: t.IssueNumber, TaskPath: t.TaskPath})
	}
	return candidates, nil
}
