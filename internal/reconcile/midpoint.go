package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/queue"
)

// MidpointLabeler is a best-effort reconciler invoked right at PR-merge
// time, ahead of the next cursor-driven reconcile tick: it strips
// in-progress immediately so the issue doesn't sit mislabeled for a full
// cycle, regardless of merge target. The dedicated reconciler for that
// target (DoneReconciler for the base branch, InBotReconciler for the bot
// branch) still runs on its own cadence and sets the real terminal label;
// this only removes the now-stale one. Failures are logged, never
// returned, so a label-write hiccup never fails the PR path that
// triggered it.
type MidpointLabeler struct {
	GH  *ghclient.Client
	Q   *queue.Driver
	Log *slog.Logger
}

func (m *MidpointLabeler) log() *slog.Logger {
	if m.Log != nil {
		return m.Log
	}
	return slog.Default()
}

// OnMerge strips the in-progress status label for issueNumber after its
// task PR merges into target.
func (m *MidpointLabeler) OnMerge(ctx context.Context, owner, repoName string, issueNumber int, target string) {
	repo := owner + "/" + repoName
	labels, nodeID, err := m.Q.CurrentLabels(ctx, owner, repoName, issueNumber)
	if err != nil {
		m.log().Warn("midpoint: reading labels failed", "repo", repo, "issue", issueNumber, "target", target, "error", err)
		return
	}
	if !containsFold(labels, queue.StatusLabel(queue.StatusInProgress)) {
		return
	}
	if err := m.GH.MutateIssueLabels(ctx, owner, repoName, nodeID, nil, []string{queue.StatusLabel(queue.StatusInProgress)}); err != nil {
		m.log().Warn("midpoint: removing in-progress label failed", "repo", repo, "issue", issueNumber, "target", target, "error", err)
	}
}

func containsFold(labels []string, want string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, want) {
			return true
		}
	}
	return false
}
