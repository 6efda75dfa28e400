package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/store"
)

// Driver owns the read-labels -> compute-delta -> mutate-labels -> upsert-task
// sequence that keeps GitHub's label set and the local task row in sync.
type Driver struct {
	GH *ghclient.Client
	DB store.DB
}

// CurrentLabels fetches an issue's current label names and GraphQL node ID.
func (d *Driver) CurrentLabels(ctx context.Context, owner, repo string, issueNumber int) (labels []string, nodeID string, err error) {
	issue, _, err := d.GH.GetIssue(ctx, owner, repo, issueNumber)
	if err != nil {
		return nil, "", err
	}
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	return labels, issue.GetNodeID(), nil
}

// Converge projects labels to a status and, if it doesn't already match
// target, applies the delta both on GitHub and in the task row. It also
// heals a labels set that violates the single-status-label invariant.
func (d *Driver) Converge(ctx context.Context, owner, repo string, issueNumber int, target Status, dependencyBlocked bool) error {
	labels, nodeID, err := d.CurrentLabels(ctx, owner, repo, issueNumber)
	if err != nil {
		return fmt.Errorf("queue: fetching current labels for %s/%s#%d: %w", owner, repo, issueNumber, err)
	}

	effectiveTarget := target
	if NeedsHealing(labels) {
		effectiveTarget = HealTarget(target, dependencyBlocked)
	}

	delta := ComputeDelta(labels, effectiveTarget)
	if len(delta.Add) == 0 && len(delta.Remove) == 0 {
		return nil
	}

	if err := d.GH.MutateIssueLabels(ctx, owner, repo, nodeID, delta.Add, delta.Remove); err != nil {
		return fmt.Errorf("queue: mutating labels for %s/%s#%d: %w", owner, repo, issueNumber, err)
	}

	return d.upsertStatus(ctx, owner, repo, issueNumber, effectiveTarget)
}

// Claim atomically (from the issue's perspective) adds in-progress and
// removes queued, then upserts the task row with worker ownership fields.
// Returns false, nil if the issue is no longer claimable by the time this
// runs (labels changed underneath the caller).
func (d *Driver) Claim(ctx context.Context, owner, repo string, issueNumber int, daemonID, workerID string, repoSlot int) (bool, error) {
	labels, nodeID, err := d.CurrentLabels(ctx, owner, repo, issueNumber)
	if err != nil {
		return false, err
	}
	if !Claimable(labels) {
		return false, nil
	}

	delta := ClaimDelta(labels)
	if err := d.GH.MutateIssueLabels(ctx, owner, repo, nodeID, delta.Add, delta.Remove); err != nil {
		return false, fmt.Errorf("queue: claiming %s/%s#%d: %w", owner, repo, issueNumber, err)
	}

	now := time.Now().UTC()
	task := &store.Task{
		Repo: repo, IssueNumber: issueNumber, Status: store.StatusInProgress,
		DaemonID: daemonID, WorkerID: workerID, RepoSlot: repoSlot,
		HeartbeatAt: &now, CreatedAt: now, UpdatedAt: now,
	}
	if _, err := existingOrNewTask(ctx, d.DB, repo, issueNumber, task); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) upsertStatus(ctx context.Context, owner, repo string, issueNumber int, status Status) error {
	now := time.Now().UTC()
	task, found, err := store.GetTask(ctx, d.DB, repo, issueNumber)
	if err != nil {
		return err
	}
	if !found {
		task = &store.Task{Repo: repo, IssueNumber: issueNumber, CreatedAt: now}
	}
	task.Status = store.TaskStatus(status)
	task.UpdatedAt = now
	return store.UpsertTask(ctx, d.DB, task)
}

func existingOrNewTask(ctx context.Context, db store.DB, repo string, issueNumber int, patch *store.Task) (*store.Task, error) {
	existing, found, err := store.GetTask(ctx, db, repo, issueNumber)
	if err != nil {
		return nil, err
	}
	if !found {
		existing = patch
	} else {
		existing.Status = patch.Status
		existing.DaemonID = patch.DaemonID
		existing.WorkerID = patch.WorkerID
		existing.RepoSlot = patch.RepoSlot
		existing.HeartbeatAt = patch.HeartbeatAt
		existing.UpdatedAt = patch.UpdatedAt
	}
	if err := store.UpsertTask(ctx, db, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// OwnerRepo splits a "owner/name" repo slug.
func OwnerRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("queue: invalid repo slug %q, want owner/name", repo)
	}
	return parts[0], parts[1], nil
}
