package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/ralphcore/ralph/internal/store"
)

// Scheduler runs every reconciler for every configured repo on a cron
// cadence, mirroring the teacher gateway's cron-registration shape: each
// reconciler is one cron.AddFunc entry, logged and swallowed on error so
// one repo's failure never stops the others' next tick.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger

	done        *DoneReconciler
	inBot       *InBotReconciler
	escalations *EscalationResolver
	repos       []string
	botBranch   string
}

// NewScheduler wires one Scheduler for all the repos this daemon manages.
func NewScheduler(gh *ghclient.Client, db store.DB, q *queue.Driver, repos []string, botBranch string, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:        cron.New(),
		log:         log,
		done:        &DoneReconciler{GH: gh, DB: db, Q: q},
		inBot:       &InBotReconciler{GH: gh, DB: db, Q: q},
		escalations: &EscalationResolver{GH: gh, DB: db, Q: q},
		repos:       repos,
		botBranch:   botBranch,
	}
}

// Start registers the reconcile passes and starts the cron runner. Each
// reconciler kind gets its own cadence: merge-watching reconcilers run
// often (they're cheap, cursor-bounded); escalation resolution runs less
// often since tunables.EscalationMinCheckInterval already rate-limits it
// per-issue.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.runMergeReconcilers); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 2m", s.runEscalationResolver); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("reconcile scheduler started", "repos", len(s.repos))
	return nil
}

// Stop halts the cron runner, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runMergeReconcilers() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	for _, repo := range s.repos {
		owner, name, err := queue.OwnerRepo(repo)
		if err != nil {
			s.log.Warn("reconcile: skipping invalid repo slug", "repo", repo, "error", err)
			continue
		}
		base, err := s.done.GH.DefaultBranch(ctx, owner, name)
		if err != nil {
			s.log.Warn("reconcile: fetching default branch failed", "repo", repo, "error", err)
			continue
		}
		if err := s.done.Run(ctx, owner, name, base); err != nil {
			s.log.Warn("done reconciler failed", "repo", repo, "error", err)
		}
		if err := s.inBot.Run(ctx, owner, name, s.botBranch); err != nil {
			s.log.Warn("in-bot reconciler failed", "repo", repo, "error", err)
		}
	}
}

func (s *Scheduler) runEscalationResolver() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	for _, repo := range s.repos {
		owner, name, err := queue.OwnerRepo(repo)
		if err != nil {
			continue
		}
		escalated, err := store.ListTasksByStatus(ctx, s.escalations.DB, store.StatusEscalated)
		if err != nil {
			s.log.Warn("listing escalated tasks failed", "repo", repo, "error", err)
			continue
		}
		for _, t := range escalated {
			if t.Repo != repo {
				continue
			}
			issue, _, err := s.escalations.GH.GetIssue(ctx, owner, name, t.IssueNumber)
			if err != nil {
				s.log.Warn("fetching escalated issue failed", "repo", repo, "issue", t.IssueNumber, "error", err)
				continue
			}
			if err := s.escalations.Resolve(ctx, owner, name, t.IssueNumber, issue.GetUpdatedAt().Time); err != nil {
				s.log.Warn("escalation resolve failed", "repo", repo, "issue", t.IssueNumber, "error", err)
			}
		}
	}
}
