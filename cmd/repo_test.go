package cmd

import (
	"testing"

	"github.com/ralphcore/ralph/internal/config"
)

func withTestHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfgFile = ""
}

func TestRepoAddAppendsNewRepoAndIsIdempotent(t *testing.T) {
	withTestHome(t)

	if err := repoAddCmd.RunE(repoAddCmd, []string{"acme/widgets"}); err != nil {
		t.Fatalf("repo add: %v", err)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if len(cfg.Daemon.Repos) != 1 || cfg.Daemon.Repos[0] != "acme/widgets" {
		t.Fatalf("Repos = %v, want [acme/widgets]", cfg.Daemon.Repos)
	}

	// Adding the same repo again must not duplicate it.
	if err := repoAddCmd.RunE(repoAddCmd, []string{"acme/widgets"}); err != nil {
		t.Fatalf("repo add (repeat): %v", err)
	}
	cfg, err = config.Load(cfgFile)
	if err != nil {
		t.Fatalf("config.Load after repeat add: %v", err)
	}
	if len(cfg.Daemon.Repos) != 1 {
		t.Fatalf("Repos = %v, want still exactly one entry", cfg.Daemon.Repos)
	}
}

func TestRepoAddRejectsMalformedSlug(t *testing.T) {
	withTestHome(t)

	if err := repoAddCmd.RunE(repoAddCmd, []string{"not-a-slug"}); err == nil {
		t.Fatalf("expected an error for a repo slug without an owner/name split")
	}
}

func TestRepoRemoveDropsExistingRepoAndNoopsOnMissing(t *testing.T) {
	withTestHome(t)

	if err := repoAddCmd.RunE(repoAddCmd, []string{"acme/widgets"}); err != nil {
		t.Fatalf("repo add: %v", err)
	}
	if err := repoRemoveCmd.RunE(repoRemoveCmd, []string{"acme/widgets"}); err != nil {
		t.Fatalf("repo remove: %v", err)
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if len(cfg.Daemon.Repos) != 0 {
		t.Fatalf("Repos = %v, want empty after removal", cfg.Daemon.Repos)
	}

	// Removing something never added should be a no-op, not an error.
	if err := repoRemoveCmd.RunE(repoRemoveCmd, []string{"acme/gadgets"}); err != nil {
		t.Fatalf("repo remove (missing): %v", err)
	}
}

func TestRepoListRunsCleanlyWithNoReposConfigured(t *testing.T) {
	withTestHome(t)
	if err := repoListCmd.RunE(repoListCmd, nil); err != nil {
		t.Fatalf("repo list: %v", err)
	}
}
