package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ralphcore/ralph/internal/config"
	"github.com/ralphcore/ralph/internal/daemon"
	"github.com/ralphcore/ralph/internal/store"
	"github.com/spf13/cobra"
)

var doctorApply bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the daemon control root and report safe repairs",
	Long: `Scans the canonical and managed-legacy control roots for daemon
records, classifies their liveness, and prints the schema_version:1 doctor
JSON report on stdout.

Use --apply to carry out the safe subset of recommended repairs
(quarantining stale/duplicate records) instead of only reporting them.

Exit code is 0 when overall_status is "ok", else 1.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorApply, "apply", false,
		"apply the safe subset of recommended repairs")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	// store.New returns a typed-nil DB alongside a non-nil error on failure;
	// keep db as a literal nil interface in that case so RunDoctor's nil
	// check (rather than a nil-pointer method call) catches it.
	var db store.DB
	if opened, err := store.New(cfg.Database); err == nil {
		db = opened
		defer opened.Close()
	}

	report := daemon.RunDoctor(ctx, db, cfg.Daemon.ControlRoot, cfg.Daemon.ManagedLegacyRoots, doctorApply, time.Now().UTC())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding doctor report: %w", err)
	}

	os.Exit(report.ExitCode())
	return nil
}
