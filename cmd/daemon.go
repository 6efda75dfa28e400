package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ralphcore/ralph/internal/agentexec"
	"github.com/ralphcore/ralph/internal/config"
	"github.com/ralphcore/ralph/internal/daemon"
	"github.com/ralphcore/ralph/internal/ghclient"
	"github.com/ralphcore/ralph/internal/metrics"
	"github.com/ralphcore/ralph/internal/notify"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/ralphcore/ralph/internal/reconcile"
	"github.com/ralphcore/ralph/internal/scheduler"
	"github.com/ralphcore/ralph/internal/store"
)

var daemonLogDir string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the long-running ralph daemon",
	Long: `Starts the ralph daemon: registers a canonical daemon record, opens
the persistent store, and runs one worker per configured repo alongside
the reconcile scheduler until interrupted.

Ctrl+C (or SIGTERM) puts the control file into draining mode: in-flight
tasks finish their current stage and return to queued rather than being
killed mid-stage.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&daemonLogDir, "log-dir", "logs",
		"directory to write daemon logs for later inspection")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	closeLog, err := setupDaemonFileLogger(daemonLogDir)
	if err != nil {
		return fmt.Errorf("initialising daemon logger: %w", err)
	}
	defer closeLog()

	if err := config.EnsureDir(); err != nil {
		return fmt.Errorf("preparing config directories: %w", err)
	}

	db, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if capability, schemaVersion, err := store.CheckCapability(ctx, db); err != nil {
		return fmt.Errorf("evaluating schema capability: %w", err)
	} else if capability != store.ReadableWritable {
		return fmt.Errorf("refusing to start: schema_version %d is %s, not readable_writable (run `ralph doctor` for details)", schemaVersion, capability)
	}

	gh, err := ghclient.New(cfg.GitHub)
	if err != nil {
		return fmt.Errorf("initialising github client: %w", err)
	}

	daemonID := fmt.Sprintf("ralph-%d", os.Getpid())
	proc, err := daemon.Register(daemonID, cfg.Daemon.ControlRoot, cfg.Daemon.RalphVersion, os.Args)
	if err != nil {
		return fmt.Errorf("registering daemon record: %w", err)
	}
	go proc.Heartbeat(ctx)

	dispatcher := notify.NewDispatcher(cfg.Notify)

	sched := reconcile.NewScheduler(gh, db, &queue.Driver{GH: gh, DB: db}, cfg.Daemon.Repos, cfg.Daemon.BotBranch, slog.Default())
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting reconcile scheduler: %w", err)
	}
	defer sched.Stop()

	workers := make([]*scheduler.Worker, 0, len(cfg.Daemon.Repos))
	for _, repo := range cfg.Daemon.Repos {
		w := &scheduler.Worker{
			Repo:     repo,
			DaemonID: daemonID,
			Slots:    cfg.Daemon.SlotsPerWorker,
			DB:       db,
			GH:       gh,
			Driver:   &queue.Driver{GH: gh, DB: db},
			Invoker: &agentexec.Invoker{
				Command:     cfg.Daemon.AgentCommand,
				SessionsDir: cfg.Daemon.SessionsDir,
			},
			Candidates: &scheduler.StoreCandidateSource{DB: db},
			Metrics:    &metrics.Engine{DB: db},
			Notifier:   dispatcher,
			Log:        slog.Default(),
		}
		workers = append(workers, w)
		go w.Run(ctx, nil, cfg.Daemon.PollInterval)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println(headerStyle.Render("ralph daemon starting"))
	fmt.Printf("  Daemon ID  : %s\n", daemonID)
	fmt.Printf("  Control    : %s\n", cfg.Daemon.ControlRoot)
	fmt.Printf("  Repos      : %d\n", len(cfg.Daemon.Repos))
	if dispatcher.IsAnyConfigured() {
		fmt.Println(successStyle.Render("  Notify     : configured"))
	} else {
		fmt.Println(dimStyle.Render("  Notify     : no channels configured"))
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop gracefully.")

	<-sigs
	fmt.Println("\nDraining — in-flight tasks will finish their current stage...")
	if err := proc.RequestDrain(); err != nil {
		slog.Warn("requesting drain failed", "error", err)
	}
	for _, w := range workers {
		w.Drain()
	}
	cancel()

	deadline := time.Now().Add(cfg.Daemon.PollInterval * 4)
	for time.Now().Before(deadline) {
		busy := 0
		for _, w := range workers {
			busy += w.Status().SlotsBusy
		}
		if busy == 0 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("ralph daemon stopped.")
	return nil
}

func setupDaemonFileLogger(logDir string) (func(), error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir %s: %w", logDir, err)
	}

	ts := time.Now().UTC().Format("20060102-150405")
	runLogPath := filepath.Join(logDir, fmt.Sprintf("daemon-%s.log", ts))
	runFile, err := os.OpenFile(runLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log file: %w", err)
	}

	latestPath := filepath.Join(logDir, "daemon.log")
	latestFile, err := os.OpenFile(latestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = runFile.Close()
		return nil, fmt.Errorf("opening latest log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, runFile, latestFile), &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler))

	cleanup := func() {
		_ = latestFile.Close()
		_ = runFile.Close()
	}
	return cleanup, nil
}
