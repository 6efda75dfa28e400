package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Autonomous task orchestrator driving AI coding agents against GitHub issues",
	Long: `ralph is a long-running daemon that treats GitHub issues as a work
queue: labels encode scheduling state, a worker claims eligible issues,
spawns an external coding-agent subprocess per claim, and reconciles
outcomes back onto GitHub as pull requests merge.

Get started:
  ralph config show   Print the current configuration
  ralph repo add       Add a repo to the scheduled set
  ralph doctor         Diagnose the daemon control root
  ralph daemon         Start the persistent daemon`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.ralph/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		daemonCmd,
		repoCmd,
		configCmd,
		doctorCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}
