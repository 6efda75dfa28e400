package cmd

import (
	"fmt"

	"github.com/ralphcore/ralph/internal/config"
	"github.com/ralphcore/ralph/internal/queue"
	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage the repositories this daemon schedules work for",
	Long:  `Add, remove, and list the "owner/name" repos in daemon.repos.`,
}

var repoAddCmd = &cobra.Command{
	Use:   "add <owner/repo>",
	Short: "Add a repository to the scheduled set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if _, _, err := queue.OwnerRepo(target); err != nil {
			return fmt.Errorf("invalid repo %q: %w", target, err)
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		for _, r := range cfg.Daemon.Repos {
			if r == target {
				fmt.Printf("%s is already scheduled\n", target)
				return nil
			}
		}
		cfg.Daemon.Repos = append(cfg.Daemon.Repos, target)
		cfgPath, _ := config.ConfigPath(cfgFile)
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("Added %s\n", target)
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <owner/repo>",
	Short: "Remove a repository from the scheduled set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		target := args[0]
		newList := make([]string, 0, len(cfg.Daemon.Repos))
		found := false
		for _, r := range cfg.Daemon.Repos {
			if r == target {
				found = true
				continue
			}
			newList = append(newList, r)
		}
		if !found {
			fmt.Printf("%s is not scheduled\n", target)
			return nil
		}
		cfg.Daemon.Repos = newList
		cfgPath, _ := config.ConfigPath(cfgFile)
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", target)
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all scheduled repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if len(cfg.Daemon.Repos) == 0 {
			fmt.Println("No repos scheduled. Add one with: ralph repo add <owner/repo>")
			return nil
		}
		fmt.Println("Scheduled repos:")
		for _, r := range cfg.Daemon.Repos {
			fmt.Printf("  - %s\n", r)
		}
		return nil
	},
}

func init() {
	repoCmd.AddCommand(repoAddCmd, repoRemoveCmd, repoListCmd)
}
