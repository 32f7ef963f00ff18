package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"taskmap/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View or scaffold taskmap configuration.

Configuration is read from ~/.config/taskmap/config.yaml, overridden by
a project-level .taskmap.yaml and TASKMAP_* environment variables.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		fmt.Printf("agent.binary: %s\n", cfg.Agent.Binary)
		fmt.Printf("agent.args: %s\n", strings.Join(cfg.Agent.Args, " "))
		fmt.Printf("git.branch_pattern: %s\n", cfg.Git.BranchPattern)
		fmt.Printf("git.pr_title_pattern: %s\n", cfg.Git.PRTitlePattern)
		fmt.Printf("git.base_branch: %s\n", cfg.Git.BaseBranch)
		fmt.Printf("git.auto_create_pr: %t\n", cfg.Git.AutoCreatePR)
		fmt.Printf("workspace.root: %s\n", cfg.Workspace.Root)
		fmt.Printf("execution.max_parallel_sessions: %d\n", cfg.Execution.MaxParallelSessions)
		fmt.Printf("execution.session_timeout: %s\n", cfg.Execution.SessionTimeout)
		fmt.Printf("execution.retry_backoff_attempts: %d\n", cfg.Execution.RetryBackoffAttempts)
		fmt.Printf("execution.retry_fixed_attempts: %d\n", cfg.Execution.RetryFixedAttempts)

		if project := config.GetProjectConfigPath(); project != "" {
			fmt.Printf("\nproject config: %s\n", project)
		}
		fmt.Printf("user config: %s\n", config.GetUserConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetUserConfigPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
