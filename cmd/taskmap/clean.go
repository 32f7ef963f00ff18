package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskmap/internal/exec"
	"taskmap/internal/session"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove worktrees and branches of finished sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		runner := session.NewRunner(db, exec.NewRunner(), cwd)

		tasks, err := db.ListTasks()
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		ctx := context.Background()
		cleaned := 0
		for _, t := range tasks {
			sessions, err := db.ListSessionsForTask(t.ID)
			if err != nil {
				return fmt.Errorf("list sessions for %s: %w", t.ID, err)
			}
			for i := range sessions {
				sess := &sessions[i]
				if !sess.Status.Terminal() || sess.WorkspacePath == "" {
					continue
				}
				if _, err := os.Stat(sess.WorkspacePath); os.IsNotExist(err) {
					continue
				}
				if err := runner.Cleanup(ctx, sess); err != nil {
					fmt.Fprintf(os.Stderr, "warning: session %s: %v\n", sess.ID[:8], err)
					continue
				}
				cleaned++
			}
		}

		fmt.Printf("Cleaned up %d session workspace(s).\n", cleaned)
		return nil
	},
}
