package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskmap/internal/config"
	"taskmap/internal/watch"
)

var (
	runOnce     bool
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute ready tasks",
	Long: `Launch one agent session per ready task.

A task is ready when every task it depends on is done and it has no
execution already in flight. Sessions run in parallel up to
execution.max_parallel_sessions.

By default the loop keeps polling for newly-ready tasks (for example
after a dependency's session completes) until interrupted. Dropping a
file named cancel-<task-id-prefix> into .taskmap/signals cancels that
task's running execution.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "Launch currently-ready tasks and exit")
	runCmd.Flags().DurationVar(&runInterval, "interval", 5*time.Second, "Poll interval between run-loop passes")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := checkAgentBinary(cfg); err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	o, err := buildOrchestrator(db, cfg)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	watcher, err := watch.NewSignalWatcher(cwd, o, resolveTaskID(db))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cancel signals unavailable: %v\n", err)
	} else {
		defer watcher.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		if expired, err := o.FailTimedOut(); err != nil {
			return err
		} else if expired > 0 {
			fmt.Printf("Marked %d timed-out execution(s) failed.\n", expired)
		}

		// Fold finished executions back into task statuses before
		// computing readiness, so completions unblock dependents in the
		// same pass.
		if _, err := o.QueueTaskStatusSync(); err != nil {
			return err
		}
		if synced, err := o.ApplyQueuedOperations(); err != nil {
			return err
		} else if synced > 0 {
			fmt.Printf("Updated %d task(s) from finished sessions.\n", synced)
		}

		started, err := o.RunReady(ctx)
		if err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		if started > 0 {
			fmt.Printf("Launched %d session(s).\n", started)
		}

		if _, err := o.CleanupLocks(); err != nil {
			return err
		}

		if runOnce {
			return nil
		}
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping run loop.")
			return nil
		case <-time.After(runInterval):
		}
	}
}
