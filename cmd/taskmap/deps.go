package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskmap/pkg/models"
)

var depsAddType string

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Manage task dependencies",
}

var depsAddCmd = &cobra.Command{
	Use:   "add <from-task> <to-task>",
	Short: "Add a dependency edge",
	Long: `Add a dependency: <to-task> will not start until <from-task> is done.

Edges that would duplicate an existing (from, to) pair or close a cycle
are rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		from, err := resolveTask(db, args[0])
		if err != nil {
			return err
		}
		to, err := resolveTask(db, args[1])
		if err != nil {
			return err
		}

		_, o, err := loadOrchestrator(db)
		if err != nil {
			return err
		}
		dep, err := o.AddDependency(from.ID, to.ID, models.DependencyType(depsAddType))
		if err != nil {
			return err
		}
		fmt.Printf("Added dependency %s -> %s (%s)\n", from.ID[:8], to.ID[:8], dep.Type)
		return nil
	},
}

var depsRemoveCmd = &cobra.Command{
	Use:   "remove <from-task> <to-task>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		from, err := resolveTask(db, args[0])
		if err != nil {
			return err
		}
		to, err := resolveTask(db, args[1])
		if err != nil {
			return err
		}

		_, o, err := loadOrchestrator(db)
		if err != nil {
			return err
		}
		removed, err := o.RemoveDependency(from.ID, to.ID)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("No dependency %s -> %s.\n", from.ID[:8], to.ID[:8])
			return nil
		}
		fmt.Printf("Removed dependency %s -> %s\n", from.ID[:8], to.ID[:8])
		return nil
	},
}

var depsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dependency edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		deps, err := db.ListDependencies()
		if err != nil {
			return fmt.Errorf("list dependencies: %w", err)
		}
		if len(deps) == 0 {
			fmt.Println("No dependencies.")
			return nil
		}
		for _, d := range deps {
			fmt.Printf("  %s -> %s  (%s)\n", d.FromTaskID[:8], d.ToTaskID[:8], d.Type)
		}
		return nil
	},
}

var depsCriticalPathCmd = &cobra.Command{
	Use:   "critical-path",
	Short: "Show the longest dependency chain by estimated duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		_, o, err := loadOrchestrator(db)
		if err != nil {
			return err
		}
		tasks, err := db.ListTasks()
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		durations := make(map[string]float64, len(tasks))
		titles := make(map[string]string, len(tasks))
		for _, t := range tasks {
			durations[t.ID] = t.DurationHours
			titles[t.ID] = t.Title
		}

		path, err := o.Graph().CriticalPath(durations)
		if err != nil {
			return err
		}
		if len(path) == 0 {
			fmt.Println("No tasks.")
			return nil
		}

		var total float64
		fmt.Println("Critical path:")
		for i, id := range path {
			total += durations[id]
			fmt.Printf("  %d. %s  %s (%.1fh)\n", i+1, id[:8], titles[id], durations[id])
		}
		fmt.Printf("Total: %.1fh\n", total)
		return nil
	},
}

func init() {
	depsAddCmd.Flags().StringVar(&depsAddType, "type", string(models.FinishToStart),
		"Dependency type (finish_to_start, start_to_start, finish_to_finish, start_to_finish)")
	depsCmd.AddCommand(depsAddCmd)
	depsCmd.AddCommand(depsRemoveCmd)
	depsCmd.AddCommand(depsListCmd)
	depsCmd.AddCommand(depsCriticalPathCmd)
}
