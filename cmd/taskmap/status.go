package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskmap/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tasks and executions",
	Long: `Display tasks grouped by status and any executions in flight.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, err := db.ListTasks()
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks yet. Add one with 'taskmap task add <title>'.")
		return nil
	}

	counts := map[models.TaskStatus]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	fmt.Printf("Tasks: %d total\n", len(tasks))
	for _, s := range []models.TaskStatus{
		models.TaskStatusPending,
		models.TaskStatusInProgress,
		models.TaskStatusBlocked,
		models.TaskStatusDone,
		models.TaskStatusFailed,
	} {
		if counts[s] > 0 {
			fmt.Printf("  %-12s %d\n", s, counts[s])
		}
	}

	executions, err := db.ListExecutions()
	if err != nil {
		return fmt.Errorf("list executions: %w", err)
	}
	var active []models.TaskExecution
	for _, e := range executions {
		if !e.Status.Terminal() {
			active = append(active, e)
		}
	}

	fmt.Println()
	if len(active) == 0 {
		fmt.Println("No executions in flight.")
		return nil
	}
	fmt.Printf("Executions in flight: %d\n", len(active))
	for _, e := range active {
		fmt.Printf("  %s  %-10s %-30s (%s)\n",
			e.TaskID[:8], e.Status, e.BranchName, formatDuration(time.Since(e.StartedAt)))
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}
