package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskmap/pkg/models"
)

var (
	taskAddDescription string
	taskAddHours       float64
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		task := &models.Task{
			ID:            uuid.New().String(),
			Title:         args[0],
			Description:   taskAddDescription,
			Status:        models.TaskStatusPending,
			DurationHours: taskAddHours,
			CreatedAt:     time.Now(),
		}
		if err := db.CreateTask(task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		fmt.Printf("Added task %s: %q\n", task.ID[:8], task.Title)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
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
			fmt.Println("No tasks. Add one with 'taskmap task add <title>'.")
			return nil
		}
		for _, t := range tasks {
			fmt.Printf("  %s  %-12s %s\n", t.ID[:8], t.Status, t.Title)
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		task, err := resolveTask(db, args[0])
		if err != nil {
			return err
		}
		now := time.Now()
		task.Status = models.TaskStatusDone
		task.CompletedAt = &now
		if err := db.UpdateTask(task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		fmt.Printf("Task %s marked done.\n", task.ID[:8])
		return nil
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskAddDescription, "desc", "", "Task description")
	taskAddCmd.Flags().Float64Var(&taskAddHours, "hours", 0, "Estimated duration in hours")
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
}
