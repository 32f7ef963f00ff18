package main

import (
	"fmt"
	"strings"

	"taskmap/internal/state"
	"taskmap/pkg/models"
)

// resolveTask finds a task by full ID or unique ID prefix.
func resolveTask(db *state.DB, idOrPrefix string) (*models.Task, error) {
	task, err := db.GetTask(idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task != nil {
		return task, nil
	}

	tasks, err := db.ListTasks()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var matches []models.Task
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, idOrPrefix) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no task matches %q", idOrPrefix)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%q is ambiguous, matches %d tasks", idOrPrefix, len(matches))
	}
}

// resolveTaskID is the TaskResolver used by the signal watcher: it maps
// an ID prefix to a full task ID, or empty when no single task matches.
func resolveTaskID(db *state.DB) func(prefix string) (string, error) {
	return func(prefix string) (string, error) {
		tasks, err := db.ListTasks()
		if err != nil {
			return "", err
		}
		var match string
		for _, t := range tasks {
			if strings.HasPrefix(t.ID, prefix) {
				if match != "" {
					return "", nil
				}
				match = t.ID
			}
		}
		return match, nil
	}
}
