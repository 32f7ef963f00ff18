// Package monitor provides read-only aggregation over persisted
// execution records: active executions per task and recent pull-request
// activity windowed by time.
package monitor

import (
	"fmt"
	"sort"
	"time"

	"taskmap/internal/state"
	"taskmap/pkg/models"
)

// PrMonitor reads execution records; it never mutates them.
type PrMonitor struct {
	store state.ExecutionStore
	now   func() time.Time
}

// NewPrMonitor creates a monitor over the given store.
func NewPrMonitor(store state.ExecutionStore) *PrMonitor {
	return &PrMonitor{store: store, now: time.Now}
}

// GetActiveExecution returns the execution with non-terminal status for
// a task, or nil. The per-task concurrency invariant guarantees at most
// one.
func (m *PrMonitor) GetActiveExecution(taskID string) (*models.TaskExecution, error) {
	return m.store.GetActiveExecutionForTask(taskID)
}

// GetRecentPRActivity returns executions carrying a PR URL whose
// completion time, or the scan time for executions still in flight,
// falls within the last windowHours. Sorted most recent first.
func (m *PrMonitor) GetRecentPRActivity(windowHours int) ([]models.TaskExecution, error) {
	executions, err := m.store.ListExecutions()
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}

	scanTime := m.now()
	cutoff := scanTime.Add(-time.Duration(windowHours) * time.Hour)

	type entry struct {
		execution models.TaskExecution
		effective time.Time
	}
	var entries []entry
	for _, e := range executions {
		if e.PRUrl == "" {
			continue
		}
		effective := scanTime
		if e.CompletedAt != nil {
			effective = *e.CompletedAt
		}
		if effective.Before(cutoff) {
			continue
		}
		entries = append(entries, entry{execution: e, effective: effective})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].effective.After(entries[j].effective)
	})

	result := make([]models.TaskExecution, 0, len(entries))
	for _, en := range entries {
		result = append(result, en.execution)
	}
	return result, nil
}
