package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"taskmap/pkg/models"
)

// QueueTaskStatusSync enqueues a batch update for every task whose
// status lags its latest finished execution: a successful execution
// moves the task to done, a failed one to failed. Cancelled executions
// leave the task alone so it can run again. Returns the number of
// operations enqueued.
func (o *Orchestrator) QueueTaskStatusSync() (int, error) {
	tasks, err := o.store.ListTasks()
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}
	executions, err := o.store.ListExecutions()
	if err != nil {
		return 0, fmt.Errorf("list executions: %w", err)
	}

	latest := latestFinishedByTask(executions)
	queued := 0
	for _, t := range tasks {
		if t.Status == models.TaskStatusDone || t.Status == models.TaskStatusFailed {
			continue
		}
		e, ok := latest[t.ID]
		if !ok {
			continue
		}
		if e.Status != models.ExecutionSuccess && e.Status != models.ExecutionFailed {
			continue
		}
		o.batch.Enqueue(models.BatchOperation{
			ID:        uuid.New().String(),
			Type:      models.OpUpdateTask,
			TaskID:    t.ID,
			Timestamp: o.now(),
		})
		queued++
	}
	return queued, nil
}

// ApplyQueuedOperations drains the batch queue, applying each queued
// task update against the live execution state. A drain already in
// progress makes this a no-op. Returns the number of tasks whose
// status changed.
func (o *Orchestrator) ApplyQueuedOperations() (int, error) {
	applied := 0
	ran, err := o.batch.ProcessBatch(func(ops []models.BatchOperation) error {
		for _, op := range ops {
			if op.Type != models.OpUpdateTask {
				continue
			}
			changed, err := o.syncTaskStatus(op.TaskID)
			if err != nil {
				return err
			}
			if changed {
				applied++
			}
		}
		return nil
	})
	if err != nil {
		return applied, err
	}
	if !ran {
		return 0, nil
	}
	if applied > 0 {
		o.logger.Log("[orchestrator] synced %d task status(es) from executions", applied)
	}
	return applied, nil
}

// syncTaskStatus moves one task to done or failed per its latest
// finished execution. Stale queue entries, tasks already terminal, and
// tasks whose newest finish is a cancellation all no-op.
func (o *Orchestrator) syncTaskStatus(taskID string) (bool, error) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		return false, fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task == nil || task.Status == models.TaskStatusDone || task.Status == models.TaskStatusFailed {
		return false, nil
	}

	// A retry in flight supersedes any earlier outcome.
	active, err := o.store.GetActiveExecutionForTask(taskID)
	if err != nil {
		return false, fmt.Errorf("check active execution: %w", err)
	}
	if active != nil {
		return false, nil
	}

	executions, err := o.store.ListExecutionsForTask(taskID)
	if err != nil {
		return false, fmt.Errorf("list executions for %s: %w", taskID, err)
	}
	latest := latestFinishedByTask(executions)[taskID]
	if latest == nil {
		return false, nil
	}

	switch latest.Status {
	case models.ExecutionSuccess:
		now := o.now()
		task.Status = models.TaskStatusDone
		task.CompletedAt = &now
	case models.ExecutionFailed:
		task.Status = models.TaskStatusFailed
	default:
		return false, nil
	}
	if err := o.store.UpdateTask(task); err != nil {
		return false, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return true, nil
}

// latestFinishedByTask indexes the terminal execution with the newest
// start time for each task.
func latestFinishedByTask(executions []models.TaskExecution) map[string]*models.TaskExecution {
	latest := make(map[string]*models.TaskExecution)
	for i := range executions {
		e := &executions[i]
		if !e.Status.Terminal() {
			continue
		}
		if cur, ok := latest[e.TaskID]; !ok || e.StartedAt.After(cur.StartedAt) {
			latest[e.TaskID] = e
		}
	}
	return latest
}
