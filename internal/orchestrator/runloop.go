package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"taskmap/internal/errs"
	"taskmap/pkg/models"
)

// ReadyTasks returns tasks whose prerequisites have all completed and
// which have no active execution. The result is ordered by creation
// time, matching the store's listing order.
func (o *Orchestrator) ReadyTasks() ([]models.Task, error) {
	tasks, err := o.store.ListTasks()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	statusByID := make(map[string]models.TaskStatus, len(tasks))
	for _, t := range tasks {
		statusByID[t.ID] = t.Status
	}

	var ready []models.Task
	for _, t := range tasks {
		if t.Status == models.TaskStatusDone || t.Status == models.TaskStatusFailed {
			continue
		}

		blocked := false
		for _, dep := range o.graph.DependenciesFor(t.ID) {
			if statusByID[dep.FromTaskID] != models.TaskStatusDone {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}

		active, err := o.store.GetActiveExecutionForTask(t.ID)
		if err != nil {
			return nil, fmt.Errorf("check active execution: %w", err)
		}
		if active != nil {
			continue
		}
		ready = append(ready, t)
	}
	return ready, nil
}

// RunReady launches one execution per ready task, bounded by the
// configured parallelism. A failing session does not stop the others;
// partial failure stays isolated to its own task.
func (o *Orchestrator) RunReady(ctx context.Context) (int, error) {
	ready, err := o.ReadyTasks()
	if err != nil {
		return 0, err
	}
	if len(ready) == 0 {
		return 0, nil
	}

	cfg := o.currentConfig()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Execution.MaxParallelSessions)

	for _, task := range ready {
		taskID := task.ID
		g.Go(func() error {
			if err := o.StartTaskExecutionSafe(ctx, taskID); err != nil {
				o.logger.Log("[orchestrator] task %s execution error: %v", taskID, err)
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	return len(ready), err
}

// FailTimedOut marks running executions older than the configured
// session timeout as failed. The bookkeeping status changes; the
// underlying agent process, if still alive, is not killed.
func (o *Orchestrator) FailTimedOut() (int, error) {
	cfg := o.currentConfig()
	executions, err := o.store.ListExecutions()
	if err != nil {
		return 0, fmt.Errorf("list executions: %w", err)
	}

	failed := 0
	for i := range executions {
		e := &executions[i]
		if e.Status.Terminal() {
			continue
		}
		elapsed := o.now().Sub(e.StartedAt)
		if elapsed <= cfg.Execution.SessionTimeout {
			continue
		}

		timeoutErr := &errs.TimeoutError{Duration: elapsed.Truncate(0)}
		now := o.now()
		e.Status = models.ExecutionFailed
		e.ErrorMessage = timeoutErr.Error()
		e.AppendLog(fmt.Sprintf("timed out after %s, marking failed (process not killed)", elapsed.Round(0)))
		e.CompletedAt = &now
		wrote, err := o.persistIfNotTerminal(e)
		if err != nil {
			return failed, fmt.Errorf("mark execution %s failed: %w", e.ID, err)
		}
		if !wrote {
			continue
		}
		o.logger.Log("[orchestrator] execution %s timed out after %s", e.ID, elapsed)
		failed++
	}
	return failed, nil
}

// CancelExecution transitions the task's active execution to cancelled.
// Returns false if the task has no active execution.
func (o *Orchestrator) CancelExecution(taskID string) (bool, error) {
	lock := o.taskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	active, err := o.store.GetActiveExecutionForTask(taskID)
	if err != nil {
		return false, fmt.Errorf("check active execution: %w", err)
	}
	if active == nil {
		return false, nil
	}

	now := o.now()
	active.Status = models.ExecutionCancelled
	active.AppendLog("execution cancelled")
	active.CompletedAt = &now
	if err := o.store.UpdateExecution(active); err != nil {
		return false, fmt.Errorf("cancel execution: %w", err)
	}
	o.logger.Log("[orchestrator] execution %s for task %s cancelled", active.ID, taskID)
	return true, nil
}
