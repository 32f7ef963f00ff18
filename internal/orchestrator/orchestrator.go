package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskmap/internal/config"
	"taskmap/internal/errs"
	"taskmap/internal/graph"
	"taskmap/internal/state"
	"taskmap/pkg/models"
)

// SessionLauncher launches one agent session for a task. Satisfied by
// session.Runner; tests substitute a recording fake.
type SessionLauncher interface {
	Launch(ctx context.Context, task *models.Task, cfg *config.Config, execution *models.TaskExecution) (*models.ClaudeCodeSession, error)
}

// Orchestrator owns the per-task lock map and drives executions. The
// lock map is an instance field, never package state: one orchestrator
// is constructed per process and torn down with it.
type Orchestrator struct {
	store    state.StateStore
	launcher SessionLauncher
	graph    *graph.DependencyGraph

	cfgMu sync.RWMutex
	cfg   *config.Config

	// locks holds the lazily-created per-task execution locks. locksMu
	// guards the map itself, not the individual locks.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	batch  *BatchOperationManager
	logger *DebugLogger
	now    func() time.Time
}

// New creates an orchestrator over the given store, launcher, and graph.
func New(store state.StateStore, launcher SessionLauncher, g *graph.DependencyGraph, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:    store,
		launcher: launcher,
		graph:    g,
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
		batch:    NewBatchOperationManager(),
		logger:   &DebugLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the debug logger.
func (o *Orchestrator) SetLogger(l *DebugLogger) {
	if l != nil {
		o.logger = l
	}
}

// Graph returns the orchestrator's dependency graph.
func (o *Orchestrator) Graph() *graph.DependencyGraph {
	return o.graph
}

// taskLock returns the lock for a task, creating it on first use.
func (o *Orchestrator) taskLock(taskID string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()

	lock, ok := o.locks[taskID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[taskID] = lock
	}
	return lock
}

// LockCount returns the number of per-task locks currently held in the
// map.
func (o *Orchestrator) LockCount() int {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	return len(o.locks)
}

// currentConfig returns a snapshot of the active configuration.
func (o *Orchestrator) currentConfig() *config.Config {
	o.cfgMu.RLock()
	defer o.cfgMu.RUnlock()
	return o.cfg
}

// StartTaskExecutionSafe launches an execution for the task unless one
// is already in flight. The check-then-act over the execution record is
// covered by the per-task lock; a concurrent second call observes the
// queued record and returns nil without launching (idempotent no-op).
func (o *Orchestrator) StartTaskExecutionSafe(ctx context.Context, taskID string) error {
	execution, err := o.claimExecution(taskID)
	if err != nil || execution == nil {
		return err
	}

	task, err := o.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task == nil {
		return o.abandonExecution(execution, fmt.Sprintf("task %s not found", taskID))
	}

	execution.Status = models.ExecutionRunning
	wrote, err := o.persistIfNotTerminal(execution)
	if err != nil {
		return fmt.Errorf("mark execution running: %w", err)
	}
	if !wrote {
		o.logger.Log("[orchestrator] execution %s for task %s reached %s before launch, skipping", execution.ID, taskID, execution.Status)
		return nil
	}

	o.logger.Log("[orchestrator] launching session for task %s (execution %s)", taskID, execution.ID)
	cfg := o.currentConfig()
	policy := errs.RetryPolicy{
		BackoffAttempts: cfg.Execution.RetryBackoffAttempts,
		BackoffBase:     time.Second,
		FixedAttempts:   cfg.Execution.RetryFixedAttempts,
		FixedDelay:      100 * time.Millisecond,
	}
	launchErr := errs.Retry(ctx, policy, func() error {
		_, err := o.launcher.Launch(ctx, task, cfg, execution)
		return err
	})
	if launchErr != nil {
		// Launch only errors on persistence failures; the session
		// itself records command failures. Close out the record so the
		// task is not wedged in a non-terminal state.
		return o.abandonExecution(execution, launchErr.Error())
	}
	return nil
}

// claimExecution performs the locked check-then-act: it returns a newly
// persisted queued execution, or nil if the task already has an active
// one.
func (o *Orchestrator) claimExecution(taskID string) (*models.TaskExecution, error) {
	lock := o.taskLock(taskID)
	lock.Lock()
	defer lock.Unlock()

	active, err := o.store.GetActiveExecutionForTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("check active execution: %w", err)
	}
	if active != nil {
		o.logger.Log("[orchestrator] task %s already has active execution %s, skipping", taskID, active.ID)
		return nil, nil
	}

	execution := &models.TaskExecution{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Status:    models.ExecutionQueued,
		StartedAt: o.now(),
	}
	execution.AppendLog("execution queued")
	if err := o.store.CreateExecution(execution); err != nil {
		return nil, fmt.Errorf("persist execution: %w", err)
	}
	return execution, nil
}

// abandonExecution closes out an execution that never produced a
// session.
func (o *Orchestrator) abandonExecution(execution *models.TaskExecution, reason string) error {
	now := o.now()
	execution.Status = models.ExecutionFailed
	execution.ErrorMessage = reason
	execution.AppendLog(reason)
	execution.CompletedAt = &now
	if _, err := o.persistIfNotTerminal(execution); err != nil {
		return fmt.Errorf("close out execution: %w", err)
	}
	return nil
}

// persistIfNotTerminal writes the execution unless the stored record
// reached a terminal state since it was loaded, as happens when a
// cancel or timeout sweep races the writer. Returns false when the
// write was skipped; the in-memory copy then adopts the stored status.
func (o *Orchestrator) persistIfNotTerminal(execution *models.TaskExecution) (bool, error) {
	stored, err := o.store.GetExecution(execution.ID)
	if err != nil {
		return false, fmt.Errorf("reload execution: %w", err)
	}
	if stored != nil && stored.Status != execution.Status && !stored.Status.CanTransition(execution.Status) {
		execution.Status = stored.Status
		return false, nil
	}
	if err := o.store.UpdateExecution(execution); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateConfigSafe applies a configuration change behind a write
// barrier: every currently-known per-task lock is acquired in sorted
// order first, so no execution launch races the update and the
// acquisition order can never deadlock against another caller.
func (o *Orchestrator) UpdateConfigSafe(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.locksMu.Lock()
	ids := make([]string, 0, len(o.locks))
	for id := range o.locks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		held = append(held, o.locks[id])
	}
	o.locksMu.Unlock()

	for _, lock := range held {
		lock.Lock()
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()

	o.cfgMu.Lock()
	o.cfg = cfg
	o.cfgMu.Unlock()
	o.logger.Log("[orchestrator] configuration updated under %d task locks", len(held))
	return nil
}

// CleanupLocks drops lock entries for tasks with no active execution,
// bounding the lock map's growth. Held locks are left alone.
func (o *Orchestrator) CleanupLocks() (int, error) {
	o.locksMu.Lock()
	ids := make([]string, 0, len(o.locks))
	for id := range o.locks {
		ids = append(ids, id)
	}
	o.locksMu.Unlock()

	removed := 0
	for _, id := range ids {
		active, err := o.store.GetActiveExecutionForTask(id)
		if err != nil {
			return removed, fmt.Errorf("check active execution: %w", err)
		}
		if active != nil {
			continue
		}

		o.locksMu.Lock()
		if lock, ok := o.locks[id]; ok && lock.TryLock() {
			delete(o.locks, id)
			lock.Unlock()
			removed++
		}
		o.locksMu.Unlock()
	}
	if removed > 0 {
		o.logger.Log("[orchestrator] cleaned up %d idle task locks", removed)
	}
	return removed, nil
}
