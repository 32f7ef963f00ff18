package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskmap/internal/config"
	"taskmap/internal/errs"
	"taskmap/internal/graph"
	"taskmap/internal/state"
	"taskmap/pkg/models"
)

// fakeLauncher records launches without spawning anything.
type fakeLauncher struct {
	launches int32
	delay    time.Duration
	err      error
}

func (f *fakeLauncher) Launch(ctx context.Context, task *models.Task, cfg *config.Config, execution *models.TaskExecution) (*models.ClaudeCodeSession, error) {
	atomic.AddInt32(&f.launches, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.ClaudeCodeSession{ID: "sess-" + task.ID, TaskID: task.ID}, nil
}

func (f *fakeLauncher) count() int {
	return int(atomic.LoadInt32(&f.launches))
}

func testOrchestrator(t *testing.T, launcher SessionLauncher) (*Orchestrator, *state.DB) {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Default()
	o := New(db, launcher, graph.New(), cfg)
	return o, db
}

func createTask(t *testing.T, db *state.DB, id, title string, status models.TaskStatus) {
	t.Helper()
	err := db.CreateTask(&models.Task{
		ID:        id,
		Title:     title,
		Status:    status,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create task %s: %v", id, err)
	}
}

func TestStartTaskExecutionSafeLaunchesOnce(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "First", models.TaskStatusPending)

	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if launcher.count() != 1 {
		t.Fatalf("launches = %d, want 1", launcher.count())
	}

	active, err := db.GetActiveExecutionForTask("task-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active == nil {
		t.Fatal("expected an active execution record")
	}
	if active.Status != models.ExecutionRunning {
		t.Errorf("status = %s, want %s", active.Status, models.ExecutionRunning)
	}
}

func TestStartTaskExecutionSafeSecondCallIsNoOp(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "First", models.TaskStatusPending)

	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("second start: %v", err)
	}

	if launcher.count() != 1 {
		t.Errorf("launches = %d, want 1", launcher.count())
	}
	executions, err := db.ListExecutionsForTask("task-1")
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(executions) != 1 {
		t.Errorf("executions = %d, want 1", len(executions))
	}
}

func TestStartTaskExecutionSafeConcurrent(t *testing.T) {
	launcher := &fakeLauncher{delay: 20 * time.Millisecond}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "Contended", models.TaskStatusPending)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
				t.Errorf("start: %v", err)
			}
		}()
	}
	wg.Wait()

	if launcher.count() != 1 {
		t.Errorf("launches = %d, want 1", launcher.count())
	}

	executions, err := db.ListExecutionsForTask("task-1")
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	nonTerminal := 0
	for _, e := range executions {
		if !e.Status.Terminal() {
			nonTerminal++
		}
	}
	if nonTerminal != 1 {
		t.Errorf("non-terminal executions = %d, want 1", nonTerminal)
	}
}

func TestStartTaskExecutionSafeUnknownTask(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)

	if err := o.StartTaskExecutionSafe(context.Background(), "missing"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if launcher.count() != 0 {
		t.Errorf("launches = %d, want 0", launcher.count())
	}

	// The claimed record must not be left dangling in a non-terminal state.
	active, err := db.GetActiveExecutionForTask("missing")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active execution, got %s", active.Status)
	}
}

func TestStartTaskExecutionSafeLaunchFailureClosesExecution(t *testing.T) {
	launcher := &fakeLauncher{err: errors.New("worktree directory vanished")}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "Doomed", models.TaskStatusPending)

	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	executions, err := db.ListExecutionsForTask("task-1")
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(executions) != 1 {
		t.Fatalf("executions = %d, want 1", len(executions))
	}
	e := executions[0]
	if e.Status != models.ExecutionFailed {
		t.Errorf("status = %s, want %s", e.Status, models.ExecutionFailed)
	}
	if e.ErrorMessage == "" {
		t.Error("expected error message on failed execution")
	}
	if e.CompletedAt == nil {
		t.Error("expected completion timestamp on failed execution")
	}
}

// hookLauncher runs a callback mid-launch, for interleaving tests.
type hookLauncher struct {
	hook func(taskID string)
	err  error
}

func (h *hookLauncher) Launch(ctx context.Context, task *models.Task, cfg *config.Config, execution *models.TaskExecution) (*models.ClaudeCodeSession, error) {
	if h.hook != nil {
		h.hook(task.ID)
	}
	return nil, h.err
}

func TestCancelDuringLaunchStaysCancelled(t *testing.T) {
	launcher := &hookLauncher{err: errors.New("session store unavailable")}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "Raced", models.TaskStatusPending)

	// The cancel lands while the launch is in flight; closing out the
	// failed launch must not resurrect the execution.
	launcher.hook = func(taskID string) {
		if _, err := o.CancelExecution(taskID); err != nil {
			t.Errorf("cancel: %v", err)
		}
	}

	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	executions, err := db.ListExecutionsForTask("task-1")
	if err != nil {
		t.Fatalf("list executions: %v", err)
	}
	if len(executions) != 1 {
		t.Fatalf("executions = %d, want 1", len(executions))
	}
	if executions[0].Status != models.ExecutionCancelled {
		t.Errorf("status = %s, want %s", executions[0].Status, models.ExecutionCancelled)
	}
}

func TestUpdateConfigSafe(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeLauncher{})

	// Touch a few locks first so the barrier has something to acquire.
	o.taskLock("task-1")
	o.taskLock("task-2")

	cfg := config.Default()
	cfg.Execution.MaxParallelSessions = 8
	if err := o.UpdateConfigSafe(cfg); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := o.currentConfig().Execution.MaxParallelSessions; got != 8 {
		t.Errorf("MaxParallelSessions = %d, want 8", got)
	}
}

func TestUpdateConfigSafeRejectsInvalid(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeLauncher{})
	before := o.currentConfig()

	cfg := config.Default()
	cfg.Execution.MaxParallelSessions = 0
	if err := o.UpdateConfigSafe(cfg); err == nil {
		t.Fatal("expected validation error")
	}
	if o.currentConfig() != before {
		t.Error("invalid config must not be applied")
	}
}

func TestCleanupLocks(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "Active", models.TaskStatusPending)
	createTask(t, db, "task-2", "Idle", models.TaskStatusPending)

	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	o.taskLock("task-2")
	o.taskLock("task-3")

	if got := o.LockCount(); got != 3 {
		t.Fatalf("LockCount = %d, want 3", got)
	}

	removed, err := o.CleanupLocks()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	// task-1 keeps its lock while its execution is active.
	if got := o.LockCount(); got != 1 {
		t.Errorf("LockCount = %d, want 1", got)
	}
}

func TestFailTimedOut(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "Slow", models.TaskStatusPending)
	createTask(t, db, "task-2", "Fresh", models.TaskStatusPending)

	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("start task-1: %v", err)
	}
	if err := o.StartTaskExecutionSafe(context.Background(), "task-2"); err != nil {
		t.Fatalf("start task-2: %v", err)
	}

	// Only task-1's execution is past the timeout.
	slow, err := db.GetActiveExecutionForTask("task-1")
	if err != nil || slow == nil {
		t.Fatalf("active for task-1: %v %v", slow, err)
	}
	slow.StartedAt = time.Now().Add(-2 * o.currentConfig().Execution.SessionTimeout)
	if err := db.UpdateExecution(slow); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	failed, err := o.FailTimedOut()
	if err != nil {
		t.Fatalf("fail timed out: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	got, err := db.GetExecution(slow.ID)
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	if got.Status != models.ExecutionFailed {
		t.Errorf("status = %s, want %s", got.Status, models.ExecutionFailed)
	}
	if got.ErrorMessage == "" {
		t.Error("expected timeout message")
	}

	fresh, err := db.GetActiveExecutionForTask("task-2")
	if err != nil {
		t.Fatalf("active for task-2: %v", err)
	}
	if fresh == nil {
		t.Error("fresh execution must survive the sweep")
	}
}

func TestCancelExecution(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "Cancel me", models.TaskStatusPending)

	cancelled, err := o.CancelExecution("task-1")
	if err != nil {
		t.Fatalf("cancel without execution: %v", err)
	}
	if cancelled {
		t.Error("cancel with no active execution should report false")
	}

	if err := o.StartTaskExecutionSafe(context.Background(), "task-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancelled, err = o.CancelExecution("task-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !cancelled {
		t.Fatal("expected cancellation")
	}

	active, err := db.GetActiveExecutionForTask("task-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active execution after cancel, got %s", active.Status)
	}
}

func TestReadyTasks(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-a", "Prereq", models.TaskStatusPending)
	createTask(t, db, "task-b", "Dependent", models.TaskStatusPending)
	createTask(t, db, "task-c", "Done already", models.TaskStatusDone)

	if _, err := o.AddDependency("task-a", "task-b", models.FinishToStart); err != nil {
		t.Fatalf("add dependency: %v", err)
	}

	ready, err := o.ReadyTasks()
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != "task-a" {
		t.Fatalf("ready = %v, want [task-a]", taskIDs(ready))
	}

	// Completing the prerequisite unblocks the dependent.
	a, _ := db.GetTask("task-a")
	a.Status = models.TaskStatusDone
	if err := db.UpdateTask(a); err != nil {
		t.Fatalf("update task: %v", err)
	}

	ready, err = o.ReadyTasks()
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != "task-b" {
		t.Fatalf("ready = %v, want [task-b]", taskIDs(ready))
	}

	// Tasks with an active execution are not ready again.
	if err := o.StartTaskExecutionSafe(context.Background(), "task-b"); err != nil {
		t.Fatalf("start: %v", err)
	}
	ready, err = o.ReadyTasks()
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if len(ready) != 0 {
		t.Errorf("ready = %v, want []", taskIDs(ready))
	}
}

func TestRunReadyLaunchesAllReady(t *testing.T) {
	launcher := &fakeLauncher{}
	o, db := testOrchestrator(t, launcher)
	createTask(t, db, "task-1", "One", models.TaskStatusPending)
	createTask(t, db, "task-2", "Two", models.TaskStatusPending)
	createTask(t, db, "task-3", "Three", models.TaskStatusPending)

	started, err := o.RunReady(context.Background())
	if err != nil {
		t.Fatalf("run ready: %v", err)
	}
	if started != 3 {
		t.Errorf("started = %d, want 3", started)
	}
	if launcher.count() != 3 {
		t.Errorf("launches = %d, want 3", launcher.count())
	}
}

func TestAddDependencyRejectsCycleInBothLayers(t *testing.T) {
	o, db := testOrchestrator(t, &fakeLauncher{})
	createTask(t, db, "task-a", "A", models.TaskStatusPending)
	createTask(t, db, "task-b", "B", models.TaskStatusPending)

	if _, err := o.AddDependency("task-a", "task-b", models.FinishToStart); err != nil {
		t.Fatalf("add a->b: %v", err)
	}
	if _, err := o.AddDependency("task-b", "task-a", models.FinishToStart); err == nil {
		t.Fatal("expected cycle rejection")
	}

	if o.Graph().EdgeCount() != 1 {
		t.Errorf("graph edges = %d, want 1", o.Graph().EdgeCount())
	}
	deps, err := db.ListDependencies()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(deps) != 1 {
		t.Errorf("stored edges = %d, want 1", len(deps))
	}
}

func TestAddDependencyRollsBackGraphOnStoreFailure(t *testing.T) {
	o, db := testOrchestrator(t, &fakeLauncher{})
	createTask(t, db, "task-a", "A", models.TaskStatusPending)
	createTask(t, db, "task-b", "B", models.TaskStatusPending)

	if _, err := o.AddDependency("task-a", "task-b", models.FinishToStart); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Same edge again: the graph rejects before the store is touched.
	if _, err := o.AddDependency("task-a", "task-b", models.FinishToStart); !errors.Is(err, errs.ErrDuplicateDependency) {
		t.Fatalf("err = %v, want ErrDuplicateDependency", err)
	}
	if o.Graph().EdgeCount() != 1 {
		t.Errorf("graph edges = %d, want 1", o.Graph().EdgeCount())
	}
}

func taskIDs(tasks []models.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
