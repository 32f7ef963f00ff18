package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"taskmap/internal/state"
	"taskmap/pkg/models"
)

func testStore(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createExecution(t *testing.T, db *state.DB, id, taskID, prURL string, status models.ExecutionStatus, completedAt *time.Time) {
	t.Helper()
	err := db.CreateExecution(&models.TaskExecution{
		ID:          id,
		TaskID:      taskID,
		Status:      status,
		PRUrl:       prURL,
		StartedAt:   time.Now().Add(-4 * time.Hour),
		CompletedAt: completedAt,
	})
	if err != nil {
		t.Fatalf("create execution %s: %v", id, err)
	}
}

func TestGetActiveExecution(t *testing.T) {
	db := testStore(t)
	m := NewPrMonitor(db)

	createExecution(t, db, "exec-1", "task-1", "", models.ExecutionRunning, nil)

	active, err := m.GetActiveExecution("task-1")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active == nil || active.ID != "exec-1" {
		t.Fatalf("active = %v, want exec-1", active)
	}

	active, err = m.GetActiveExecution("task-2")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active != nil {
		t.Errorf("expected nil for task without executions, got %s", active.ID)
	}
}

func TestGetRecentPRActivityWindow(t *testing.T) {
	db := testStore(t)
	m := NewPrMonitor(db)

	scanTime := time.Now()
	m.now = func() time.Time { return scanTime }

	twoHoursAgo := scanTime.Add(-2 * time.Hour)
	tenMinutesAgo := scanTime.Add(-10 * time.Minute)
	createExecution(t, db, "exec-old", "task-1", "https://example.com/repo/pull/1", models.ExecutionSuccess, &twoHoursAgo)
	createExecution(t, db, "exec-new", "task-2", "https://example.com/repo/pull/2", models.ExecutionSuccess, &tenMinutesAgo)
	// No PR URL: never reported regardless of window.
	createExecution(t, db, "exec-nopr", "task-3", "", models.ExecutionSuccess, &tenMinutesAgo)

	recent, err := m.GetRecentPRActivity(1)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "exec-new" {
		t.Fatalf("window 1h = %v, want [exec-new]", executionIDs(recent))
	}

	recent, err = m.GetRecentPRActivity(3)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("window 3h = %v, want 2 entries", executionIDs(recent))
	}
	// Most recent first.
	if recent[0].ID != "exec-new" || recent[1].ID != "exec-old" {
		t.Errorf("order = %v, want [exec-new exec-old]", executionIDs(recent))
	}
}

func TestGetRecentPRActivityInFlightUsesScanTime(t *testing.T) {
	db := testStore(t)
	m := NewPrMonitor(db)

	scanTime := time.Now()
	m.now = func() time.Time { return scanTime }

	// Started long ago, still running, but has a PR already. The scan
	// time counts as its effective activity time, so it is always inside
	// the window.
	createExecution(t, db, "exec-live", "task-1", "https://example.com/repo/pull/7", models.ExecutionRunning, nil)

	recent, err := m.GetRecentPRActivity(1)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "exec-live" {
		t.Fatalf("recent = %v, want [exec-live]", executionIDs(recent))
	}
}

func executionIDs(executions []models.TaskExecution) []string {
	ids := make([]string, len(executions))
	for i, e := range executions {
		ids[i] = e.ID
	}
	return ids
}
