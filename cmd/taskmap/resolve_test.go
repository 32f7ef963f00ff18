package main

import (
	"path/filepath"
	"testing"
	"time"

	"taskmap/internal/state"
	"taskmap/pkg/models"
)

func testDB(t *testing.T) *state.DB {
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

func addTask(t *testing.T, db *state.DB, id, title string) {
	t.Helper()
	err := db.CreateTask(&models.Task{
		ID:        id,
		Title:     title,
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
}

func TestResolveTask(t *testing.T) {
	db := testDB(t)
	addTask(t, db, "aaaa1111-0000-0000-0000-000000000000", "First")
	addTask(t, db, "aaaa2222-0000-0000-0000-000000000000", "Second")
	addTask(t, db, "bbbb3333-0000-0000-0000-000000000000", "Third")

	task, err := resolveTask(db, "bbbb3333-0000-0000-0000-000000000000")
	if err != nil || task.Title != "Third" {
		t.Fatalf("full ID lookup: %v %v", task, err)
	}

	task, err = resolveTask(db, "bbbb")
	if err != nil || task.Title != "Third" {
		t.Fatalf("prefix lookup: %v %v", task, err)
	}

	if _, err := resolveTask(db, "aaaa"); err == nil {
		t.Error("ambiguous prefix should error")
	}
	if _, err := resolveTask(db, "cccc"); err == nil {
		t.Error("unknown prefix should error")
	}
}

func TestResolveTaskIDForSignals(t *testing.T) {
	db := testDB(t)
	addTask(t, db, "aaaa1111-0000-0000-0000-000000000000", "First")
	addTask(t, db, "aaaa2222-0000-0000-0000-000000000000", "Second")

	resolve := resolveTaskID(db)

	id, err := resolve("aaaa1111")
	if err != nil || id != "aaaa1111-0000-0000-0000-000000000000" {
		t.Fatalf("resolve = %q, %v", id, err)
	}

	// Ambiguous and unknown prefixes resolve to nothing, not an error;
	// the watcher just logs and moves on.
	if id, err := resolve("aaaa"); err != nil || id != "" {
		t.Errorf("ambiguous resolve = %q, %v", id, err)
	}
	if id, err := resolve("zzzz"); err != nil || id != "" {
		t.Errorf("unknown resolve = %q, %v", id, err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{150 * time.Minute, "2h30m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
