package state

import (
	"database/sql"
	"fmt"

	"taskmap/pkg/models"
)

// Task CRUD operations

// CreateTask creates a new task.
func (db *DB) CreateTask(t *models.Task) error {
	_, err := db.Exec(`
		INSERT INTO tasks (id, title, description, status, duration_hours, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, string(t.Status), t.DurationHours, formatTime(t.CreatedAt), nullableTimeArg(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil if not found.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, title, description, status, duration_hours, created_at, completed_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask updates a task.
func (db *DB) UpdateTask(t *models.Task) error {
	_, err := db.Exec(`
		UPDATE tasks SET title = ?, description = ?, status = ?, duration_hours = ?, completed_at = ?
		WHERE id = ?
	`, t.Title, t.Description, string(t.Status), t.DurationHours, nullableTimeArg(t.CompletedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask deletes a task by ID.
func (db *DB) DeleteTask(id string) error {
	_, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListTasks lists all tasks ordered by creation time.
func (db *DB) ListTasks() ([]models.Task, error) {
	rows, err := db.Query(`
		SELECT id, title, description, status, duration_hours, created_at, completed_at
		FROM tasks ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func scanTask(scan func(...any) error) (*models.Task, error) {
	var t models.Task
	var status, createdAt string
	var description sql.NullString
	var completedAt sql.NullString

	err := scan(&t.ID, &t.Title, &description, &status, &t.DurationHours, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Status = models.TaskStatus(status)
	t.CreatedAt, _ = parseTime(createdAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}
