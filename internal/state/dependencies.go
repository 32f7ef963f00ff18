package state

import (
	"database/sql"
	"fmt"
	"strings"

	"taskmap/internal/errs"
	"taskmap/pkg/models"
)

// Dependency CRUD operations

// CreateDependency inserts a dependency edge. The UNIQUE(from, to)
// constraint rejects duplicates; that case surfaces as
// errs.ErrDuplicateDependency so callers agree with the in-memory graph.
func (db *DB) CreateDependency(d *models.Dependency) error {
	_, err := db.Exec(`
		INSERT INTO dependencies (id, from_task_id, to_task_id, dep_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.FromTaskID, d.ToTaskID, string(d.Type), formatTime(d.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errs.ErrDuplicateDependency
		}
		return fmt.Errorf("create dependency: %w", err)
	}
	return nil
}

// GetDependency retrieves a dependency by ID. Returns nil if not found.
func (db *DB) GetDependency(id string) (*models.Dependency, error) {
	row := db.QueryRow(`
		SELECT id, from_task_id, to_task_id, dep_type, created_at
		FROM dependencies WHERE id = ?
	`, id)

	d, err := scanDependency(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency: %w", err)
	}
	return d, nil
}

// DeleteDependency removes the (from, to) edge. Returns true if an edge
// was deleted.
func (db *DB) DeleteDependency(fromTaskID, toTaskID string) (bool, error) {
	result, err := db.Exec(`
		DELETE FROM dependencies WHERE from_task_id = ? AND to_task_id = ?
	`, fromTaskID, toTaskID)
	if err != nil {
		return false, fmt.Errorf("delete dependency: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListDependencies lists all dependency edges.
func (db *DB) ListDependencies() ([]models.Dependency, error) {
	return db.queryDependencies(`
		SELECT id, from_task_id, to_task_id, dep_type, created_at
		FROM dependencies ORDER BY created_at
	`)
}

// ListDependenciesForTask lists edges touching the task on either side.
func (db *DB) ListDependenciesForTask(taskID string) ([]models.Dependency, error) {
	return db.queryDependencies(`
		SELECT id, from_task_id, to_task_id, dep_type, created_at
		FROM dependencies WHERE from_task_id = ? OR to_task_id = ?
		ORDER BY created_at
	`, taskID, taskID)
}

func (db *DB) queryDependencies(query string, args ...any) ([]models.Dependency, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []models.Dependency
	for rows.Next() {
		d, err := scanDependency(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, *d)
	}
	return deps, rows.Err()
}

func scanDependency(scan func(...any) error) (*models.Dependency, error) {
	var d models.Dependency
	var depType, createdAt string

	if err := scan(&d.ID, &d.FromTaskID, &d.ToTaskID, &depType, &createdAt); err != nil {
		return nil, err
	}
	d.Type = models.DependencyType(depType)
	d.CreatedAt, _ = parseTime(createdAt)
	return &d, nil
}
