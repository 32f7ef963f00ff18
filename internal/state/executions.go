package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"taskmap/pkg/models"
)

// Execution CRUD operations

// CreateExecution creates a new task execution record.
func (db *DB) CreateExecution(e *models.TaskExecution) error {
	_, err := db.Exec(`
		INSERT INTO task_executions (id, task_id, status, branch_name, pr_url, pr_number, log, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TaskID, string(e.Status), e.BranchName, e.PRUrl, e.PRNumber,
		marshalLog(e.Log), e.ErrorMessage, formatTime(e.StartedAt), nullableTimeArg(e.CompletedAt))
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID. Returns nil if not found.
func (db *DB) GetExecution(id string) (*models.TaskExecution, error) {
	row := db.QueryRow(executionSelect+" WHERE id = ?", id)
	e, err := scanExecution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

// UpdateExecution updates an execution record.
func (db *DB) UpdateExecution(e *models.TaskExecution) error {
	_, err := db.Exec(`
		UPDATE task_executions SET status = ?, branch_name = ?, pr_url = ?, pr_number = ?, log = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, string(e.Status), e.BranchName, e.PRUrl, e.PRNumber, marshalLog(e.Log),
		e.ErrorMessage, nullableTimeArg(e.CompletedAt), e.ID)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	return nil
}

// ListExecutionsForTask lists executions for a task, newest first.
func (db *DB) ListExecutionsForTask(taskID string) ([]models.TaskExecution, error) {
	return db.queryExecutions(executionSelect+" WHERE task_id = ? ORDER BY started_at DESC", taskID)
}

// ListExecutions lists all executions, newest first.
func (db *DB) ListExecutions() ([]models.TaskExecution, error) {
	return db.queryExecutions(executionSelect + " ORDER BY started_at DESC")
}

// GetActiveExecutionForTask returns the non-terminal execution for a
// task, or nil if none. At most one such record exists per task.
func (db *DB) GetActiveExecutionForTask(taskID string) (*models.TaskExecution, error) {
	row := db.QueryRow(executionSelect+`
		WHERE task_id = ? AND status IN (?, ?)
		ORDER BY started_at DESC LIMIT 1
	`, taskID, string(models.ExecutionQueued), string(models.ExecutionRunning))

	e, err := scanExecution(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active execution: %w", err)
	}
	return e, nil
}

const executionSelect = `
	SELECT id, task_id, status, branch_name, pr_url, pr_number, log, error_message, started_at, completed_at
	FROM task_executions`

func (db *DB) queryExecutions(query string, args ...any) ([]models.TaskExecution, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []models.TaskExecution
	for rows.Next() {
		e, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, *e)
	}
	return executions, rows.Err()
}

func scanExecution(scan func(...any) error) (*models.TaskExecution, error) {
	var e models.TaskExecution
	var status, startedAt string
	var branchName, prURL, logJSON, errorMessage, completedAt sql.NullString

	err := scan(&e.ID, &e.TaskID, &status, &branchName, &prURL, &e.PRNumber,
		&logJSON, &errorMessage, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	e.Status = models.ExecutionStatus(status)
	e.BranchName = branchName.String
	e.PRUrl = prURL.String
	e.Log = unmarshalLog(logJSON.String)
	e.ErrorMessage = errorMessage.String
	e.StartedAt, _ = parseTime(startedAt)
	e.CompletedAt = parseNullableTime(completedAt)
	return &e, nil
}

// marshalLog serializes an append-only log as JSON for storage.
func marshalLog(log []string) string {
	if len(log) == 0 {
		return ""
	}
	data, err := json.Marshal(log)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalLog(s string) []string {
	if s == "" {
		return nil
	}
	var log []string
	if err := json.Unmarshal([]byte(s), &log); err != nil {
		return nil
	}
	return log
}
