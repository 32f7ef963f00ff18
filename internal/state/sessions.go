package state

import (
	"database/sql"
	"fmt"

	"taskmap/pkg/models"
)

// Session CRUD operations

// CreateSession creates a new Claude Code session record.
func (db *DB) CreateSession(s *models.ClaudeCodeSession) error {
	_, err := db.Exec(`
		INSERT INTO claude_sessions (id, execution_id, task_id, status, branch_name, workspace_path, prompt, pr_url, pr_number, log, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ExecutionID, s.TaskID, string(s.Status), s.BranchName, s.WorkspacePath,
		s.Prompt, s.PRUrl, s.PRNumber, marshalLog(s.Log), s.ErrorMessage,
		formatTime(s.StartedAt), nullableTimeArg(s.CompletedAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil if not found.
func (db *DB) GetSession(id string) (*models.ClaudeCodeSession, error) {
	row := db.QueryRow(sessionSelect+" WHERE id = ?", id)
	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// UpdateSession updates a session record.
func (db *DB) UpdateSession(s *models.ClaudeCodeSession) error {
	_, err := db.Exec(`
		UPDATE claude_sessions SET status = ?, branch_name = ?, workspace_path = ?, prompt = ?, pr_url = ?, pr_number = ?, log = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, string(s.Status), s.BranchName, s.WorkspacePath, s.Prompt, s.PRUrl, s.PRNumber,
		marshalLog(s.Log), s.ErrorMessage, nullableTimeArg(s.CompletedAt), s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ListSessionsForTask lists sessions for a task, newest first.
func (db *DB) ListSessionsForTask(taskID string) ([]models.ClaudeCodeSession, error) {
	rows, err := db.Query(sessionSelect+" WHERE task_id = ? ORDER BY started_at DESC", taskID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ClaudeCodeSession
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

const sessionSelect = `
	SELECT id, execution_id, task_id, status, branch_name, workspace_path, prompt, pr_url, pr_number, log, error_message, started_at, completed_at
	FROM claude_sessions`

func scanSession(scan func(...any) error) (*models.ClaudeCodeSession, error) {
	var s models.ClaudeCodeSession
	var status, startedAt string
	var branchName, workspacePath, prompt, prURL, logJSON, errorMessage, completedAt sql.NullString

	err := scan(&s.ID, &s.ExecutionID, &s.TaskID, &status, &branchName, &workspacePath,
		&prompt, &prURL, &s.PRNumber, &logJSON, &errorMessage, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	s.Status = models.SessionStatus(status)
	s.BranchName = branchName.String
	s.WorkspacePath = workspacePath.String
	s.Prompt = prompt.String
	s.PRUrl = prURL.String
	s.Log = unmarshalLog(logJSON.String)
	s.ErrorMessage = errorMessage.String
	s.StartedAt, _ = parseTime(startedAt)
	s.CompletedAt = parseNullableTime(completedAt)
	return &s, nil
}
