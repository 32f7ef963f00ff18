package models

import "time"

// ExecutionStatus represents the state of a task execution.
// Transitions are monotonic: Queued -> Running -> {Success, Failed, Cancelled}.
type ExecutionStatus string

const (
	// ExecutionQueued indicates the execution has been created but not started.
	ExecutionQueued ExecutionStatus = "queued"
	// ExecutionRunning indicates the execution is in flight.
	ExecutionRunning ExecutionStatus = "running"
	// ExecutionSuccess indicates the execution completed successfully.
	ExecutionSuccess ExecutionStatus = "success"
	// ExecutionFailed indicates the execution failed.
	ExecutionFailed ExecutionStatus = "failed"
	// ExecutionCancelled indicates the execution was cancelled.
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionQueued, ExecutionRunning, ExecutionSuccess, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from s.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionSuccess, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a transition from s to next is allowed.
// Terminal states never transition; Queued may only become Running or a
// terminal state; Running may only become terminal.
func (s ExecutionStatus) CanTransition(next ExecutionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case ExecutionQueued:
		return next == ExecutionRunning || next.Terminal()
	case ExecutionRunning:
		return next.Terminal()
	default:
		return false
	}
}

// TaskExecution is the persisted record of one run of a task through the
// external agent. At most one non-terminal execution may exist per task
// at any instant; records are never deleted, only transitioned.
type TaskExecution struct {
	// ID is the unique identifier for this execution (UUID).
	ID string `json:"id"`
	// TaskID is the task this execution belongs to.
	TaskID string `json:"task_id"`
	// Status is the current execution state.
	Status ExecutionStatus `json:"status"`
	// BranchName is the git branch the agent works on.
	BranchName string `json:"branch_name,omitempty"`
	// PRUrl is the pull request URL, if one was created.
	PRUrl string `json:"pr_url,omitempty"`
	// PRNumber is the pull request number, if one was created.
	PRNumber int `json:"pr_number,omitempty"`
	// Log is the ordered, append-only execution log.
	Log []string `json:"log,omitempty"`
	// ErrorMessage holds the failure reason when Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`
	// StartedAt is when the execution was launched.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the execution reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AppendLog appends a line to the execution log.
func (e *TaskExecution) AppendLog(line string) {
	e.Log = append(e.Log, line)
}

// SessionStatus represents the state of a Claude Code session.
type SessionStatus string

const (
	// SessionPending indicates the session record exists but nothing ran yet.
	SessionPending SessionStatus = "pending"
	// SessionInitializing indicates the workspace is being prepared.
	SessionInitializing SessionStatus = "initializing"
	// SessionWorking indicates the agent is running.
	SessionWorking SessionStatus = "working"
	// SessionCreatingPR indicates the agent finished and a PR is being created.
	SessionCreatingPR SessionStatus = "creating_pr"
	// SessionCompleted indicates the session finished successfully.
	SessionCompleted SessionStatus = "completed"
	// SessionFailed indicates the session failed.
	SessionFailed SessionStatus = "failed"
)

// Terminal returns true if the session has finished, one way or the other.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// ClaudeCodeSession is the persisted record of one external agent run.
// It mirrors the execution record but carries the session-level detail:
// workspace, rendered prompt, and the fine-grained status ladder.
type ClaudeCodeSession struct {
	// ID is the unique identifier for this session (UUID).
	ID string `json:"id"`
	// ExecutionID links the session to its TaskExecution.
	ExecutionID string `json:"execution_id"`
	// TaskID is the task this session works on.
	TaskID string `json:"task_id"`
	// Status is the current session state.
	Status SessionStatus `json:"status"`
	// BranchName is the git branch the session works on.
	BranchName string `json:"branch_name,omitempty"`
	// WorkspacePath is the isolated working directory for the session.
	WorkspacePath string `json:"workspace_path,omitempty"`
	// Prompt is the rendered prompt handed to the agent.
	Prompt string `json:"prompt,omitempty"`
	// PRUrl is the pull request URL, if one was created.
	PRUrl string `json:"pr_url,omitempty"`
	// PRNumber is the pull request number, if one was created.
	PRNumber int `json:"pr_number,omitempty"`
	// Log is the ordered, append-only session log.
	Log []string `json:"log,omitempty"`
	// ErrorMessage holds the failure reason when Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`
	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the session reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AppendLog appends a line to the session log.
func (s *ClaudeCodeSession) AppendLog(line string) {
	s.Log = append(s.Log, line)
}
