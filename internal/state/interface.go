package state

import (
	"io"

	"taskmap/pkg/models"
)

// TaskStore handles task persistence.
type TaskStore interface {
	CreateTask(t *models.Task) error
	GetTask(id string) (*models.Task, error)
	UpdateTask(t *models.Task) error
	DeleteTask(id string) error
	ListTasks() ([]models.Task, error)
}

// DependencyStore handles dependency-edge persistence. The layer enforces
// the no-duplicate-(from,to) invariant via a uniqueness constraint,
// mirroring the in-memory graph's own check.
type DependencyStore interface {
	CreateDependency(d *models.Dependency) error
	GetDependency(id string) (*models.Dependency, error)
	DeleteDependency(fromTaskID, toTaskID string) (bool, error)
	ListDependencies() ([]models.Dependency, error)
	ListDependenciesForTask(taskID string) ([]models.Dependency, error)
}

// ExecutionStore handles task-execution persistence.
type ExecutionStore interface {
	CreateExecution(e *models.TaskExecution) error
	GetExecution(id string) (*models.TaskExecution, error)
	UpdateExecution(e *models.TaskExecution) error
	ListExecutionsForTask(taskID string) ([]models.TaskExecution, error)
	ListExecutions() ([]models.TaskExecution, error)
	// GetActiveExecutionForTask returns the execution with non-terminal
	// status for the task, or nil. The per-task concurrency invariant
	// guarantees at most one such record.
	GetActiveExecutionForTask(taskID string) (*models.TaskExecution, error)
}

// SessionStore handles Claude Code session persistence.
type SessionStore interface {
	CreateSession(s *models.ClaudeCodeSession) error
	GetSession(id string) (*models.ClaudeCodeSession, error)
	UpdateSession(s *models.ClaudeCodeSession) error
	ListSessionsForTask(taskID string) ([]models.ClaudeCodeSession, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// StateStore defines the full persistence contract. The orchestrator and
// monitor depend on this interface, not the concrete SQLite type.
type StateStore interface {
	io.Closer
	Migrator
	TaskStore
	DependencyStore
	ExecutionStore
	SessionStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ StateStore      = (*DB)(nil)
	_ Migrator        = (*DB)(nil)
	_ TaskStore       = (*DB)(nil)
	_ DependencyStore = (*DB)(nil)
	_ ExecutionStore  = (*DB)(nil)
	_ SessionStore    = (*DB)(nil)
)
