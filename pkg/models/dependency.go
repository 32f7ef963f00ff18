package models

import "time"

// DependencyType describes how two tasks are ordered relative to each other.
type DependencyType string

const (
	// FinishToStart means the target task starts after the source finishes.
	FinishToStart DependencyType = "finish_to_start"
	// StartToStart means the target task starts after the source starts.
	StartToStart DependencyType = "start_to_start"
	// FinishToFinish means the target task finishes after the source finishes.
	FinishToFinish DependencyType = "finish_to_finish"
	// StartToFinish means the target task finishes after the source starts.
	StartToFinish DependencyType = "start_to_finish"
)

// Valid returns true if the dependency type is a known value.
func (t DependencyType) Valid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	default:
		return false
	}
}

// Dependency is a directed edge between two tasks: FromTaskID must be
// satisfied before ToTaskID, according to Type. The edge set across all
// dependencies must stay acyclic and free of duplicate (from, to) pairs.
type Dependency struct {
	// ID is the unique identifier for this dependency (UUID).
	ID string `json:"id"`
	// FromTaskID is the task the edge originates from (the prerequisite).
	FromTaskID string `json:"from_task_id"`
	// ToTaskID is the task that depends on FromTaskID.
	ToTaskID string `json:"to_task_id"`
	// Type is the ordering semantics of the edge.
	Type DependencyType `json:"dependency_type"`
	// CreatedAt is when the dependency was recorded.
	CreatedAt time.Time `json:"created_at"`
}
