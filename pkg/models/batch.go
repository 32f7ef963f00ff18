package models

import "time"

// OperationType identifies the kind of queued batch operation.
type OperationType string

const (
	// OpCreateTask queues a task creation.
	OpCreateTask OperationType = "create_task"
	// OpUpdateTask queues a task update.
	OpUpdateTask OperationType = "update_task"
	// OpDeleteTask queues a task deletion.
	OpDeleteTask OperationType = "delete_task"
	// OpAddDependency queues a dependency insertion.
	OpAddDependency OperationType = "add_dependency"
	// OpRemoveDependency queues a dependency removal.
	OpRemoveDependency OperationType = "remove_dependency"
)

// Valid returns true if the operation type is a known value.
func (t OperationType) Valid() bool {
	switch t {
	case OpCreateTask, OpUpdateTask, OpDeleteTask, OpAddDependency, OpRemoveDependency:
		return true
	default:
		return false
	}
}

// BatchOperation is a deferred mutation queued for the next batch drain.
type BatchOperation struct {
	// ID is the unique identifier for this operation (UUID).
	ID string `json:"id"`
	// Type is the kind of mutation to apply.
	Type OperationType `json:"operation_type"`
	// TaskID is the task the operation targets, when applicable.
	TaskID string `json:"task_id,omitempty"`
	// Timestamp is when the operation was enqueued.
	Timestamp time.Time `json:"timestamp"`
}
