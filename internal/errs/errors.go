// Package errs defines the error taxonomy for taskmap and the retry
// classification applied to transient failures.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateDependency indicates an edge with the same (from, to) pair
// already exists. Enforced both in the in-memory graph and by the
// persistence layer's uniqueness constraint.
var ErrDuplicateDependency = errors.New("duplicate dependency edge")

// CircularDependencyError indicates adding an edge would create a cycle.
type CircularDependencyError struct {
	// Task1 is the source of the rejected edge.
	Task1 string
	// Task2 is the target of the rejected edge.
	Task2 string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency between %s and %s", e.Task1, e.Task2)
}

// InvalidStateTransitionError indicates a disallowed status transition.
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ConcurrentModificationError indicates an entity changed underneath a
// check-then-act sequence.
type ConcurrentModificationError struct {
	EntityType string
	ID         string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s", e.EntityType, e.ID)
}

// TimeoutError indicates an operation exceeded its time bound.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Duration)
}

// ExternalServiceError indicates a failure in an external collaborator
// (agent binary, gh, git).
type ExternalServiceError struct {
	Service string
	Message string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// ResourceLimitExceededError indicates a bounded resource was exhausted.
type ResourceLimitExceededError struct {
	Resource  string
	Limit     int
	Requested int
}

func (e *ResourceLimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded: requested %d, limit %d", e.Resource, e.Requested, e.Limit)
}

// ConfigurationError indicates invalid or missing configuration.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}
