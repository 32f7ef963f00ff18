package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskmap/pkg/models"
)

// AddDependency validates an edge against the in-memory graph and then
// persists it. Rejections (cycle, duplicate) are returned to the caller,
// never silently dropped, and leave both layers unchanged.
func (o *Orchestrator) AddDependency(fromTaskID, toTaskID string, depType models.DependencyType) (*models.Dependency, error) {
	if !depType.Valid() {
		return nil, fmt.Errorf("unknown dependency type %q", depType)
	}

	dep := models.Dependency{
		ID:         uuid.New().String(),
		FromTaskID: fromTaskID,
		ToTaskID:   toTaskID,
		Type:       depType,
		CreatedAt:  time.Now(),
	}

	if err := o.graph.AddDependency(dep); err != nil {
		o.logger.Log("[orchestrator] dependency %s -> %s rejected: %v", fromTaskID, toTaskID, err)
		return nil, err
	}

	if err := o.store.CreateDependency(&dep); err != nil {
		// Keep the graph in lockstep with the store.
		o.graph.RemoveDependency(fromTaskID, toTaskID)
		return nil, err
	}

	o.logger.Log("[orchestrator] dependency added: %s -> %s (%s)", fromTaskID, toTaskID, depType)
	return &dep, nil
}

// RemoveDependency removes the (from, to) edge from the graph and the
// store. Returns true if an edge existed.
func (o *Orchestrator) RemoveDependency(fromTaskID, toTaskID string) (bool, error) {
	removedFromStore, err := o.store.DeleteDependency(fromTaskID, toTaskID)
	if err != nil {
		return false, err
	}
	removedFromGraph := o.graph.RemoveDependency(fromTaskID, toTaskID)
	if removedFromStore || removedFromGraph {
		o.logger.Log("[orchestrator] dependency removed: %s -> %s", fromTaskID, toTaskID)
		return true, nil
	}
	return false, nil
}
