// Package graph provides the in-memory dependency graph for task
// scheduling: cycle rejection on edge insertion and critical-path
// computation. The graph owns no I/O; persistence mirrors its edge set.
package graph

import (
	"errors"
	"sort"
	"sync"

	"taskmap/internal/errs"
	"taskmap/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the
// full edge set.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of task dependencies.
// Edges run from the prerequisite task to the task that depends on it.
// All mutations preserve the acyclicity and no-duplicate-edge invariants.
type DependencyGraph struct {
	mu sync.RWMutex
	// bySource maps a task ID to edges originating from it.
	bySource map[string][]models.Dependency
	// byTarget maps a task ID to edges pointing at it.
	byTarget map[string][]models.Dependency
	// edgeCount is the total number of edges.
	edgeCount int
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		bySource: make(map[string][]models.Dependency),
		byTarget: make(map[string][]models.Dependency),
	}
}

// Build loads an existing edge set into a fresh graph, validating as it
// goes. Used to rehydrate the graph from persisted dependencies.
func Build(deps []models.Dependency) (*DependencyGraph, error) {
	g := New()
	for _, d := range deps {
		if err := g.AddDependency(d); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddDependency inserts an edge, rejecting duplicates and edges that
// would create a cycle. The graph is mutated only on success.
func (g *DependencyGraph) AddDependency(dep models.Dependency) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.bySource[dep.FromTaskID] {
		if existing.ToTaskID == dep.ToTaskID {
			return errs.ErrDuplicateDependency
		}
	}

	// The new edge runs from -> to. If to can already reach from, the
	// edge would close a cycle.
	if g.reachableLocked(dep.ToTaskID, dep.FromTaskID) {
		return &errs.CircularDependencyError{Task1: dep.FromTaskID, Task2: dep.ToTaskID}
	}

	g.bySource[dep.FromTaskID] = append(g.bySource[dep.FromTaskID], dep)
	g.byTarget[dep.ToTaskID] = append(g.byTarget[dep.ToTaskID], dep)
	g.edgeCount++
	return nil
}

// RemoveDependency removes the (from, to) edge if present.
// Returns true if an edge was removed.
func (g *DependencyGraph) RemoveDependency(fromTaskID, toTaskID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	outgoing, ok := g.bySource[fromTaskID]
	if !ok {
		return false
	}
	removed := false
	filtered := filterEdges(outgoing, func(d models.Dependency) bool {
		match := d.ToTaskID == toTaskID
		if match {
			removed = true
		}
		return !match
	})
	if !removed {
		// Nothing matched; the maps must not grow entries for IDs that
		// never carried an edge.
		return false
	}

	if filtered == nil {
		delete(g.bySource, fromTaskID)
	} else {
		g.bySource[fromTaskID] = filtered
	}
	incoming := filterEdges(g.byTarget[toTaskID], func(d models.Dependency) bool {
		return d.FromTaskID != fromTaskID
	})
	if incoming == nil {
		delete(g.byTarget, toTaskID)
	} else {
		g.byTarget[toTaskID] = incoming
	}
	g.edgeCount--
	return true
}

// DependenciesFor returns the edges where taskID is the target, i.e. the
// prerequisites of the task.
func (g *DependencyGraph) DependenciesFor(taskID string) []models.Dependency {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]models.Dependency(nil), g.byTarget[taskID]...)
}

// DependentsFor returns the edges where taskID is the source, i.e. the
// tasks that depend on it.
func (g *DependencyGraph) DependentsFor(taskID string) []models.Dependency {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]models.Dependency(nil), g.bySource[taskID]...)
}

// EdgeCount returns the total number of edges.
func (g *DependencyGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeCount
}

// HasEdge reports whether the (from, to) edge exists.
func (g *DependencyGraph) HasEdge(fromTaskID, toTaskID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, d := range g.bySource[fromTaskID] {
		if d.ToTaskID == toTaskID {
			return true
		}
	}
	return false
}

// TaskIDs returns every task ID appearing in the edge set, sorted.
func (g *DependencyGraph) TaskIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.taskIDsLocked()
}

func (g *DependencyGraph) taskIDsLocked() []string {
	seen := make(map[string]bool)
	for id := range g.bySource {
		seen[id] = true
	}
	for id := range g.byTarget {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// reachableLocked reports whether target is reachable from start by
// following edges in their direction. Assumes the lock is held.
func (g *DependencyGraph) reachableLocked(start, target string) bool {
	if start == target {
		return true
	}
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range g.bySource[current] {
			next := edge.ToTaskID
			if next == target {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// HasCycle runs a full-graph cycle check, independent of the incremental
// check in AddDependency. Iterative DFS with white/gray/black coloring.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	colors := make(map[string]int)

	for _, root := range g.taskIDsLocked() {
		if colors[root] != white {
			continue
		}

		// Each frame tracks how far into the node's edge list we are,
		// so the traversal needs no recursion.
		type frame struct {
			id   string
			next int
		}
		stack := []frame{{id: root}}
		colors[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g.bySource[top.id]
			if top.next >= len(edges) {
				colors[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := edges[top.next].ToTaskID
			top.next++
			switch colors[child] {
			case gray:
				return true
			case white:
				colors[child] = gray
				stack = append(stack, frame{id: child})
			}
		}
	}
	return false
}

func filterEdges(edges []models.Dependency, keep func(models.Dependency) bool) []models.Dependency {
	out := edges[:0]
	for _, d := range edges {
		if keep(d) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
