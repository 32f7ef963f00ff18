package graph

import "sort"

// CriticalPath computes the longest dependency-respecting path through
// the graph, weighted by the given per-task durations. Tasks without a
// duration entry count as zero. Ties are broken by smallest task ID so
// the result is deterministic. Returns ErrCycleDetected if the edge set
// is not a DAG.
func (g *DependencyGraph) CriticalPath(durations map[string]float64) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Nodes are everything the edge set mentions plus any task that only
	// appears in the duration map.
	nodes := make(map[string]bool)
	for _, id := range g.taskIDsLocked() {
		nodes[id] = true
	}
	for id := range durations {
		nodes[id] = true
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	// Kahn's algorithm for a topological order.
	indegree := make(map[string]int, len(nodes))
	for id := range nodes {
		indegree[id] = len(g.byTarget[id])
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for _, edge := range g.bySource[id] {
			indegree[edge.ToTaskID]--
			if indegree[edge.ToTaskID] == 0 {
				unlocked = append(unlocked, edge.ToTaskID)
			}
		}
		if len(unlocked) > 0 {
			sort.Strings(unlocked)
			ready = append(ready, unlocked...)
		}
	}
	if len(order) != len(nodes) {
		return nil, ErrCycleDetected
	}

	// Single-pass longest-path DP over the topological order.
	// earliestFinish[t] = duration[t] + max over predecessors.
	earliestFinish := make(map[string]float64, len(nodes))
	bestPred := make(map[string]string, len(nodes))
	for _, id := range order {
		var maxPred float64
		pred := ""
		for _, edge := range g.byTarget[id] {
			p := edge.FromTaskID
			ef := earliestFinish[p]
			if pred == "" || ef > maxPred || (ef == maxPred && p < pred) {
				maxPred = ef
				pred = p
			}
		}
		earliestFinish[id] = durations[id] + maxPred
		if pred != "" {
			bestPred[id] = pred
		}
	}

	// The critical path ends at the node with the global maximum
	// earliest finish; smallest ID wins ties.
	end := ""
	var maxFinish float64
	for _, id := range order {
		ef := earliestFinish[id]
		if end == "" || ef > maxFinish || (ef == maxFinish && id < end) {
			end = id
			maxFinish = ef
		}
	}

	var path []string
	for id := end; id != ""; {
		path = append(path, id)
		id = bestPred[id]
	}
	// Reverse: backtracking produced end-to-start order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// PathDuration sums the durations along a path. Missing entries count
// as zero, matching CriticalPath.
func PathDuration(path []string, durations map[string]float64) float64 {
	var total float64
	for _, id := range path {
		total += durations[id]
	}
	return total
}
