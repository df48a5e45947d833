package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// DependencyGraph is an in-memory index over task ids: per-node dependency
// sets plus the derived dependent sets. The dependency sets are the single
// authoritative edge list; dependent sets are recomputed in one pass after
// every node insertion, so insertion order never loses back-edges.
//
// The graph is not safe for concurrent mutation; the orchestrator serializes
// access per order.
type DependencyGraph struct {
	nodes      []uuid.UUID
	deps       map[uuid.UUID]map[uuid.UUID]struct{}
	dependents map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		deps:       make(map[uuid.UUID]map[uuid.UUID]struct{}),
		dependents: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// NewGraphFromTasks builds a graph from a task list and validates it:
// duplicate task ids, dependency references that do not resolve within the
// list, and cycles are all rejected.
func NewGraphFromTasks(tasks []*FulfillmentTask) (*DependencyGraph, error) {
	g := NewDependencyGraph()
	for _, t := range tasks {
		if _, exists := g.deps[t.ID]; exists {
			return nil, fmt.Errorf("duplicate task id %s: %w", t.ID, ErrValidation)
		}
		g.AddNode(t.ID, t.Dependencies...)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// AddNode registers a node with its dependency set and rebuilds the derived
// dependent sets. Re-adding an id replaces its dependencies.
func (g *DependencyGraph) AddNode(id uuid.UUID, dependencies ...uuid.UUID) {
	if _, exists := g.deps[id]; !exists {
		g.nodes = append(g.nodes, id)
	}
	set := make(map[uuid.UUID]struct{}, len(dependencies))
	for _, dep := range dependencies {
		set[dep] = struct{}{}
	}
	g.deps[id] = set
	g.rebuild()
}

// rebuild derives the dependent sets from the authoritative dependency sets.
func (g *DependencyGraph) rebuild() {
	g.dependents = make(map[uuid.UUID]map[uuid.UUID]struct{}, len(g.deps))
	for _, id := range g.nodes {
		g.dependents[id] = make(map[uuid.UUID]struct{})
	}
	for id, deps := range g.deps {
		for dep := range deps {
			if _, known := g.dependents[dep]; known {
				g.dependents[dep][id] = struct{}{}
			}
		}
	}
}

// Len returns the number of nodes.
func (g *DependencyGraph) Len() int { return len(g.nodes) }

// Nodes returns the node ids in insertion order.
func (g *DependencyGraph) Nodes() []uuid.UUID {
	out := make([]uuid.UUID, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Dependencies returns the direct dependency set of a node.
func (g *DependencyGraph) Dependencies(id uuid.UUID) []uuid.UUID {
	return setToSlice(g.deps[id])
}

// DependentsOf returns the direct dependents of a node.
func (g *DependencyGraph) DependentsOf(id uuid.UUID) []uuid.UUID {
	return setToSlice(g.dependents[id])
}

// TransitiveDependentsOf returns every node reachable from id along
// dependent edges. Used to isolate a failure to its dependency subtree.
func (g *DependencyGraph) TransitiveDependentsOf(id uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	stack := []uuid.UUID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dep := range g.dependents[cur] {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			stack = append(stack, dep)
		}
	}
	return setToSlice(seen)
}

// ReadyNodes returns every node whose full dependency set is contained in
// completed, irrespective of the node's own state. Callers intersect with
// "not yet dispatched".
func (g *DependencyGraph) ReadyNodes(completed map[uuid.UUID]struct{}) []uuid.UUID {
	var ready []uuid.UUID
	for _, id := range g.nodes {
		ok := true
		for dep := range g.deps[id] {
			if _, done := completed[dep]; !done {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready
}

// Validate checks that every dependency resolves to a node in the graph and
// that the dependency relation is acyclic (Kahn's algorithm). A cycle would
// make its members permanently unready, so it is rejected at construction
// rather than detected at runtime.
func (g *DependencyGraph) Validate() error {
	indegree := make(map[uuid.UUID]int, len(g.nodes))
	for _, id := range g.nodes {
		indegree[id] = 0
	}
	for id, deps := range g.deps {
		for dep := range deps {
			if _, known := g.deps[dep]; !known {
				return fmt.Errorf("node %s depends on unknown node %s: %w", id, dep, ErrUnresolvedDependency)
			}
			indegree[id]++
		}
	}

	var queue []uuid.UUID
	for _, id := range g.nodes {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for dep := range g.dependents[cur] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if visited != len(g.nodes) {
		return fmt.Errorf("dependency cycle detected: %w", ErrValidation)
	}
	return nil
}

func setToSlice(set map[uuid.UUID]struct{}) []uuid.UUID {
	if len(set) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
