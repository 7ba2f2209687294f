// Package dag implements C9: the chain DAG scheduler, grounded in the
// teacher's internal/engine/dag.go for the Kahn's-algorithm topological
// sort and in original_source/src/dag/dag.rs for the per-node state
// machine the teacher's simpler level-barrier model does not have.
package dag

import (
	"sort"

	pkgerrors "github.com/dropctl/dropctl/pkg/errors"
)

// Node is one vertex of a chain's dependency graph: a ChainNode id plus
// its declared predecessors (spec.md §4.7).
type Node struct {
	ID         string
	DependsOn  []string
	Dependents []string
}

// Graph is the chain's dependency structure plus its computed
// topological levels.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a node with its declared dependencies.
func (g *Graph) AddNode(id string, dependsOn []string) *Node {
	n := &Node{ID: id, DependsOn: append([]string(nil), dependsOn...)}
	g.Nodes[id] = n
	return n
}

// Link wires the Dependents back-reference for every recorded DependsOn
// edge. Call once after all nodes are added.
func (g *Graph) Link() error {
	for id, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			source, ok := g.Nodes[dep]
			if !ok {
				return pkgerrors.NewValidationError("chain", "unknown dependency \""+dep+"\" referenced by \""+id+"\"", nil)
			}
			source.Dependents = append(source.Dependents, id)
		}
	}
	return nil
}

// TopologicalSort computes Kahn's-algorithm levels, sorting each frontier
// lexically by node id for deterministic output; node insertion order
// plays no part in the tie-break (spec.md §4.7).
func (g *Graph) TopologicalSort() error {
	indegree := make(map[string]int, len(g.Nodes))
	for id, n := range g.Nodes {
		indegree[id] = len(n.DependsOn)
	}

	var queue []string
	for id, degree := range indegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	processed := 0
	var levels [][]string

	for len(queue) > 0 {
		level := append([]string(nil), queue...)
		levels = append(levels, level)

		var next []string
		for _, id := range level {
			processed++
			for _, dependent := range g.Nodes[id].Dependents {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	if processed != len(g.Nodes) {
		for id, degree := range indegree {
			if degree > 0 {
				return pkgerrors.NewTopoSortError(id)
			}
		}
		return pkgerrors.NewTopoSortError("")
	}

	g.Levels = levels
	return nil
}
