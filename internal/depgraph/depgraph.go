// Package depgraph builds the dependency graph for one project's active
// items and answers the two board questions: does the graph contain cycles,
// and which items are ready to pick up versus waiting on dependencies.
package depgraph

import (
	"sort"

	"crewboard/internal/domain"
	"crewboard/internal/stage"
)

// Node is one active item in the graph. DependsOn may reference ids that are
// not part of the graph; such edges are ignored for traversal and treated as
// satisfied when classifying.
type Node struct {
	ID        string
	DependsOn []string
	Done      bool
}

// Graph is an immutable snapshot. Build a fresh one per evaluation; it is
// never updated incrementally.
type Graph struct {
	nodes map[string]Node
	order []string
}

// New builds a graph from nodes. Later duplicates of an id win.
func New(nodes []Node) *Graph {
	g := &Graph{nodes: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		if _, seen := g.nodes[n.ID]; !seen {
			g.order = append(g.order, n.ID)
		}
		g.nodes[n.ID] = n
	}
	return g
}

// FromItems builds a graph from the active items of a project. Archived
// items must already be filtered out by the caller's query.
func FromItems(items []domain.Item) *Graph {
	nodes := make([]Node, 0, len(items))
	for _, it := range items {
		nodes = append(nodes, Node{
			ID:        it.ID,
			DependsOn: it.DependsOn,
			Done:      it.StageID == stage.Done,
		})
	}
	return New(nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

const (
	white = iota // unvisited
	gray         // on the current DFS path
	black        // fully explored
)

type frame struct {
	id   string
	next int
}

// DetectCycles returns every cycle found by a three-color depth-first
// search. Each cycle is the closed walk from the first occurrence of the
// repeated node through its repeat, e.g. [b c b]. An acyclic graph yields a
// nil slice. The search is iterative; graph depth never grows the call
// stack.
func (g *Graph) DetectCycles() [][]string {
	color := make(map[string]int, len(g.nodes))
	var cycles [][]string

	roots := make([]string, len(g.order))
	copy(roots, g.order)
	sort.Strings(roots)

	for _, root := range roots {
		if color[root] != white {
			continue
		}
		stack := []frame{{id: root}}
		path := []string{root}
		color[root] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.nodes[top.id].DependsOn
			advanced := false
			for top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				if _, present := g.nodes[dep]; !present {
					continue
				}
				switch color[dep] {
				case white:
					color[dep] = gray
					stack = append(stack, frame{id: dep})
					path = append(path, dep)
					advanced = true
				case gray:
					cycles = append(cycles, closeWalk(path, dep))
				}
				if advanced {
					break
				}
			}
			if !advanced {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
			}
		}
	}
	return cycles
}

// closeWalk slices the DFS path from the first occurrence of repeat to the
// end and appends repeat again to close the walk.
func closeWalk(path []string, repeat string) []string {
	start := 0
	for i, id := range path {
		if id == repeat {
			start = i
			break
		}
	}
	walk := make([]string, 0, len(path)-start+1)
	walk = append(walk, path[start:]...)
	walk = append(walk, repeat)
	return walk
}

// Classify splits the non-done nodes into ready and blocked. A node is
// ready when every dependency present in the graph is done; dependencies
// pointing outside the graph count as satisfied. Done nodes appear in
// neither list. Both lists come back sorted.
func (g *Graph) Classify() (ready, blocked []string) {
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Done {
			continue
		}
		ok := true
		for _, dep := range n.DependsOn {
			depNode, present := g.nodes[dep]
			if present && !depNode.Done {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		} else {
			blocked = append(blocked, id)
		}
	}
	sort.Strings(ready)
	sort.Strings(blocked)
	return ready, blocked
}
