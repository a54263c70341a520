// Package graph implements the Code Graph (C8): the node set plus a
// directed dependency multigraph derived from each node's Dependencies,
// with static, read-only weights recomputed on every rebuild.
package graph

import (
	"sort"

	"github.com/sevigo/coderag/internal/core"
)

// Weights holds the two static, read-only scores the retrieval engine
// consumes: degree-based centrality and fingerprint-time-based recency,
// both normalized to [0, 1] across the current node set.
type Weights struct {
	Centrality float64
	Recency    float64
}

// entry is the graph's arena slot: the node itself, its stable integer ID
// and its weights. Edges are not stored on the entry, per spec.md §4.8's
// "no back-pointers" note: they live in Graph.out and Graph.in, keyed by
// integer ID, never as pointers on the node struct itself.
type entry struct {
	node    core.CodeNode
	intID   int
	weights Weights
}

// Graph is the directed dependency multigraph over the current node set.
// It is rebuilt wholesale on every sync (Rebuild), never mutated
// incrementally, which keeps the weight computation simple and consistent
// with a single snapshot.
type Graph struct {
	byID    map[string]*entry // node ID -> entry
	byIntID map[int]*entry    // stable integer ID -> entry
	out     map[int][]int     // intID -> outgoing neighbor intIDs
	in      map[int][]int     // intID -> incoming neighbor intIDs
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		byID:    make(map[string]*entry),
		byIntID: make(map[int]*entry),
		out:     make(map[int][]int),
		in:      make(map[int][]int),
	}
}

// Rebuild replaces the entire node and edge set from nodes, assigning each
// a stable integer id in input order, then recomputes centrality and
// recency weights. It satisfies the syncengine.GraphBuilder interface.
func (g *Graph) Rebuild(nodes []core.CodeNode) {
	byID := make(map[string]*entry, len(nodes))
	byIntID := make(map[int]*entry, len(nodes))
	for i, n := range nodes {
		e := &entry{node: n, intID: i}
		byID[n.ID] = e
		byIntID[i] = e
	}

	out := make(map[int][]int, len(nodes))
	in := make(map[int][]int, len(nodes))
	for _, e := range byIntID {
		for _, dep := range e.node.Dependencies {
			target, ok := byID[dep]
			if !ok {
				continue
			}
			out[e.intID] = append(out[e.intID], target.intID)
			in[target.intID] = append(in[target.intID], e.intID)
		}
	}

	g.byID = byID
	g.byIntID = byIntID
	g.out = out
	g.in = in

	g.computeWeights()
}

func (g *Graph) computeWeights() {
	if len(g.byIntID) == 0 {
		return
	}

	maxDegree := 0
	degrees := make(map[int]int, len(g.byIntID))
	for id := range g.byIntID {
		d := len(g.out[id]) + len(g.in[id])
		degrees[id] = d
		if d > maxDegree {
			maxDegree = d
		}
	}

	minTime, maxTime := int64(0), int64(0)
	first := true
	for _, e := range g.byIntID {
		t := e.node.ModTime
		if first {
			minTime, maxTime = t, t
			first = false
			continue
		}
		if t < minTime {
			minTime = t
		}
		if t > maxTime {
			maxTime = t
		}
	}

	timeSpan := maxTime - minTime

	for id, e := range g.byIntID {
		centrality := 0.0
		if maxDegree > 0 {
			centrality = float64(degrees[id]) / float64(maxDegree)
		}

		recency := 0.0
		switch {
		case timeSpan > 0:
			recency = float64(e.node.ModTime-minTime) / float64(timeSpan)
		case len(g.byIntID) > 0:
			recency = 1.0
		}

		e.weights = Weights{Centrality: centrality, Recency: recency}
	}
}

// Node returns the node and its weights for a node ID, or false if absent.
func (g *Graph) Node(id string) (core.CodeNode, Weights, bool) {
	e, ok := g.byID[id]
	if !ok {
		return core.CodeNode{}, Weights{}, false
	}
	return e.node, e.weights, true
}

// Neighbors returns the node IDs reachable by one hop from id, in either
// direction (the graph is treated as undirected for BFS expansion purposes,
// per spec.md §4.9 stage 2's "graph expansion" over dependency edges in
// either direction).
func (g *Graph) Neighbors(id string) []string {
	e, ok := g.byID[id]
	if !ok {
		return nil
	}
	seen := make(map[int]bool)
	var out []string
	for _, nid := range g.out[e.intID] {
		if !seen[nid] {
			seen[nid] = true
			out = append(out, g.byIntID[nid].node.ID)
		}
	}
	for _, nid := range g.in[e.intID] {
		if !seen[nid] {
			seen[nid] = true
			out = append(out, g.byIntID[nid].node.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of nodes currently held.
func (g *Graph) Len() int {
	return len(g.byIntID)
}
