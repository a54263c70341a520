package graph

import (
	"testing"

	"github.com/sevigo/coderag/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_RebuildComputesDegreeCentrality(t *testing.T) {
	g := New()
	nodes := []core.CodeNode{
		{ID: "a", Content: "x", Dependencies: []string{"c"}, ModTime: 100},
		{ID: "b", Content: "x", Dependencies: []string{"c"}, ModTime: 200},
		{ID: "c", Content: "x", ModTime: 300},
	}
	g.Rebuild(nodes)

	_, wa, ok := g.Node("a")
	require.True(t, ok)
	_, wb, _ := g.Node("b")
	_, wc, _ := g.Node("c")

	// c has in-degree 2 (from a and b), the highest degree, so its
	// centrality should be 1.0 and the others strictly lower.
	assert.Equal(t, 1.0, wc.Centrality)
	assert.Less(t, wa.Centrality, wc.Centrality)
	assert.Less(t, wb.Centrality, wc.Centrality)
}

func TestGraph_RecencyNormalizedAcrossSpan(t *testing.T) {
	g := New()
	nodes := []core.CodeNode{
		{ID: "old", Content: "x", ModTime: 0},
		{ID: "mid", Content: "x", ModTime: 50},
		{ID: "new", Content: "x", ModTime: 100},
	}
	g.Rebuild(nodes)

	_, wOld, _ := g.Node("old")
	_, wMid, _ := g.Node("mid")
	_, wNew, _ := g.Node("new")

	assert.Equal(t, 0.0, wOld.Recency)
	assert.Equal(t, 0.5, wMid.Recency)
	assert.Equal(t, 1.0, wNew.Recency)
}

func TestGraph_AllSameModTimeGetsFullRecency(t *testing.T) {
	g := New()
	nodes := []core.CodeNode{
		{ID: "a", Content: "x", ModTime: 42},
		{ID: "b", Content: "x", ModTime: 42},
	}
	g.Rebuild(nodes)

	_, wa, _ := g.Node("a")
	assert.Equal(t, 1.0, wa.Recency)
}

func TestGraph_NeighborsBothDirections(t *testing.T) {
	g := New()
	nodes := []core.CodeNode{
		{ID: "a", Content: "x", Dependencies: []string{"b"}},
		{ID: "b", Content: "x"},
	}
	g.Rebuild(nodes)

	assert.ElementsMatch(t, []string{"b"}, g.Neighbors("a"))
	assert.ElementsMatch(t, []string{"a"}, g.Neighbors("b"))
}

func TestGraph_UnknownDependencyIgnored(t *testing.T) {
	g := New()
	nodes := []core.CodeNode{
		{ID: "a", Content: "x", Dependencies: []string{"missing"}},
	}
	g.Rebuild(nodes)
	assert.Empty(t, g.Neighbors("a"))
}

func TestGraph_NodeMissingReturnsFalse(t *testing.T) {
	g := New()
	_, _, ok := g.Node("nope")
	assert.False(t, ok)
}

func TestGraph_EmptyRebuildIsSafe(t *testing.T) {
	g := New()
	g.Rebuild(nil)
	assert.Equal(t, 0, g.Len())
}
