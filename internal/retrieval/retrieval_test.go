package retrieval

import (
	"strings"
	"testing"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/graph"
	"github.com/sevigo/coderag/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []vectorstore.Candidate
}

func (f *fakeSearcher) Search(query []float32, k int) []vectorstore.Candidate {
	if k < len(f.results) {
		return f.results[:k]
	}
	return f.results
}

func node(id, file string, kind core.NodeKind, start int, content string) core.CodeNode {
	return core.CodeNode{ID: id, Name: id, FilePath: file, Kind: kind, StartLine: start, Content: content}
}

func TestRetrieve_EmptySeedsYieldsEmptyResult(t *testing.T) {
	e := New(&fakeSearcher{}, nil)
	res := e.Retrieve([]float32{1, 2, 3}, Options{})
	assert.Empty(t, res.Nodes)
	assert.Empty(t, res.Context)
}

func TestRetrieve_RanksByFinalScoreDescending(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.Candidate{
		{Node: node("a", "a.py", core.NodeFunction, 1, "a-body"), Distance: 0.1},
		{Node: node("b", "b.py", core.NodeFunction, 1, "b-body"), Distance: 0.9},
	}}
	g := graph.New()
	e := New(searcher, g)

	res := e.Retrieve([]float32{1, 0}, Options{MaxNodes: 8})
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, "a", res.Nodes[0].ID)
}

func TestRetrieve_GraphExpansionAddsNeighbors(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.Candidate{
		{Node: node("a", "a.py", core.NodeFunction, 1, "a-body"), Distance: 0.1},
	}}
	g := graph.New()
	g.Rebuild([]core.CodeNode{
		{ID: "a", Content: "a-body", FilePath: "a.py", Dependencies: []string{"b"}},
		{ID: "b", Content: "b-body", FilePath: "b.py"},
	})
	e := New(searcher, g)

	res := e.Retrieve([]float32{1, 0}, Options{MaxNodes: 8})
	ids := make([]string, len(res.Nodes))
	for i, n := range res.Nodes {
		ids[i] = n.ID
	}
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "b")
}

func TestRetrieve_DisableGraphSkipsExpansion(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.Candidate{
		{Node: node("a", "a.py", core.NodeFunction, 1, "a-body"), Distance: 0.1},
	}}
	g := graph.New()
	g.Rebuild([]core.CodeNode{
		{ID: "a", Content: "a-body", FilePath: "a.py", Dependencies: []string{"b"}},
		{ID: "b", Content: "b-body", FilePath: "b.py"},
	})
	e := New(searcher, g)

	res := e.Retrieve([]float32{1, 0}, Options{MaxNodes: 8, DisableGraph: true})
	assert.Len(t, res.Nodes, 1)
}

func TestRetrieve_ContextPackingUsesFileHeaders(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.Candidate{
		{Node: node("a", "a.py", core.NodeFunction, 1, "hello world"), Distance: 0.1},
	}}
	e := New(searcher, graph.New())

	res := e.Retrieve([]float32{1, 0}, Options{MaxNodes: 8})
	assert.True(t, strings.HasPrefix(res.Context, "--- FILE: a.py ---"))
	assert.Contains(t, res.Context, "hello world")
}

func TestRetrieve_ContextPackingStopsAtBudgetWithoutSplitting(t *testing.T) {
	big := strings.Repeat("x", 100)
	searcher := &fakeSearcher{results: []vectorstore.Candidate{
		{Node: node("a", "a.py", core.NodeFunction, 1, big), Distance: 0.1},
		{Node: node("b", "b.py", core.NodeFunction, 1, big), Distance: 0.2},
	}}
	e := New(searcher, graph.New())

	res := e.Retrieve([]float32{1, 0}, Options{MaxNodes: 8, Budget: 50})
	assert.Empty(t, res.Context)
}

func TestPack_SkipsOversizedFileButFillsWithSmallerOneBehindIt(t *testing.T) {
	big := node("big", "big.py", core.NodeFunction, 1, strings.Repeat("x", 200))
	small := node("small", "small.py", core.NodeFunction, 1, "small-body")

	ctx := pack([]core.CodeNode{big, small}, 80)
	assert.NotContains(t, ctx, "xxxxxxxxxx")
	assert.Contains(t, ctx, "small-body")
	assert.Contains(t, ctx, "--- FILE: small.py ---")
}

func TestRank_BreaksFinalScoreTiesByHopDistance(t *testing.T) {
	candidates := map[string]*candidate{
		"seed": {node: node("seed", "seed.py", core.NodeFunction, 1, "seed-body"), final: 0.5, distance: 0, order: 0},
		"hop2": {node: node("hop2", "hop2.py", core.NodeFunction, 1, "hop2-body"), final: 0.5, distance: 2, order: 1},
		"hop1": {node: node("hop1", "hop1.py", core.NodeFunction, 1, "hop1-body"), final: 0.5, distance: 1, order: 2},
	}

	ranked := rank(candidates)
	require.Len(t, ranked, 3)
	assert.Equal(t, "seed", ranked[0].node.ID)
	assert.Equal(t, "hop1", ranked[1].node.ID)
	assert.Equal(t, "hop2", ranked[2].node.ID)
}

func TestRetrieve_GroupsMultipleNodesPerFileByKind(t *testing.T) {
	searcher := &fakeSearcher{results: []vectorstore.Candidate{
		{Node: node("fn", "a.py", core.NodeFunction, 10, "fn-body"), Distance: 0.1},
		{Node: node("cls", "a.py", core.NodeClass, 1, "cls-body"), Distance: 0.1},
	}}
	e := New(searcher, graph.New())

	res := e.Retrieve([]float32{1, 0}, Options{MaxNodes: 8})
	clsIdx := strings.Index(res.Context, "cls-body")
	fnIdx := strings.Index(res.Context, "fn-body")
	require.NotEqual(t, -1, clsIdx)
	require.NotEqual(t, -1, fnIdx)
	assert.Less(t, clsIdx, fnIdx)
}
