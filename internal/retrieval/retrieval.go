// Package retrieval implements the Retrieval Engine (C9): ANN seeding,
// graph expansion, multi-dimensional scoring, and hierarchical context
// packing over the node set held by C7 and C8.
package retrieval

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/graph"
	"github.com/sevigo/coderag/internal/telemetry"
	"github.com/sevigo/coderag/internal/vectorstore"
)

const (
	weightVector     = 0.55
	weightGraph      = 0.25
	weightCentrality = 0.10
	weightRecency    = 0.10

	expansionAlpha = 0.6
	maxHops        = 3

	// DefaultMaxNodes bounds both the ANN seed count and the final
	// candidate set, per spec.md §4.9.
	DefaultMaxNodes = 80
	// DefaultBudget is the character budget for hierarchical packing.
	DefaultBudget = 120_000
)

// Seed is one result from the ANN index: a node plus its raw distance
// under the index's own metric.
type Seed = vectorstore.Candidate

// Searcher is the narrow slice of the vector store the engine needs.
type Searcher interface {
	Search(query []float32, k int) []vectorstore.Candidate
}

// GraphReader is the narrow slice of the code graph the engine needs.
type GraphReader interface {
	Node(id string) (core.CodeNode, graph.Weights, bool)
	Neighbors(id string) []string
}

// Options configures one Retrieve call. Zero values fall back to the
// spec's defaults. UseGraph defaults to true; pass DisableGraph to opt out
// explicitly, since a bare bool field can't distinguish "unset" from
// "false".
type Options struct {
	MaxNodes     int
	DisableGraph bool
	Budget       int
}

func (o Options) withDefaults() Options {
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	return o
}

// Result is the outcome of a Retrieve call: the packed context string plus
// the ordered node list that produced it.
type Result struct {
	Context string
	Nodes   []core.CodeNode
}

// Engine composes a Searcher and a GraphReader to answer Retrieve calls.
type Engine struct {
	Store Searcher
	Graph GraphReader

	// Telemetry, if set, records the duration of every Retrieve call.
	Telemetry *telemetry.Sink
}

// New returns an Engine over the given store and graph.
func New(store Searcher, graph GraphReader) *Engine {
	return &Engine{Store: store, Graph: graph}
}

type candidate struct {
	node       core.CodeNode
	vectorSim  float64
	graphScore float64
	centrality float64
	recency    float64
	final      float64
	distance   float64 // hop count from the nearest seed; 0 for seeds themselves
	order      int     // insertion order, for stable tie-breaking
}

// Retrieve runs the four-stage pipeline described in spec.md §4.9. An
// empty ANN result yields an empty Result, never an error.
func (e *Engine) Retrieve(queryEmbedding []float32, opts Options) Result {
	if e.Telemetry != nil {
		started := time.Now()
		defer func() { e.Telemetry.RetrievalDuration.Observe(time.Since(started).Seconds()) }()
	}
	opts = opts.withDefaults()

	seedK := int(math.Ceil(float64(opts.MaxNodes) / 4.0))
	if seedK < 1 {
		seedK = 1
	}
	seeds := e.Store.Search(queryEmbedding, seedK)
	if len(seeds) == 0 {
		return Result{}
	}

	candidates := make(map[string]*candidate, opts.MaxNodes)
	order := 0
	maxDist := maxSeedDistance(seeds)

	for _, s := range seeds {
		vectorSim := 1.0
		if maxDist > 0 {
			vectorSim = 1.0 - float64(s.Distance)/float64(maxDist)
		}
		c := &candidate{
			node:      s.Node,
			vectorSim: vectorSim,
			distance:  0,
			order:     order,
		}
		order++
		e.applyGraphWeights(c)
		c.final = score(c)
		candidates[c.node.ID] = c
	}

	if !opts.DisableGraph {
		e.expand(candidates, &order, opts.MaxNodes)
	}

	ranked := rank(candidates)
	if len(ranked) > opts.MaxNodes {
		ranked = ranked[:opts.MaxNodes]
	}

	nodes := make([]core.CodeNode, len(ranked))
	for i, c := range ranked {
		nodes[i] = c.node
	}

	return Result{Context: pack(nodes, opts.Budget), Nodes: nodes}
}

func maxSeedDistance(seeds []Seed) float32 {
	var max float32
	for _, s := range seeds {
		if s.Distance > max {
			max = s.Distance
		}
	}
	return max
}

func (e *Engine) applyGraphWeights(c *candidate) {
	if e.Graph == nil {
		return
	}
	if _, w, ok := e.Graph.Node(c.node.ID); ok {
		c.centrality = w.Centrality
		c.recency = w.Recency
	}
}

// expand performs exponential BFS from the current candidate set up to
// maxHops, assigning graph_score = alpha^distance * mean(parent.final)
// to every newly discovered node, stopping once maxNodes candidates exist.
func (e *Engine) expand(candidates map[string]*candidate, order *int, maxNodes int) {
	if e.Graph == nil {
		return
	}

	type frontierEntry struct {
		id   string
		hop  int
		root float64 // parent's final score at discovery time
	}

	var frontier []frontierEntry
	for id, c := range candidates {
		frontier = append(frontier, frontierEntry{id: id, hop: 0, root: c.final})
	}
	// deterministic seed order for tie-breaking during BFS.
	sort.Slice(frontier, func(i, j int) bool {
		return candidates[frontier[i].id].order < candidates[frontier[j].id].order
	})

	parentScores := make(map[string][]float64)

	for hop := 0; hop < maxHops && len(candidates) < maxNodes; hop++ {
		var next []frontierEntry
		for _, f := range frontier {
			if f.hop != hop {
				continue
			}
			for _, nid := range e.Graph.Neighbors(f.id) {
				if _, exists := candidates[nid]; exists {
					continue
				}
				parentScores[nid] = append(parentScores[nid], f.root)
				next = append(next, frontierEntry{id: nid, hop: hop + 1, root: f.root})
			}
		}

		for _, f := range next {
			if _, exists := candidates[f.id]; exists {
				continue
			}
			if len(candidates) >= maxNodes {
				break
			}
			node, w, ok := e.Graph.Node(f.id)
			if !ok {
				continue
			}
			mean := meanOf(parentScores[f.id])
			c := &candidate{
				node:       node,
				vectorSim:  0,
				graphScore: math.Pow(expansionAlpha, float64(f.hop)) * mean,
				centrality: w.Centrality,
				recency:    w.Recency,
				distance:   float64(f.hop),
				order:      *order,
			}
			*order++
			c.final = score(c)
			candidates[f.id] = c
		}
		// nodes discovered at this hop pass their own final score on to
		// the nodes they reach at the next hop.
		for i := range next {
			if c, ok := candidates[next[i].id]; ok {
				next[i].root = c.final
			}
		}
		frontier = append(frontier, next...)
	}
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func score(c *candidate) float64 {
	return weightVector*c.vectorSim + weightGraph*c.graphScore + weightCentrality*c.centrality + weightRecency*c.recency
}

func rank(candidates map[string]*candidate) []*candidate {
	out := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.final != b.final {
			return a.final > b.final
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return a.node.Name < b.node.Name
	})
	return out
}

func kindRank(k core.NodeKind) int {
	switch k {
	case core.NodeClass:
		return 0
	case core.NodeFunction:
		return 1
	default:
		return 2
	}
}

// pack groups nodes by file, orders each group by kind then original span,
// and greedily concatenates with "--- FILE: <path> ---" separators until the
// budget is filled: a file-group too large to fit is skipped, not treated as
// the end of the fill, so a smaller group further down the ranking still
// gets a chance.
func pack(nodes []core.CodeNode, budget int) string {
	byFile := make(map[string][]core.CodeNode)
	var fileOrder []string
	for _, n := range nodes {
		if _, seen := byFile[n.FilePath]; !seen {
			fileOrder = append(fileOrder, n.FilePath)
		}
		byFile[n.FilePath] = append(byFile[n.FilePath], n)
	}

	var b strings.Builder
	remaining := budget
	for _, file := range fileOrder {
		group := byFile[file]
		sort.SliceStable(group, func(i, j int) bool {
			ki, kj := kindRank(group[i].Kind), kindRank(group[j].Kind)
			if ki != kj {
				return ki < kj
			}
			return group[i].StartLine < group[j].StartLine
		})

		header := "--- FILE: " + file + " ---\n"
		var section strings.Builder
		section.WriteString(header)
		for _, n := range group {
			section.WriteString(n.Content)
			section.WriteString("\n")
		}

		rendered := section.String()
		if len(rendered) > remaining {
			continue
		}
		b.WriteString(rendered)
		remaining -= len(rendered)
	}
	return b.String()
}
