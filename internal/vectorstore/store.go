// Package vectorstore implements the Vector Store (C7): an incremental ANN
// index over node embeddings, back-mapped to CodeNodes, with atomic
// directory-swap persistence.
package vectorstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
	"github.com/sevigo/coderag/internal/core"
)

// Candidate is one result of a Search call: a node and the index's own
// distance metric value for it (smaller is closer, per spec.md §4.7).
type Candidate struct {
	Node     core.CodeNode
	Distance float32
}

// Store wraps a coder/hnsw graph with the bidirectional id<->node and
// name->id maps the contract requires. Readers share the read lock; Add,
// Save, and Load take the exclusive lock.
type Store struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[int]
	idToNode map[int]core.CodeNode
	nameToID map[string]int
	nextID   int
}

// New returns an empty Store.
func New() *Store {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.EuclideanDistance
	return &Store{
		graph:    g,
		idToNode: make(map[int]core.CodeNode),
		nameToID: make(map[string]int),
	}
}

// Add inserts each node whose embedding has the project's dimension D,
// skipping nodes with no embedding (left behind by a partially-failed
// sync batch, per spec.md §4.6). Each inserted node is assigned a
// monotonic integer id.
func (s *Store) Add(nodes []core.CodeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimLocked()
	for _, n := range nodes {
		if len(n.Embedding) == 0 {
			continue
		}
		if dim != 0 && len(n.Embedding) != dim {
			return fmt.Errorf("vectorstore: node %s has embedding dim %d, want %d", n.ID, len(n.Embedding), dim)
		}

		if existingID, ok := s.nameToID[n.ID]; ok {
			delete(s.idToNode, existingID)
		}

		id := s.nextID
		s.nextID++
		s.graph.Add(hnsw.MakeNode(id, hnsw.Vector(n.Embedding)))
		s.idToNode[id] = n
		s.nameToID[n.ID] = id
	}
	return nil
}

func (s *Store) dimLocked() int {
	for _, n := range s.idToNode {
		return len(n.Embedding)
	}
	return 0
}

// RemoveByFile drops every indexed node whose FilePath matches one of
// filePaths, used by the sync engine to evict deleted files.
func (s *Store) RemoveByFile(filePaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	toDelete := make(map[string]bool, len(filePaths))
	for _, f := range filePaths {
		toDelete[f] = true
	}

	for nodeID, id := range s.nameToID {
		node, ok := s.idToNode[id]
		if !ok || !toDelete[node.FilePath] {
			continue
		}
		s.graph.Delete(id)
		delete(s.idToNode, id)
		delete(s.nameToID, nodeID)
	}
	return nil
}

// Search returns the k nearest entries to query under the index's distance
// metric (L2, per the SPEC_FULL.md §9 documented choice).
func (s *Store) Search(query []float32, k int) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := s.graph.Search(hnsw.Vector(query), k)
	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		node, ok := s.idToNode[r.Key]
		if !ok {
			continue
		}
		out = append(out, Candidate{Node: node, Distance: l2(query, []float32(r.Value))})
	}
	return out
}

func l2(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(1e9)
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Len returns the number of indexed nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idToNode)
}

type snapshotEntry struct {
	ID   int           `json:"id"`
	Node core.CodeNode `json:"node"`
}

// Save persists the index and its maps into dir as a single atomic
// directory swap: a sibling temp directory is fully populated, then
// renamed over dir.
func (s *Store) Save(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	tmpDir, err := os.MkdirTemp(parent, "vectors-*.tmp")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	graphFile, err := os.Create(filepath.Join(tmpDir, "hnsw.bin"))
	if err != nil {
		return err
	}
	if _, err := s.graph.Export(graphFile); err != nil {
		graphFile.Close()
		return err
	}
	if err := graphFile.Close(); err != nil {
		return err
	}

	entries := make([]snapshotEntry, 0, len(s.idToNode))
	for id, node := range s.idToNode {
		entries = append(entries, snapshotEntry{ID: id, Node: node})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "nodes.json"), data, 0o644); err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.Rename(tmpDir, dir)
}

// Load restores the index and maps previously written by Save. A missing
// directory is treated as an empty store, not an error, so a project's
// first sync has nothing to load.
func (s *Store) Load(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "nodes.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	graphFile, err := os.Open(filepath.Join(dir, "hnsw.bin"))
	if err != nil {
		return err
	}
	defer graphFile.Close()
	graph, err := hnsw.Import[int](graphFile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = graph
	s.idToNode = make(map[int]core.CodeNode, len(entries))
	s.nameToID = make(map[string]int, len(entries))
	maxID := 0
	for _, e := range entries {
		s.idToNode[e.ID] = e.Node
		s.nameToID[e.Node.ID] = e.ID
		if e.ID >= maxID {
			maxID = e.ID + 1
		}
	}
	s.nextID = maxID
	return nil
}
