package vectorstore

import (
	"path/filepath"
	"testing"

	"github.com/sevigo/coderag/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, file string, emb []float32) core.CodeNode {
	return core.CodeNode{ID: id, FilePath: file, Embedding: emb}
}

func TestStore_AddAndSearch(t *testing.T) {
	s := New()
	require.NoError(t, s.Add([]core.CodeNode{
		node("a", "a.py", []float32{1, 0, 0}),
		node("b", "b.py", []float32{0, 1, 0}),
		node("c", "c.py", []float32{0.9, 0.1, 0}),
	}))
	assert.Equal(t, 3, s.Len())

	results := s.Search([]float32{1, 0, 0}, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Node.ID)
}

func TestStore_AddSkipsEmptyEmbedding(t *testing.T) {
	s := New()
	require.NoError(t, s.Add([]core.CodeNode{node("a", "a.py", nil)}))
	assert.Equal(t, 0, s.Len())
}

func TestStore_AddRejectsDimensionMismatch(t *testing.T) {
	s := New()
	require.NoError(t, s.Add([]core.CodeNode{node("a", "a.py", []float32{1, 2, 3})}))
	err := s.Add([]core.CodeNode{node("b", "b.py", []float32{1, 2})})
	assert.Error(t, err)
}

func TestStore_RemoveByFile(t *testing.T) {
	s := New()
	require.NoError(t, s.Add([]core.CodeNode{
		node("a", "a.py", []float32{1, 0}),
		node("b", "b.py", []float32{0, 1}),
	}))
	require.NoError(t, s.RemoveByFile([]string{"a.py"}))
	assert.Equal(t, 1, s.Len())
}

func TestStore_ReAddSameIDReplaces(t *testing.T) {
	s := New()
	require.NoError(t, s.Add([]core.CodeNode{node("a", "a.py", []float32{1, 0})}))
	require.NoError(t, s.Add([]core.CodeNode{node("a", "a.py", []float32{0, 1})}))
	assert.Equal(t, 1, s.Len())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.Add([]core.CodeNode{
		node("a", "a.py", []float32{1, 0, 0}),
		node("b", "b.py", []float32{0, 1, 0}),
	}))

	dir := filepath.Join(t.TempDir(), "vectors")
	require.NoError(t, s.Save(dir))

	loaded := New()
	require.NoError(t, loaded.Load(dir))
	assert.Equal(t, 2, loaded.Len())

	results := loaded.Search([]float32{1, 0, 0}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Node.ID)
}

func TestStore_LoadMissingDirIsEmpty(t *testing.T) {
	s := New()
	require.NoError(t, s.Load(filepath.Join(t.TempDir(), "nope")))
	assert.Equal(t, 0, s.Len())
}
