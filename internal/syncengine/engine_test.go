package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedBatch struct{ calls int }

func (f *fakeEmbedBatch) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeVectorStore struct {
	added   []core.CodeNode
	removed []string
}

func (f *fakeVectorStore) Add(nodes []core.CodeNode) error {
	f.added = append(f.added, nodes...)
	return nil
}
func (f *fakeVectorStore) RemoveByFile(files []string) error {
	f.removed = append(f.removed, files...)
	return nil
}
func (f *fakeVectorStore) Save(dir string) error { return os.MkdirAll(dir, 0o755) }

type fakeGraph struct{ rebuilt []core.CodeNode }

func (f *fakeGraph) Rebuild(nodes []core.CodeNode) { f.rebuilt = nodes }

func newTestEngine(t *testing.T, sourceDir, storageDir string, ignored, included []string) (*Engine, *fakeVectorStore) {
	t.Helper()
	vs := &fakeVectorStore{}
	proj := core.Project{
		ID:                "p1",
		SourceDir:         sourceDir,
		StorageDir:        storageDir,
		AllowedExtensions: []string{"py"},
		IgnoredPaths:      ignored,
		IncludedPaths:     included,
	}
	return New(proj, parser.New(nil), &fakeEmbedBatch{}, vs, &fakeGraph{}, nil), vs
}

func TestSync_S1_ColdSync(t *testing.T) {
	src := t.TempDir()
	storage := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.py"), make([]byte, 140), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.py"), make([]byte, 900), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".git", "x"), []byte("x"), 0o644))

	e, _ := newTestEngine(t, src, storage, nil, nil)
	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, result.Deleted)

	m, err := LoadManifest(storage, "p1")
	require.NoError(t, err)
	assert.Len(t, m.Entries, 2)

	full, err := os.ReadFile(filepath.Join(storage, "_full_context.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(full), "--- FILE: a.py ---")
	assert.Contains(t, string(full), "--- FILE: b.py ---")
}

func TestSync_S2_TouchSameBytes(t *testing.T) {
	src := t.TempDir()
	storage := t.TempDir()
	path := filepath.Join(src, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))

	e, _ := newTestEngine(t, src, storage, nil, nil)
	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	// rewrite identical bytes, forcing a new mtime.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Deleted)
}

func TestSync_S3_IncludeOverride(t *testing.T) {
	src := t.TempDir()
	storage := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "build"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "build", "skip.py"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "build", "keep.py"), []byte("keep"), 0o644))

	e, _ := newTestEngine(t, src, storage, []string{"build"}, []string{"build/keep.py"})
	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	m, err := LoadManifest(storage, "p1")
	require.NoError(t, err)
	_, hasKeep := m.Entries["build/keep.py"]
	_, hasSkip := m.Entries["build/skip.py"]
	assert.True(t, hasKeep)
	assert.False(t, hasSkip)
}

func TestProcessChanged_CheckpointsManifestAndProgressAfterEachChunk(t *testing.T) {
	src := t.TempDir()
	storage := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.py"), []byte("x=1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.py"), []byte("y=2"), 0o644))

	e, _ := newTestEngine(t, src, storage, nil, nil)
	fpA, err := Fingerprint(filepath.Join(src, "a.py"))
	require.NoError(t, err)
	fpB, err := Fingerprint(filepath.Join(src, "b.py"))
	require.NoError(t, err)
	fingerprints := map[string]core.Fingerprint{"a.py": fpA, "b.py": fpB}

	manifest := core.NewManifest("p1")
	nodeIndex := make(map[string][]core.CodeNode)
	progress := &Progress{Status: StatusInProgress, TotalFiles: 2, Files: map[string]bool{"a.py": true, "b.py": true}}

	err = e.processChanged(context.Background(), []string{"a.py", "b.py"}, fingerprints, nodeIndex, manifest, progress)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.ProcessedFiles)

	onDisk, err := LoadManifest(storage, "p1")
	require.NoError(t, err)
	assert.Len(t, onDisk.Entries, 2)

	diskProgress, err := loadProgress(storage)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, diskProgress.Status)
	assert.Equal(t, 2, diskProgress.ProcessedFiles)
}

func TestSync_DeletionRemovesFromManifestAndVectorStore(t *testing.T) {
	src := t.TempDir()
	storage := t.TempDir()
	path := filepath.Join(src, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))

	e, vs := newTestEngine(t, src, storage, nil, nil)
	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	result, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Contains(t, vs.removed, "a.py")
}
