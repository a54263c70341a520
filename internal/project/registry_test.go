package project

import (
	"testing"

	"github.com/sevigo/coderag/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)

	p := core.Project{ID: "p1", SourceDir: "/src", StorageDir: "/storage"}
	require.NoError(t, r.Register(p))

	got, err := r.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestRegistry_GetMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)

	_, err = r.Get("nope")
	assert.True(t, core.Is(err, core.KindNotFound))
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	r1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, r1.Register(core.Project{ID: "p1"}))

	r2, err := Open(dir)
	require.NoError(t, err)
	_, err = r2.Get("p1")
	require.NoError(t, err)
}

func TestRegistry_RemoveDeletesEntry(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, r.Register(core.Project{ID: "p1"}))
	require.NoError(t, r.Remove("p1"))

	_, err = r.Get("p1")
	assert.Error(t, err)
}

func TestRegistry_ListReturnsAll(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, r.Register(core.Project{ID: "p1"}))
	require.NoError(t, r.Register(core.Project{ID: "p2"}))

	assert.Len(t, r.List(), 2)
}
