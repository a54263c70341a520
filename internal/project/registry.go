// Package project implements a file-backed registry of known projects,
// adapted from the teacher's Postgres-backed storage.Store to a single
// JSON document per process root, since a retrieval engine running
// locally has no database to lean on.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sevigo/coderag/internal/core"
)

// ErrNotFound is returned when a requested project is not registered.
var ErrNotFound = core.ErrNotFound

// Registry persists registered projects as a single JSON file under
// rootDir/projects.json, guarded by an in-process mutex and written
// atomically (temp file + rename) the way the sync engine's manifest is.
type Registry struct {
	mu      sync.RWMutex
	rootDir string
	byID    map[string]core.Project
}

type registryFile struct {
	Projects map[string]core.Project `json:"projects"`
}

// Open loads the registry from rootDir/projects.json, creating an empty
// one if it doesn't exist yet.
func Open(rootDir string) (*Registry, error) {
	r := &Registry{rootDir: rootDir, byID: make(map[string]core.Project)}
	path := filepath.Join(rootDir, "projects.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, core.Wrap("project.Open", core.KindIO, err)
	}
	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, core.Wrap("project.Open", core.KindIO, err)
	}
	if f.Projects != nil {
		r.byID = f.Projects
	}
	return r, nil
}

// Register adds or replaces a project and persists the registry.
func (r *Registry) Register(p core.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return r.saveLocked()
}

// Get returns the project with the given id.
func (r *Registry) Get(id string) (core.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return core.Project{}, core.Wrap("project.Get", core.KindNotFound, fmt.Errorf("project %q not registered", id))
	}
	return p, nil
}

// List returns every registered project.
func (r *Registry) List() []core.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Project, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// Remove deletes a project from the registry and persists the change. It
// does not touch the project's storage directory on disk.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return r.saveLocked()
}

func (r *Registry) saveLocked() error {
	if err := os.MkdirAll(r.rootDir, 0o755); err != nil {
		return core.Wrap("project.save", core.KindIO, err)
	}
	data, err := json.MarshalIndent(registryFile{Projects: r.byID}, "", "  ")
	if err != nil {
		return core.Wrap("project.save", core.KindIO, err)
	}
	tmp, err := os.CreateTemp(r.rootDir, "projects-*.tmp")
	if err != nil {
		return core.Wrap("project.save", core.KindIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return core.Wrap("project.save", core.KindIO, err)
	}
	if err := tmp.Close(); err != nil {
		return core.Wrap("project.save", core.KindIO, err)
	}
	return os.Rename(tmpPath, filepath.Join(r.rootDir, "projects.json"))
}
