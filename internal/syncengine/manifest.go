package syncengine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sevigo/coderag/internal/core"
)

// LoadManifest reads manifest.json from dir, returning an empty manifest if
// the file does not yet exist.
func LoadManifest(dir, projectID string) (*core.Manifest, error) {
	path := filepath.Join(dir, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.NewManifest(projectID), nil
		}
		return nil, fmt.Errorf("syncengine: read manifest: %w", err)
	}
	m := core.NewManifest(projectID)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("syncengine: parse manifest: %w", err)
	}
	return m, nil
}

// SaveManifest writes manifest.json atomically: a temp file in the same
// directory, flushed, then renamed over the live file.
func SaveManifest(dir string, m *core.Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("syncengine: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("syncengine: marshal manifest: %w", err)
	}

	final := filepath.Join(dir, "manifest.json")
	tmp, err := os.CreateTemp(dir, "manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("syncengine: create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("syncengine: write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncengine: fsync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("syncengine: close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("syncengine: rename manifest: %w", err)
	}
	return nil
}
