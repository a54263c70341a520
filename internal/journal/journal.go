// Package journal implements the Atomic Journal (C10): a per-file
// backup/write/validate/commit state machine that tolerates a crash at any
// point by leaving a recoverable `*.journal` sidecar until the target file
// is safely committed.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/telemetry"
)

// errPending is returned by backUp when a journal sidecar is already
// present for the target, meaning a prior surgery against the same path
// is still in flight or crashed before Recover ran.
var errPending = errors.New("journal: a pending journal already exists for this path")

// State is one step of the per-file transition sequence.
type State string

const (
	StateClean     State = "clean"
	StateBackedUp  State = "backed_up"
	StateWritten   State = "written"
	StateValidated State = "validated"
	StateCommitted State = "committed"
	StateRolledBack State = "rolled_back"
)

// Validator is the narrow slice of the Code Parser the journal needs for
// its pre-flight check.
type Validator interface {
	Validate(language, content string) bool
}

// Journal applies edits to files under root, never touching anything
// outside it.
type Journal struct {
	Root      string
	Validator Validator

	// Telemetry, if set, counts every rollback (validation failure, write
	// failure, or crash recovery).
	Telemetry *telemetry.Sink

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New returns a Journal rooted at root.
func New(root string, validator Validator) *Journal {
	return &Journal{Root: root, Validator: validator, locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the per-target mutex for target, creating it on first
// use. Every Apply call for the same resolved path serializes through this
// lock, so two concurrent edits against one file can't interleave their
// backup/write/commit steps.
func (j *Journal) lockFor(target string) *sync.Mutex {
	j.locksMu.Lock()
	defer j.locksMu.Unlock()
	l, ok := j.locks[target]
	if !ok {
		l = &sync.Mutex{}
		j.locks[target] = l
	}
	return l
}

func journalPath(target string) string {
	return target + ".journal"
}

// Apply runs the full state machine for one file write: pre-flight
// validation on the proposed bytes (no disk mutation yet), backup of the
// current contents, write, post-write validation, and commit or rollback.
// Empty payloads are always rejected before any state transition.
func (j *Journal) Apply(relPath, language string, content []byte) (core.EditResult, error) {
	if len(content) == 0 {
		return core.EditResult{Committed: false, Reason: "empty payload rejected"}, nil
	}

	target, err := j.resolve(relPath)
	if err != nil {
		return core.EditResult{}, core.Wrap("journal.Apply", core.KindConflict, err)
	}

	lock := j.lockFor(target)
	lock.Lock()
	defer lock.Unlock()

	// Pre-flight: validate the proposed bytes in memory before any disk
	// mutation. Failure short-circuits the whole operation.
	if j.Validator != nil && !j.Validator.Validate(language, string(content)) {
		return core.EditResult{Committed: false, Reason: "syntax validation failed"}, nil
	}

	jPath := journalPath(target)

	if err := j.backUp(target, jPath); err != nil {
		if errors.Is(err, errPending) {
			return core.EditResult{}, core.Wrap("journal.Apply", core.KindConflict, err)
		}
		return core.EditResult{}, core.Wrap("journal.Apply", core.KindIO, err)
	}

	if err := j.write(target, content); err != nil {
		j.rollback(target, jPath)
		return core.EditResult{}, core.Wrap("journal.Apply", core.KindIO, err)
	}

	if j.Validator != nil && !j.Validator.Validate(language, string(content)) {
		j.rollback(target, jPath)
		return core.EditResult{Committed: false, Reason: "post-write validation failed"}, nil
	}

	if err := j.commit(jPath); err != nil {
		return core.EditResult{}, core.Wrap("journal.Apply", core.KindIO, err)
	}

	return core.EditResult{Committed: true}, nil
}

// backUp copies the current file contents to <path>.journal. A missing
// target file legitimizes new-file creation: the sidecar is created empty
// so rollback can delete the new file instead of restoring bytes. If a
// sidecar already exists, this is a second surgery against a path with an
// unresolved prior one (Recover didn't run, or a concurrent Apply is
// already mid-flight from another Journal instance) and must not
// overwrite it, since that would destroy the only copy of the pre-crash
// original content.
func (j *Journal) backUp(target, jPath string) error {
	if _, err := os.Stat(jPath); err == nil {
		return errPending
	} else if !os.IsNotExist(err) {
		return err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		data = nil
	}
	return os.WriteFile(jPath, data, 0o644)
}

func (j *Journal) write(target string, content []byte) error {
	return os.WriteFile(target, content, 0o644)
}

func (j *Journal) commit(jPath string) error {
	return os.Remove(jPath)
}

// rollback restores the journal's backup over the target (or deletes the
// target if the backup represents "file did not exist before"), then
// deletes the journal sidecar.
func (j *Journal) rollback(target, jPath string) {
	info, err := os.Stat(jPath)
	if err != nil {
		return
	}
	if j.Telemetry != nil {
		j.Telemetry.JournalRollbacks.Inc()
	}
	if info.Size() == 0 {
		if _, statErr := os.Stat(target); statErr == nil {
			_ = os.Remove(target)
		}
	} else {
		data, err := os.ReadFile(jPath)
		if err == nil {
			_ = os.WriteFile(target, data, 0o644)
		}
	}
	_ = os.Remove(jPath)
}

// Recover scans root for lingering *.journal sidecars left by a crash
// during the WRITTEN phase, and rolls each one back. It should be called
// once at orchestrator startup before any new edit is accepted.
func (j *Journal) Recover() ([]string, error) {
	var recovered []string
	err := filepath.Walk(j.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".journal") {
			return nil
		}
		target := strings.TrimSuffix(path, ".journal")
		j.rollback(target, path)
		rel, relErr := filepath.Rel(j.Root, target)
		if relErr != nil {
			rel = target
		}
		recovered = append(recovered, rel)
		return nil
	})
	if err != nil {
		return recovered, core.Wrap("journal.Recover", core.KindIO, err)
	}
	return recovered, nil
}

// resolve validates relPath stays within j.Root, resolving symlinks and
// rejecting traversal, mirroring the containment check the teacher applies
// before any repository-relative disk mutation.
func (j *Journal) resolve(relPath string) (string, error) {
	absRoot, err := filepath.Abs(j.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	absPath := relPath
	if !filepath.IsAbs(relPath) {
		absPath = filepath.Join(absRoot, relPath)
	}
	absPath, err = filepath.Abs(absPath)
	if err != nil {
		return "", fmt.Errorf("resolve target: %w", err)
	}

	checked := absPath
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		checked = resolved
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("symlink resolution failed (possible traversal): %w", err)
	}

	rel, err := filepath.Rel(absRoot, checked)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q escapes journal root", relPath)
	}
	return absPath, nil
}
