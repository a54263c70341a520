// Package core defines the shared domain types and interfaces used across
// the retrieval engine: code nodes, manifests, jobs, and the error taxonomy.
// Keeping them here avoids import cycles between the sync, graph, and
// retrieval packages, which all need to agree on what a CodeNode is.
package core

import (
	"context"
	"fmt"
)

// NodeKind classifies a CodeNode.
type NodeKind string

const (
	NodeFile     NodeKind = "file"
	NodeClass    NodeKind = "class"
	NodeFunction NodeKind = "function"
	NodeOther    NodeKind = "other"
)

// CodeNode is the unit of retrieval: a file, class, function, or other span
// of source extracted by the parser.
type CodeNode struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Kind         NodeKind       `json:"kind"`
	FilePath     string         `json:"file_path"`
	Content      string         `json:"content"`
	Docstring    string         `json:"docstring,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Embedding    []float32      `json:"embedding,omitempty"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	StartLine    int            `json:"start_line,omitempty"`
	EndLine      int            `json:"end_line,omitempty"`
	ModTime      int64          `json:"mtime,omitempty"`
}

// Validate enforces the node invariants from the data model: non-empty
// content, and an embedding that is either absent or exactly dimension D.
func (n *CodeNode) Validate(dim int) error {
	if n.ID == "" {
		return fmt.Errorf("code node: empty id")
	}
	if n.Content == "" {
		return fmt.Errorf("code node %s: empty content", n.ID)
	}
	if dim > 0 && len(n.Embedding) != 0 && len(n.Embedding) != dim {
		return fmt.Errorf("code node %s: embedding dim %d, want 0 or %d", n.ID, len(n.Embedding), dim)
	}
	return nil
}

// MakeNodeID derives a stable node id from its file path and qualified name,
// matching the data model's "file_path + qualified_name" rule.
func MakeNodeID(filePath, qualifiedName string) string {
	if qualifiedName == "" {
		return filePath
	}
	return filePath + "#" + qualifiedName
}

// Fingerprint is the opaque (size, mtime) tuple used for change detection.
// It is compared only by equality, never interpreted.
type Fingerprint struct {
	Size    int64  `json:"size"`
	ModTime int64  `json:"mtime"`
	XXHash  uint64 `json:"xxhash,omitempty"`
}

// Manifest maps repo-relative paths to the fingerprint observed at the last
// successful sync.
type Manifest struct {
	ProjectID string                 `json:"project_id"`
	Entries   map[string]Fingerprint `json:"entries"`
}

// NewManifest returns an empty manifest for a project.
func NewManifest(projectID string) *Manifest {
	return &Manifest{ProjectID: projectID, Entries: make(map[string]Fingerprint)}
}

// RepoConfig is the structure of a project's .coderag.yml override file.
type RepoConfig struct {
	CustomInstructions []string `yaml:"custom_instructions"`
	ExcludeDirs        []string `yaml:"exclude_dirs"`
	ExcludeExts        []string `yaml:"exclude_exts"`
}

// DefaultRepoConfig returns a RepoConfig with empty override lists.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		CustomInstructions: []string{},
		ExcludeDirs:        []string{},
		ExcludeExts:        []string{},
	}
}

// Project describes a registered source tree.
type Project struct {
	ID                string   `json:"id"`
	SourceDir         string   `json:"source_dir"`
	StorageDir        string   `json:"storage_dir"`
	AllowedExtensions []string `json:"allowed_extensions"`
	IgnoredPaths      []string `json:"ignored_paths"`
	IncludedPaths     []string `json:"included_paths"`
}

// SyncResult reports the outcome of one Sync Engine run.
type SyncResult struct {
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
	Logs    []string `json:"logs"`
}

// Usage reports token accounting for a generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResult is the outcome of a C4 generate() call.
type GenerateResult struct {
	Text  string
	Usage Usage
	OK    bool
}

// AnswerResult is the outcome of the orchestrator's answer() operation.
type AnswerResult struct {
	Text  string
	Usage Usage
	Nodes []NodeSummary
}

// NodeSummary is the outcome of the orchestrator's candidates() operation:
// enough to show a caller which nodes backed an answer without handing
// back their full content.
type NodeSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      NodeKind `json:"kind"`
	FilePath  string   `json:"file_path"`
	StartLine int      `json:"start_line,omitempty"`
	EndLine   int      `json:"end_line,omitempty"`
}

// EditResult is the outcome of the orchestrator's apply_edit() operation.
type EditResult struct {
	Committed bool
	Reason    string
}

// Job is a single unit of work the orchestrator's dispatcher can run on a
// worker goroutine. It generalizes the teacher's GitHub-review job contract
// to arbitrary query/sync requests.
type Job interface {
	Run(ctx context.Context) error
}

// JobDispatcher accepts jobs for asynchronous, worker-pool execution.
type JobDispatcher interface {
	Dispatch(ctx context.Context, job Job) error
	Stop()
}
