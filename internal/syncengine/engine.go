// Package syncengine implements the Sync Engine (C6): it walks a filtered
// source tree, diffs files by fingerprint, drives the parser and embedding
// client for changed files, and maintains the on-disk manifest alongside
// the vector store and code graph snapshots.
package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/pathfilter"
	"github.com/sevigo/coderag/internal/telemetry"
	"github.com/sevigo/goframe/textsplitter"
	"golang.org/x/sync/errgroup"
)

// maxEmbedChars caps the text handed to the embedder per node, the same
// limit the teacher applies to parent-context text before storing it.
const maxEmbedChars = 2000

// EmbedBatch is the narrow slice of the provider client the engine needs.
type EmbedBatch interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor is the narrow slice of the parser the engine needs.
type Extractor interface {
	Extract(filePath, content string) []core.CodeNode
}

// VectorStore is the narrow slice of the Vector Store the engine needs.
type VectorStore interface {
	Add(nodes []core.CodeNode) error
	RemoveByFile(filePaths []string) error
	Save(dir string) error
}

// GraphBuilder is the narrow slice of the Code Graph the engine needs.
type GraphBuilder interface {
	Rebuild(nodes []core.CodeNode)
}

// BatchSize is the embedding batch size from spec.md §4.6 step 5.
const BatchSize = 50

// Engine drives one project's sync pipeline.
type Engine struct {
	Project     core.Project
	Extractor   Extractor
	Embedder    EmbedBatch
	VectorStore VectorStore
	Graph       GraphBuilder
	Logger      *slog.Logger
	NumWorkers  int

	// Progress, if set, is called after each embedding batch with the
	// number of nodes handled so far and the node total of the current
	// chunk of changed files; both restart with every chunk, and a batch
	// whose embedding failed is counted as handled.
	// A CLI driving a long sync wires this to a progress bar; nil is a
	// silent no-op.
	Progress func(done, total int)

	// Telemetry, if set, records file/node counts and run duration for
	// every Sync call.
	Telemetry *telemetry.Sink
}

// New builds an Engine with sane worker-pool defaults, in the spirit of the
// teacher's processFilesParallel sizing.
func New(project core.Project, extractor Extractor, embedder EmbedBatch, vs VectorStore, graph GraphBuilder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Project:     project,
		Extractor:   extractor,
		Embedder:    embedder,
		VectorStore: vs,
		Graph:       graph,
		Logger:      logger,
		NumWorkers:  8,
	}
}

type parsedFile struct {
	relPath string
	nodes   []core.CodeNode
}

// Sync executes spec.md §4.6's eight-step algorithm once and returns the
// counts of updated and deleted files.
func (e *Engine) Sync(ctx context.Context) (core.SyncResult, error) {
	result := core.SyncResult{}
	started := time.Now()
	if e.Telemetry != nil {
		defer func() { e.Telemetry.SyncDuration.Observe(time.Since(started).Seconds()) }()
	}

	// Step 1: fresh trie, ignored rules first, then included.
	trie := pathfilter.BuildFromRules(e.Project.IgnoredPaths, e.Project.IncludedPaths)

	// Step 2: walk the filtered tree.
	kept, err := e.walk(trie)
	if err != nil {
		return result, core.Wrap("syncengine.Sync", core.KindIO, err)
	}
	sort.Strings(kept)

	// Step 3: mirror converted copies + full-context concatenation.
	if err := e.writeConvertedMirror(kept); err != nil {
		return result, core.Wrap("syncengine.Sync", core.KindIO, err)
	}
	if err := e.writeTree(kept); err != nil {
		e.Logger.Warn("failed to write tree.txt", "error", err)
	}

	// Step 4: diff by fingerprint against the previous manifest.
	prevManifest, err := LoadManifest(e.Project.StorageDir, e.Project.ID)
	if err != nil {
		return result, core.Wrap("syncengine.Sync", core.KindIO, err)
	}
	nodeIndex, err := loadNodeIndex(e.Project.StorageDir)
	if err != nil {
		return result, core.Wrap("syncengine.Sync", core.KindIO, err)
	}
	prevProgress, err := loadProgress(e.Project.StorageDir)
	if err != nil {
		e.Logger.Warn("failed to load scan progress, starting fresh", "error", err)
		prevProgress = &Progress{Files: make(map[string]bool)}
	}
	if prevProgress.Status == StatusInProgress {
		e.Logger.Warn("resuming sync interrupted mid-run",
			"processed_files", prevProgress.ProcessedFiles, "total_files", prevProgress.TotalFiles)
	}

	newManifest := core.NewManifest(e.Project.ID)
	var toParse []string
	keptSet := make(map[string]bool, len(kept))
	toParseFingerprints := make(map[string]core.Fingerprint, len(kept))
	for _, rel := range kept {
		keptSet[rel] = true
		fp, err := Fingerprint(filepath.Join(e.Project.SourceDir, rel))
		if err != nil {
			result.Logs = append(result.Logs, fmt.Sprintf("skip %s: %v", rel, err))
			continue
		}
		if prev, ok := prevManifest.Entries[rel]; !ok || Changed(prev, fp) {
			toParse = append(toParse, rel)
			toParseFingerprints[rel] = fp
			continue
		}
		// Unchanged relative to the manifest: carry its fingerprint over
		// immediately so a crash partway through toParse still leaves the
		// manifest accurate for every file that didn't need reprocessing.
		newManifest.Entries[rel] = fp
	}

	// Step 7 (computed early so deletions are known before the vector
	// store mutation below): files manifest-tracked but no longer kept.
	var deletedFiles []string
	for rel := range prevManifest.Entries {
		if !keptSet[rel] {
			deletedFiles = append(deletedFiles, rel)
		}
	}
	result.Deleted = len(deletedFiles)
	if len(deletedFiles) > 0 {
		if err := e.VectorStore.RemoveByFile(deletedFiles); err != nil {
			return result, core.Wrap("syncengine.Sync", core.KindIO, err)
		}
		for _, rel := range deletedFiles {
			delete(nodeIndex, rel)
		}
	}

	// Step 4/5: parse changed files in a worker pool, batch-embed their
	// node content, and update the node index. processChanged checkpoints
	// the manifest, node index, and vector store after every chunk of
	// BatchSize files, so a killed sync resumes from the last completed
	// chunk instead of restarting: the fingerprint diff above already
	// recomputes a shorter toParse list against whatever the last
	// checkpoint left in the manifest.
	progress := &Progress{
		Status:         StatusInProgress,
		TotalFiles:     len(kept),
		ProcessedFiles: len(kept) - len(toParse),
		Files:          keptSet,
	}
	if err := e.processChanged(ctx, toParse, toParseFingerprints, nodeIndex, newManifest, progress); err != nil {
		return result, err
	}
	result.Updated = len(toParse)
	if e.Telemetry != nil && len(toParse) > 0 {
		e.Telemetry.SyncFilesProcessed.Add(float64(len(toParse)))
	}

	// Step 6: rebuild the graph over every currently-tracked node.
	allNodes := flattenIndex(nodeIndex)
	e.Graph.Rebuild(allNodes)

	// Step 8: persist the final manifest and node index; processChanged
	// has already saved every completed chunk, so this is the closing
	// write for the tail chunk plus the graph rebuild above.
	if err := SaveManifest(e.Project.StorageDir, newManifest); err != nil {
		return result, core.Wrap("syncengine.Sync", core.KindIO, err)
	}
	if err := saveNodeIndex(e.Project.StorageDir, nodeIndex); err != nil {
		return result, core.Wrap("syncengine.Sync", core.KindIO, err)
	}
	if err := e.VectorStore.Save(filepath.Join(e.Project.StorageDir, "vectors")); err != nil {
		return result, core.Wrap("syncengine.Sync", core.KindIO, err)
	}

	progress.Status = StatusCompleted
	progress.ProcessedFiles = len(kept)
	if err := saveProgress(e.Project.StorageDir, progress, time.Now()); err != nil {
		e.Logger.Warn("failed to persist scan progress", "error", err)
	}

	return result, nil
}

func (e *Engine) walk(trie *pathfilter.Trie) ([]string, error) {
	var kept []string
	allowed := make(map[string]bool, len(e.Project.AllowedExtensions))
	for _, ext := range e.Project.AllowedExtensions {
		allowed[strings.TrimPrefix(ext, ".")] = true
	}

	err := filepath.Walk(e.Project.SourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(e.Project.SourceDir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			// Hidden directories are pruned outright unless the directory's
			// own path classifies as INCLUDE (an INCLUDE rule only on a
			// deeper path under it does not keep it); a plain "ignore
			// this directory" rule is NOT pruned here, because a deeper
			// INCLUDE rule under it must still be reachable by the walk
			// (the trie resolves the override at the file leaf).
			if isHidden(info.Name()) && trie.Classify(rel) != pathfilter.Include {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(info.Name()), ".")
		if len(allowed) > 0 && !allowed[ext] {
			return nil
		}
		if trie.Classify(rel) == pathfilter.Ignore {
			return nil
		}
		kept = append(kept, rel)
		return nil
	})
	return kept, err
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "."
}

func (e *Engine) writeConvertedMirror(kept []string) error {
	convertedDir := filepath.Join(e.Project.StorageDir, "converted")
	if err := os.MkdirAll(convertedDir, 0o755); err != nil {
		return err
	}

	var full strings.Builder
	for _, rel := range kept {
		content, err := os.ReadFile(filepath.Join(e.Project.SourceDir, rel))
		if err != nil {
			continue
		}
		dest := filepath.Join(convertedDir, rel+".txt")
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return err
		}
		full.WriteString(fmt.Sprintf("\n\n--- FILE: %s ---\n", rel))
		full.Write(content)
	}

	tmp, err := os.CreateTemp(e.Project.StorageDir, "_full_context-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.WriteString(full.String()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(e.Project.StorageDir, "_full_context.txt"))
}

func (e *Engine) writeTree(kept []string) error {
	var b strings.Builder
	for _, rel := range kept {
		depth := strings.Count(rel, "/")
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(filepath.Base(rel))
		b.WriteString("\n")
	}
	return os.WriteFile(filepath.Join(e.Project.StorageDir, "tree.txt"), []byte(b.String()), 0o644)
}

// processChanged parses changed files on a bounded worker pool and embeds
// their node content in order-preserving batches of BatchSize, one chunk of
// files at a time. After each chunk's nodes are embedded and added to the
// vector store, it stamps the chunk's fingerprints into manifest and
// checkpoints manifest, node index, vector store, and scan progress to
// disk before moving to the next chunk, so a sync killed mid-run leaves
// behind a manifest that only still lists the genuinely unfinished files
// as changed. A batch that fails to embed is logged and its nodes are left
// with empty embeddings, per spec.md §4.6's partial-failure invariant; the
// sync continues with the remaining batches and chunks.
func (e *Engine) processChanged(ctx context.Context, files []string, fingerprints map[string]core.Fingerprint, nodeIndex map[string][]core.CodeNode, manifest *core.Manifest, progress *Progress) error {
	for start := 0; start < len(files); start += BatchSize {
		end := start + BatchSize
		if end > len(files) {
			end = len(files)
		}
		chunk := files[start:end]

		if err := e.processChunk(ctx, chunk, nodeIndex); err != nil {
			return err
		}

		for _, rel := range chunk {
			manifest.Entries[rel] = fingerprints[rel]
		}
		progress.ProcessedFiles += len(chunk)

		if err := e.checkpoint(manifest, nodeIndex, progress); err != nil {
			e.Logger.Warn("sync: failed to persist checkpoint, continuing", "error", err)
		}
	}
	return nil
}

// processChunk parses and embeds one chunk of files and folds the result
// into nodeIndex and the vector store; it does not touch the manifest or
// progress bookkeeping, which processChanged owns.
func (e *Engine) processChunk(ctx context.Context, files []string, nodeIndex map[string][]core.CodeNode) error {
	if len(files) == 0 {
		return nil
	}

	parsedCh := make(chan parsedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.NumWorkers)

	for _, rel := range files {
		rel := rel
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			content, err := os.ReadFile(filepath.Join(e.Project.SourceDir, rel))
			if err != nil {
				e.Logger.Warn("sync: failed to read file, skipping", "file", rel, "error", err)
				return nil
			}
			nodes := e.Extractor.Extract(rel, string(content))
			parsedCh <- parsedFile{relPath: rel, nodes: nodes}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return core.Wrap("syncengine.processChunk", core.KindIO, err)
	}
	close(parsedCh)

	var allNew []core.CodeNode
	byFile := make(map[string][]core.CodeNode)
	for pf := range parsedCh {
		byFile[pf.relPath] = pf.nodes
		allNew = append(allNew, pf.nodes...)
	}

	if err := e.embedInBatches(ctx, allNew); err != nil {
		e.Logger.Error("sync: embedding batch failed, nodes kept with empty embeddings", "error", err)
	}

	for rel, nodes := range byFile {
		nodeIndex[rel] = nodes
	}
	if len(allNew) > 0 {
		if err := e.VectorStore.Add(allNew); err != nil {
			return core.Wrap("syncengine.processChunk", core.KindIO, err)
		}
	}
	return nil
}

// checkpoint persists the manifest, node index, vector store, and scan
// progress built up so far, letting a crash immediately after this call
// lose at most the in-flight chunk.
func (e *Engine) checkpoint(manifest *core.Manifest, nodeIndex map[string][]core.CodeNode, progress *Progress) error {
	if err := SaveManifest(e.Project.StorageDir, manifest); err != nil {
		return err
	}
	if err := saveNodeIndex(e.Project.StorageDir, nodeIndex); err != nil {
		return err
	}
	if err := e.VectorStore.Save(filepath.Join(e.Project.StorageDir, "vectors")); err != nil {
		return err
	}
	return saveProgress(e.Project.StorageDir, progress, time.Now())
}

func (e *Engine) embedInBatches(ctx context.Context, nodes []core.CodeNode) error {
	total := len(nodes)
	for start := 0; start < len(nodes); start += BatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + BatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]
		texts := make([]string, len(batch))
		for i, n := range batch {
			texts[i] = textsplitter.TruncateParentText(n.Content, maxEmbedChars)
		}

		vectors, err := e.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			// Partial failure: this batch's nodes keep empty embeddings
			// and are ignored by the vector store until a later sync
			// succeeds.
			if e.Progress != nil {
				e.Progress(end, total)
			}
			continue
		}
		for i := range batch {
			nodes[start+i].Embedding = vectors[i]
		}
		if e.Telemetry != nil {
			e.Telemetry.SyncNodesEmbedded.Add(float64(len(batch)))
		}
		if e.Progress != nil {
			e.Progress(end, total)
		}
	}
	return nil
}

func flattenIndex(nodeIndex map[string][]core.CodeNode) []core.CodeNode {
	var all []core.CodeNode
	for _, nodes := range nodeIndex {
		all = append(all, nodes...)
	}
	return all
}

func loadNodeIndex(storageDir string) (map[string][]core.CodeNode, error) {
	path := filepath.Join(storageDir, "node_index.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]core.CodeNode), nil
		}
		return nil, err
	}
	idx := make(map[string][]core.CodeNode)
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func saveNodeIndex(storageDir string, idx map[string][]core.CodeNode) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(storageDir, "node_index-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(storageDir, "node_index.json"))
}
