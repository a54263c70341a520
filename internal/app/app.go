// Package app initializes and orchestrates the main components of the
// retrieval engine: process-wide configuration and providers, the project
// registry, and the per-project component bundle (sync engine, vector
// store, graph, retrieval engine, journal, orchestrator).
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/sevigo/goframe/parsers"

	"github.com/sevigo/coderag/internal/cache"
	"github.com/sevigo/coderag/internal/config"
	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/gitutil"
	"github.com/sevigo/coderag/internal/graph"
	"github.com/sevigo/coderag/internal/journal"
	"github.com/sevigo/coderag/internal/orchestrator"
	"github.com/sevigo/coderag/internal/parser"
	"github.com/sevigo/coderag/internal/project"
	"github.com/sevigo/coderag/internal/provider"
	"github.com/sevigo/coderag/internal/retrieval"
	"github.com/sevigo/coderag/internal/syncengine"
	"github.com/sevigo/coderag/internal/telemetry"
	"github.com/sevigo/coderag/internal/vectorstore"

	"github.com/prometheus/client_golang/prometheus"
)

// App holds the process-wide components: everything shared across every
// registered project.
type App struct {
	Cfg        *config.Config
	Registry   *project.Registry
	Provider   *provider.Client
	Extractor  *parser.Extractor
	GitClient  *gitutil.Client
	Dispatcher core.JobDispatcher
	Telemetry  *telemetry.Sink

	answerCache *cache.Cache[string]
	logger      *slog.Logger
}

// New wires the process-wide components. It does not load any individual
// project's on-disk state; call OpenProject for that.
func New(cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	logger.Info("initializing coderag",
		"llm_provider", cfg.AI.LLMProvider,
		"embedder_provider", cfg.AI.EmbedderProvider,
		"generator_model", cfg.AI.GeneratorModel,
		"embedder_model", cfg.AI.EmbedderModel,
		"max_workers", cfg.Pool.MaxWorkers,
		"storage_root", cfg.Storage.RootDir,
	)

	registry, err := project.Open(cfg.Storage.RootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open project registry: %w", err)
	}

	pool, err := loadKeyPool(cfg.Storage.RootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load key pool: %w", err)
	}

	embedder, generator, err := provideProviders(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	parserRegistry, err := parsers.RegisterLanguagePlugins(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register language parsers: %w", err)
	}

	sink := telemetry.New(prometheus.DefaultRegisterer)
	pool.Telemetry = sink

	embedCache := cache.NewEmbeddingCache().WithTelemetry(sink, "embedding")
	answerCache := cache.NewAnswerCache().WithTelemetry(sink, "answer")
	client := provider.New(pool, embedder, generator, embedCache)
	client.Telemetry = sink
	extractor := parser.New(parser.NewGoframeValidator(parserRegistry))
	gitClient := gitutil.NewClient(logger.With("component", "gitutil"))
	dispatcher := orchestrator.NewDispatcher(cfg.Pool.MaxWorkers, logger)

	logger.Info("coderag initialized successfully")
	return &App{
		Cfg:         cfg,
		Registry:    registry,
		Provider:    client,
		Extractor:   extractor,
		GitClient:   gitClient,
		Dispatcher:  dispatcher,
		Telemetry:   sink,
		answerCache: answerCache,
		logger:      logger,
	}, dispatcher.Stop, nil
}

// ProjectBundle holds the components scoped to a single registered
// project, all sharing its storage directory.
type ProjectBundle struct {
	Project      core.Project
	Sync         *syncengine.Engine
	Store        *vectorstore.Store
	Graph        *graph.Graph
	Retrieval    *retrieval.Engine
	Journal      *journal.Journal
	Orchestrator *orchestrator.Orchestrator

	// RecoveredJournals lists the files whose pending journal sidecar was
	// rolled back by the Journal.Recover() call OpenProject makes at
	// startup, before any new edit is accepted.
	RecoveredJournals []string
}

// OpenProject loads a registered project's on-disk state and assembles its
// component bundle. Storage directories that don't exist yet (a project's
// first sync) are treated as empty, not an error.
func (a *App) OpenProject(id string) (*ProjectBundle, error) {
	p, err := a.Registry.Get(id)
	if err != nil {
		return nil, err
	}

	store := vectorstore.New()
	storeDir := filepath.Join(p.StorageDir, "vectors")
	if err := store.Load(storeDir); err != nil {
		return nil, fmt.Errorf("failed to load vector store for %s: %w", id, err)
	}

	g := graph.New()
	syncEngine := syncengine.New(p, a.Extractor, a.Provider, store, g, a.logger.With("project", id))
	syncEngine.Telemetry = a.Telemetry
	retriever := retrieval.New(store, g)
	retriever.Telemetry = a.Telemetry
	j := journal.New(p.SourceDir, a.Extractor)
	j.Telemetry = a.Telemetry
	recovered, err := j.Recover()
	if err != nil {
		return nil, fmt.Errorf("failed to recover pending journals for %s: %w", id, err)
	}
	if len(recovered) > 0 {
		a.logger.Warn("rolled back pending journals from a prior crash", "project", id, "files", recovered)
	}
	orch := orchestrator.New(a.answerCache, a.Provider, a.Provider, retriever)

	return &ProjectBundle{
		Project:           p,
		Sync:              syncEngine,
		Store:             store,
		Graph:             g,
		Retrieval:         retriever,
		Journal:           j,
		Orchestrator:      orch,
		RecoveredJournals: recovered,
	}, nil
}
