// Package orchestrator implements the Orchestrator (C11): the single
// entry point that composes the cache, provider, and retrieval engine into
// a query/answer cycle, including the optional HyDE retrieval mode.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/sevigo/coderag/internal/cache"
	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/retrieval"
)

// Embedder is the narrow slice of C4 the orchestrator needs to turn a
// query (or a HyDE draft) into an embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator is the narrow slice of C4 the orchestrator needs to produce
// answer text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (core.GenerateResult, error)
}

//go:generate mockgen -destination=../../mocks/mock_retriever.go -package=mocks github.com/sevigo/coderag/internal/orchestrator Retriever

// Retriever is the narrow slice of C9 the orchestrator needs.
type Retriever interface {
	Retrieve(queryEmbedding []float32, opts retrieval.Options) retrieval.Result
}

// AskOptions configures one Ask call.
type AskOptions struct {
	UseHyDE      bool
	MaxNodes     int
	DisableGraph bool
}

// Orchestrator answers queries by consulting the answer cache, falling
// back to retrieval + generation on a miss, and caching the result.
type Orchestrator struct {
	AnswerCache *cache.Cache[string]
	Embedder    Embedder
	Generator   Generator
	Retriever   Retriever
}

// New returns an Orchestrator over the given collaborators.
func New(answerCache *cache.Cache[string], embedder Embedder, generator Generator, retriever Retriever) *Orchestrator {
	return &Orchestrator{AnswerCache: answerCache, Embedder: embedder, Generator: generator, Retriever: retriever}
}

// Ask runs the cache-check -> retrieve -> generate -> cache-store cycle
// described in spec.md §4.11. In HyDE mode, C4 first drafts a
// plausible answer-shaped text, which is embedded in place of the raw
// query before retrieval runs. A cache hit returns the cached text with no
// Nodes, since the answer cache only stores the generated text.
func (o *Orchestrator) Ask(ctx context.Context, query string, opts AskOptions) (core.AnswerResult, error) {
	if cached, ok := o.AnswerCache.Get(query); ok {
		return core.AnswerResult{Text: cached}, nil
	}

	result, err := o.retrieve(ctx, query, opts)
	if err != nil {
		return core.AnswerResult{}, err
	}

	prompt := buildPrompt(result.Context, query)
	genResult, err := o.Generator.Generate(ctx, prompt)
	if err != nil {
		return core.AnswerResult{}, core.Wrap("orchestrator.Ask", core.KindProviderTransient, err)
	}

	o.AnswerCache.Set(query, genResult.Text)
	return core.AnswerResult{Text: genResult.Text, Usage: genResult.Usage, Nodes: summarize(result.Nodes)}, nil
}

// Candidates runs the orchestrator's candidates() operation from spec.md
// §6: the cache-check -> generate cycle is skipped entirely, since this
// call exists precisely to let a caller inspect which nodes retrieval
// would select before committing to the cost of generation. It shares
// Ask's HyDE-draft-then-embed step so the two operations stay consistent
// for the same query and options.
func (o *Orchestrator) Candidates(ctx context.Context, query string, opts AskOptions) ([]core.NodeSummary, error) {
	result, err := o.retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return summarize(result.Nodes), nil
}

func (o *Orchestrator) retrieve(ctx context.Context, query string, opts AskOptions) (retrieval.Result, error) {
	embedInput := query
	if opts.UseHyDE {
		draft, err := o.Generator.Generate(ctx, hydePrompt(query))
		if err != nil {
			return retrieval.Result{}, core.Wrap("orchestrator.retrieve", core.KindProviderTransient, err)
		}
		if draft.OK && draft.Text != "" {
			embedInput = draft.Text
		}
	}

	queryEmbedding, err := o.Embedder.Embed(ctx, embedInput)
	if err != nil {
		return retrieval.Result{}, core.Wrap("orchestrator.retrieve", core.KindProviderTransient, err)
	}

	return o.Retriever.Retrieve(queryEmbedding, retrieval.Options{
		MaxNodes:     opts.MaxNodes,
		DisableGraph: opts.DisableGraph,
	}), nil
}

func summarize(nodes []core.CodeNode) []core.NodeSummary {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]core.NodeSummary, len(nodes))
	for i, n := range nodes {
		out[i] = core.NodeSummary{
			ID:        n.ID,
			Name:      n.Name,
			Kind:      n.Kind,
			FilePath:  n.FilePath,
			StartLine: n.StartLine,
			EndLine:   n.EndLine,
		}
	}
	return out
}

func hydePrompt(query string) string {
	return fmt.Sprintf("Write a short, plausible answer to the following question, as if you had already read the relevant code:\n\n%s", query)
}

func buildPrompt(context, query string) string {
	if context == "" {
		return query
	}
	return fmt.Sprintf("%s\n\n%s", context, query)
}
