package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/llms"
)

// GoframeEmbedder adapts goframe's embeddings.Embedder to this package's
// Embedder interface, the way the teacher's app wiring builds one embedder
// per configured provider (gemini/ollama) and hands it to the RAG service.
type GoframeEmbedder struct {
	byModel map[string]embeddings.Embedder
}

// NewGoframeEmbedder wraps a single goframe embedder keyed by every model
// name it is allowed to serve. The pool may rotate through several model
// ids that all resolve to the same underlying client (e.g. provider
// fallback tiers sharing one API key family).
func NewGoframeEmbedder(byModel map[string]embeddings.Embedder) *GoframeEmbedder {
	return &GoframeEmbedder{byModel: byModel}
}

func (g *GoframeEmbedder) resolve(model string) (embeddings.Embedder, error) {
	if e, ok := g.byModel[model]; ok {
		return e, nil
	}
	for _, e := range g.byModel {
		return e, nil
	}
	return nil, fmt.Errorf("no embedder configured for model %q", model)
}

func (g *GoframeEmbedder) EmbedQuery(ctx context.Context, model, text string) ([]float32, error) {
	e, err := g.resolve(model)
	if err != nil {
		return nil, &Failure{Transient: false, Err: err}
	}
	v, err := e.EmbedQuery(ctx, text)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (g *GoframeEmbedder) EmbedDocuments(ctx context.Context, model string, texts []string) ([][]float32, error) {
	e, err := g.resolve(model)
	if err != nil {
		return nil, &Failure{Transient: false, Err: err}
	}
	v, err := e.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// GoframeGenerator adapts goframe's llms.Model to this package's Generator
// interface, mirroring the teacher's direct use of llms.Model.Call.
type GoframeGenerator struct {
	byModel map[string]llms.Model
}

// NewGoframeGenerator wraps a set of goframe generation models keyed by
// model id.
func NewGoframeGenerator(byModel map[string]llms.Model) *GoframeGenerator {
	return &GoframeGenerator{byModel: byModel}
}

func (g *GoframeGenerator) Generate(ctx context.Context, model, prompt string) (core.GenerateResult, error) {
	m, ok := g.byModel[model]
	if !ok {
		for _, v := range g.byModel {
			m = v
			ok = true
			break
		}
	}
	if !ok {
		return core.GenerateResult{}, &Failure{Transient: false, Err: fmt.Errorf("no generator configured for model %q", model)}
	}

	text, err := m.Call(ctx, prompt)
	if err != nil {
		return core.GenerateResult{}, classify(err)
	}
	return core.GenerateResult{Text: text, OK: true}, nil
}

// classify maps a raw provider error into a *Failure, treating network
// timeouts and rate-limit-shaped messages as transient and everything else
// as terminal. Goframe's HTTP-backed clients do not export a typed
// rate-limit error, so this mirrors the teacher's own reliance on error
// text and context deadline checks.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Transient: true, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Transient: true, Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"429", "rate limit", "too many requests", "503", "502", "500", "timeout", "unavailable"} {
		if strings.Contains(msg, needle) {
			return &Failure{Transient: true, Err: err}
		}
	}
	return &Failure{Transient: false, Err: err}
}
