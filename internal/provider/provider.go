// Package provider implements the Embedding/Generation Client (C4): a
// uniform request interface to an external text-and-vector provider, with
// credential/model ticketing against the key pool and cache-first embedding
// lookups.
package provider

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sevigo/coderag/internal/cache"
	"github.com/sevigo/coderag/internal/core"
	"github.com/sevigo/coderag/internal/keypool"
	"github.com/sevigo/coderag/internal/telemetry"
)

// Embedder is the narrow boundary to the external embedding model. An
// implementation is expected to treat the model argument as the model id
// ticketed from the key pool.
type Embedder interface {
	EmbedQuery(ctx context.Context, model, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Generator is the narrow boundary to the external generation model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (core.GenerateResult, error)
}

// Failure classifies a provider error as transient (rate limit, timeout,
// 5xx) or terminal (malformed response, non-429 4xx). Embedder/Generator
// implementations return a *Failure, and the client finds it with errors.As
// so it can branch without inspecting HTTP status codes directly; an error
// that is not a transient *Failure is treated as terminal.
type Failure struct {
	Transient bool
	Err       error
}

func (f *Failure) Error() string { return f.Err.Error() }
func (f *Failure) Unwrap() error { return f.Err }

// Client wraps an Embedder and Generator with the pool-ticketing retry
// policy from spec.md §4.4 and the embedding cache from C2.
type Client struct {
	pool      *keypool.Pool
	embedder  Embedder
	generator Generator
	embedCache *cache.Cache[[]float32]

	// Telemetry, if set, counts provider failures labeled by kind.
	Telemetry *telemetry.Sink
}

// New builds a Client. embedCache may be nil, in which case embeddings are
// never cached (tests exercising pure ticketing logic use this).
func New(pool *keypool.Pool, embedder Embedder, generator Generator, embedCache *cache.Cache[[]float32]) *Client {
	return &Client{pool: pool, embedder: embedder, generator: generator, embedCache: embedCache}
}

// Embed returns the embedding for text, consulting the cache by exact input
// text before calling the provider.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embedCache != nil {
		if v, ok := c.embedCache.Get(text); ok {
			return v, nil
		}
	}

	var result []float32
	err := c.withTicket(ctx, func(model string) error {
		v, err := c.embedder.EmbedQuery(ctx, model, text)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.embedCache != nil {
		c.embedCache.Set(text, result)
	}
	return result, nil
}

// EmbedBatch partitions inputs into cache hits and misses, issues one
// provider request for the misses, and stitches the results back into
// input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if c.embedCache != nil {
			if v, ok := c.embedCache.Get(t); ok {
				out[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	var vectors [][]float32
	err := c.withTicket(ctx, func(model string) error {
		v, err := c.embedder.EmbedDocuments(ctx, model, missTexts)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, core.Wrap("provider.EmbedBatch", core.KindProviderTerminal,
			fmt.Errorf("provider returned %d vectors for %d inputs", len(vectors), len(missTexts)))
	}

	for j, idx := range missIdx {
		out[idx] = vectors[j]
		if c.embedCache != nil {
			c.embedCache.Set(missTexts[j], vectors[j])
		}
	}
	return out, nil
}

// Generate issues a text-generation request through the ticketing retry
// policy.
func (c *Client) Generate(ctx context.Context, prompt string) (core.GenerateResult, error) {
	var result core.GenerateResult
	err := c.withTicket(ctx, func(model string) error {
		r, err := c.generator.Generate(ctx, model, prompt)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// withTicket implements the ticketing pattern: take (credential, model)
// from the pool, run fn, and on transient failure report+rotate the key;
// once all keys under the current model are exhausted, rotate the model
// and retry once; a terminal failure (or exhaustion after the model
// rotation retry) is returned wrapped as core.KindProviderTerminal.
func (c *Client) withTicket(ctx context.Context, fn func(model string) error) error {
	numKeys, _ := c.pool.Size()
	modelRotated := false

	for {
		_, model := c.pool.Current()
		err := fn(model)
		if err == nil {
			return nil
		}

		var failure *Failure
		if !errors.As(err, &failure) || !failure.Transient {
			if c.Telemetry != nil {
				c.Telemetry.ProviderFailures.WithLabelValues("terminal").Inc()
			}
			return core.Wrap("provider.withTicket", core.KindProviderTerminal, err)
		}
		if c.Telemetry != nil {
			c.Telemetry.ProviderFailures.WithLabelValues("transient").Inc()
		}

		c.pool.ReportRateLimit()
		c.pool.RotateKey()

		if c.pool.IsActive() {
			continue
		}

		// current key (after rotation) is inactive; keep rotating through
		// the model's keys up to the pool size before giving up on this
		// model entirely.
		exhausted := true
		for i := 1; i < numKeys; i++ {
			if c.pool.IsActive() {
				exhausted = false
				break
			}
			c.pool.RotateKey()
		}
		if !exhausted {
			continue
		}

		if modelRotated {
			if c.Telemetry != nil {
				c.Telemetry.ProviderFailures.WithLabelValues("terminal").Inc()
			}
			return core.Wrap("provider.withTicket", core.KindProviderTerminal,
				fmt.Errorf("provider unavailable: all keys and models exhausted: %w", err))
		}
		modelRotated = true
		c.pool.RotateModel()
	}
}

// TruncateUTF8 cuts s to at most maxBytes, never splitting a multi-byte
// code point.
func TruncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	b := s[:maxBytes]
	// While the first dropped byte continues a rune, the cut has bisected
	// that rune: back up to its start so it is dropped whole.
	for len(b) > 0 && !utf8.RuneStart(s[len(b)]) {
		b = b[:len(b)-1]
	}
	return b
}
