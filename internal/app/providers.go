package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/coderag/internal/config"
	"github.com/sevigo/coderag/internal/keypool"
	"github.com/sevigo/coderag/internal/provider"
)

// newOllamaHTTPClient builds an HTTP client tuned for Ollama's slower local
// inference latency: longer dial and request timeouts than Go's default
// client, a larger idle connection pool so repeated embed calls don't pay
// for a fresh TCP handshake every time.
func newOllamaHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: 15 * time.Minute}
}

// provideProviders builds the goframe generator and embedder wrapped behind
// this module's provider.Embedder/provider.Generator interfaces, keyed by
// the single configured model id. A real deployment may register several
// model ids sharing one underlying client (the pool's model rotation falls
// back to whichever client is registered when an id it rotated to isn't
// recognized, see GoframeEmbedder.resolve/GoframeGenerator.Generate).
func provideProviders(cfg *config.Config, logger *slog.Logger) (*provider.GoframeEmbedder, *provider.GoframeGenerator, error) {
	ctx := context.Background()

	generatorModel, err := createLLM(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generator LLM: %w", err)
	}

	embedderModel, err := createEmbedderModel(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedderModel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder service: %w", err)
	}

	return provider.NewGoframeEmbedder(map[string]embeddings.Embedder{cfg.AI.EmbedderModel: embedder}),
		provider.NewGoframeGenerator(map[string]llms.Model{cfg.AI.GeneratorModel: generatorModel}),
		nil
}

func createLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llms.Model, error) {
	switch cfg.AI.LLMProvider {
	case "gemini":
		if cfg.AI.GeminiAPIKey == "" {
			return nil, fmt.Errorf("ai.gemini_api_key is not set for gemini provider")
		}
		return gemini.New(ctx,
			gemini.WithModel(cfg.AI.GeneratorModel),
			gemini.WithAPIKey(cfg.AI.GeminiAPIKey),
		)
	case "ollama":
		return ollama.New(
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(cfg.AI.GeneratorModel),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.AI.LLMProvider)
	}
}

func createEmbedderModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embeddings.Embedder, error) {
	switch cfg.AI.EmbedderProvider {
	case "gemini":
		return gemini.New(ctx,
			gemini.WithEmbeddingModel(cfg.AI.EmbedderModel),
			gemini.WithAPIKey(cfg.AI.GeminiAPIKey),
		)
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.AI.OllamaHost),
			ollama.WithModel(cfg.AI.EmbedderModel),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.AI.EmbedderProvider)
	}
}

// loadKeyPool reads rootDir/keys.json, the process-wide credential/model
// pool file. A missing file falls back to a single implicit "default" key,
// since not every deployment rotates credentials.
func loadKeyPool(rootDir string) (*keypool.Pool, error) {
	raw, err := os.ReadFile(filepath.Join(rootDir, "keys.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return keypool.New(keypool.Config{Keys: []string{"default"}})
		}
		return nil, err
	}

	cfg, unknown, err := keypool.DecodeConfig(raw)
	if err != nil {
		return nil, err
	}
	for _, k := range unknown {
		slog.Warn("keys.json: ignoring unrecognized key", "key", k)
	}
	return keypool.New(cfg)
}
