package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/coderag/internal/logger"
	"github.com/spf13/viper"
)

const providerGemini = "gemini"

// Config represents the top-level process configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Logging  logger.Config  `mapstructure:"logging"`
	Features FeaturesConfig `mapstructure:"features"`
}

// StorageConfig controls where registered projects keep their sync state,
// vector index, and manifests.
type StorageConfig struct {
	RootDir string `mapstructure:"root_dir"`
}

// AIConfig selects the embedding/generation provider and its defaults.
type AIConfig struct {
	LLMProvider      string `mapstructure:"llm_provider"`
	EmbedderProvider string `mapstructure:"embedder_provider"`
	OllamaHost       string `mapstructure:"ollama_host"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	GeneratorModel   string `mapstructure:"generator_model"`
	EmbedderModel    string `mapstructure:"embedder_model"`
	EnableHyDE       bool   `mapstructure:"enable_hyde"`
}

// PoolConfig sizes the worker pool: MaxWorkers is the number of workers
// of the orchestrator's request dispatcher.
type PoolConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// FeaturesConfig holds optional feature switches loaded from configuration.
// No component reads them: graph expansion and watch mode are chosen per
// call (retrieval options and the sync command's --watch flag).
type FeaturesConfig struct {
	EnableGraphExpansion bool `mapstructure:"enable_graph_expansion"`
	EnableWatch          bool `mapstructure:"enable_watch"`
}

// LoadConfig loads the configuration using Viper with the hierarchy:
// flags (handled by caller) > env vars > config file > defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.coderag")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded configuration", "file", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root_dir", "./data/coderag")

	v.SetDefault("ai.llm_provider", "ollama")
	v.SetDefault("ai.embedder_provider", "ollama")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.embedder_model", "nomic-embed-text")
	v.SetDefault("ai.generator_model", "llama3")
	v.SetDefault("ai.enable_hyde", false)

	v.SetDefault("pool.max_workers", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("features.enable_graph_expansion", true)
	v.SetDefault("features.enable_watch", false)
}

// Validate checks provider-specific requirements that can't be expressed
// as a plain default.
func (c *Config) Validate() error {
	usesGemini := c.AI.LLMProvider == providerGemini || c.AI.EmbedderProvider == providerGemini
	if usesGemini && c.AI.GeminiAPIKey == "" {
		return errors.New("ai.gemini_api_key is required for the gemini provider")
	}
	return nil
}
