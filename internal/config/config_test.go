package config

import "testing"

func TestConfig_ValidateOllamaNeedsNoAPIKey(t *testing.T) {
	cfg := &Config{AI: AIConfig{LLMProvider: "ollama", EmbedderProvider: "ollama"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestConfig_ValidateGeminiRequiresAPIKey(t *testing.T) {
	cfg := &Config{AI: AIConfig{LLMProvider: "gemini", EmbedderProvider: "ollama"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing gemini_api_key")
	}
}

func TestConfig_ValidateGeminiWithAPIKeyPasses(t *testing.T) {
	cfg := &Config{AI: AIConfig{LLMProvider: "gemini", EmbedderProvider: "ollama", GeminiAPIKey: "key"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLoadConfig_DefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.AI.LLMProvider != "ollama" {
		t.Errorf("AI.LLMProvider = %q, want %q", cfg.AI.LLMProvider, "ollama")
	}
	if cfg.Storage.RootDir == "" {
		t.Error("Storage.RootDir should have a default")
	}
}
