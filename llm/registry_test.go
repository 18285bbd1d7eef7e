package llm

import (
	"testing"
)

func TestProviderRegistry_IsProviderEnabled(t *testing.T) {
	registry := NewProviderRegistry(&ProviderConfig{}, []string{"ollama"})

	if !registry.IsProviderEnabled("ollama") {
		t.Error("ollama should be enabled")
	}
	if registry.IsProviderEnabled("openai") {
		t.Error("openai should not be enabled")
	}
}

func TestProviderRegistry_IsProviderConfigured(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")

	// Test Ollama - should always be configured (no API key required)
	registry := NewProviderRegistry(&ProviderConfig{}, []string{"ollama"})
	if !registry.IsProviderConfigured("ollama") {
		t.Error("ollama should always be configured")
	}

	// Test OpenAI - should require a base URL
	registry2 := NewProviderRegistry(&ProviderConfig{}, []string{"openai"})
	if registry2.IsProviderConfigured("openai") {
		t.Error("openai should not be configured without base URL")
	}

	registry3 := NewProviderRegistry(&ProviderConfig{OpenAIBaseURL: "http://localhost:1234/v1"}, []string{"openai"})
	if !registry3.IsProviderConfigured("openai") {
		t.Error("openai should be configured with base URL")
	}

	if registry3.IsProviderConfigured("anthropic") {
		t.Error("unknown providers should never be configured")
	}
}

func TestProviderRegistry_Resolve_PreferenceOrder(t *testing.T) {
	registry := NewProviderRegistry(&ProviderConfig{
		OllamaHost:    "http://gpu-box:11434",
		OllamaModel:   "qwen3:8b",
		OpenAIBaseURL: "http://localhost:1234/v1",
		OpenAIModel:   "local-model",
	}, []string{"openai", "ollama"})

	key, err := registry.Resolve("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if key.Provider != ProviderOpenAI {
		t.Errorf("Expected provider openai, got %s", key.Provider)
	}
	if key.Model != "local-model" {
		t.Errorf("Expected model local-model, got %s", key.Model)
	}
	if key.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("Expected base URL to be set, got %s", key.BaseURL)
	}
}

func TestProviderRegistry_Resolve_SkipsUnconfigured(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("OLLAMA_HOST", "")

	registry := NewProviderRegistry(&ProviderConfig{
		OllamaModel: "llama3.2",
	}, []string{"openai", "ollama"})

	key, err := registry.Resolve("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if key.Provider != ProviderOllama {
		t.Errorf("Expected provider ollama, got %s", key.Provider)
	}
	if key.Host != defaultOllamaHost {
		t.Errorf("Expected default host %s, got %s", defaultOllamaHost, key.Host)
	}
}

func TestProviderRegistry_Resolve_ModelOverride(t *testing.T) {
	registry := NewProviderRegistry(&ProviderConfig{OllamaModel: "llama3.2"}, []string{"ollama"})

	key, err := registry.Resolve("deepseek-r1:7b")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if key.Model != "deepseek-r1:7b" {
		t.Errorf("Expected override model, got %s", key.Model)
	}
}

func TestProviderRegistry_Resolve_EnvFallback(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://env-host:11434")
	t.Setenv("OLLAMA_MODEL", "mistral")

	registry := NewProviderRegistry(nil, []string{"ollama"})
	key, err := registry.Resolve("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if key.Host != "http://env-host:11434" {
		t.Errorf("Expected env host, got %s", key.Host)
	}
	if key.Model != "mistral" {
		t.Errorf("Expected env model, got %s", key.Model)
	}
}

func TestProviderRegistry_Resolve_Errors(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "")

	registry := NewProviderRegistry(&ProviderConfig{}, nil)
	if _, err := registry.Resolve(""); err == nil {
		t.Error("Expected error when no providers are enabled")
	}

	registry = NewProviderRegistry(&ProviderConfig{}, []string{"ollama"})
	if _, err := registry.Resolve(""); err == nil {
		t.Error("Expected error when ollama has no model")
	}
}
