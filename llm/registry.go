package llm

import (
	"fmt"
	"os"
	"sync"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const defaultOllamaHost = "http://localhost:11434"

// ClientKey uniquely identifies an LLM client configuration.
type ClientKey struct {
	Provider string
	Model    string
	APIKey   string // Optional for local OpenAI-compatible servers
	Host     string // For Ollama
	BaseURL  string // For OpenAI-compatible servers
}

// ProviderConfig holds the configuration needed for provider resolution.
// This avoids import cycles by not importing the config package.
type ProviderConfig struct {
	OllamaHost    string
	OllamaModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// ProviderRegistry manages provider selection and configuration resolution.
// Client construction is left to the caller to avoid import cycles.
type ProviderRegistry struct {
	enabledProviders []string // Preference order
	mu               sync.RWMutex
	config           *ProviderConfig
}

// NewProviderRegistry creates a new ProviderRegistry with the given config and
// enabled providers, in preference order.
func NewProviderRegistry(providerConfig *ProviderConfig, enabledProviders []string) *ProviderRegistry {
	if providerConfig == nil {
		providerConfig = &ProviderConfig{}
	}
	return &ProviderRegistry{
		enabledProviders: append([]string(nil), enabledProviders...),
		config:           providerConfig,
	}
}

// IsProviderEnabled checks if a provider is in the enabled providers list.
func (r *ProviderRegistry) IsProviderEnabled(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.enabledProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// IsProviderConfigured checks if a provider has the configuration it needs.
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isProviderConfiguredUnlocked(provider)
}

// Resolve returns a ClientKey for the first enabled and configured provider.
// A non-empty model overrides the provider's default model.
func (r *ProviderRegistry) Resolve(model string) (*ClientKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.enabledProviders) == 0 {
		return nil, fmt.Errorf("no providers enabled")
	}

	var lastErr error
	for _, provider := range r.enabledProviders {
		if !r.isProviderConfiguredUnlocked(provider) {
			continue
		}
		key, err := r.resolveProviderConfig(provider, model)
		if err != nil {
			lastErr = err
			continue
		}
		return key, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no available provider from %v: %w", r.enabledProviders, lastErr)
	}
	return nil, fmt.Errorf("no available provider from %v", r.enabledProviders)
}

// isProviderConfiguredUnlocked must be called with r.mu held.
func (r *ProviderRegistry) isProviderConfiguredUnlocked(provider string) bool {
	switch provider {
	case ProviderOllama:
		// Ollama needs only a host, which has a default
		return true
	case ProviderOpenAI:
		// Local OpenAI-compatible servers need a base URL; the key is optional
		baseURL := r.config.OpenAIBaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OPENAI_BASE_URL")
		}
		return baseURL != ""
	default:
		return false
	}
}

// resolveProviderConfig resolves provider-specific configuration and returns a ClientKey.
func (r *ProviderRegistry) resolveProviderConfig(provider, modelOverride string) (*ClientKey, error) {
	key := &ClientKey{
		Provider: provider,
		Model:    modelOverride,
	}

	switch provider {
	case ProviderOllama:
		host := r.config.OllamaHost
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = defaultOllamaHost
		}
		key.Host = host

		if key.Model == "" {
			key.Model = r.config.OllamaModel
		}
		if key.Model == "" {
			key.Model = os.Getenv("OLLAMA_MODEL")
		}
		if key.Model == "" {
			return nil, fmt.Errorf("ollama model not specified and no default configured")
		}

	case ProviderOpenAI:
		key.APIKey = r.config.OpenAIAPIKey
		if key.APIKey == "" {
			key.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		key.BaseURL = r.config.OpenAIBaseURL
		if key.BaseURL == "" {
			key.BaseURL = os.Getenv("OPENAI_BASE_URL")
		}
		if key.Model == "" {
			key.Model = r.config.OpenAIModel
		}
		if key.Model == "" {
			key.Model = os.Getenv("OPENAI_MODEL")
		}

	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return key, nil
}
