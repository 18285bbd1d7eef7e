package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aschepis/backscratcher/otk/customize"
	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/aschepis/backscratcher/otk/logger"
	"github.com/aschepis/backscratcher/otk/response"
	"github.com/rs/zerolog"
)

// NewLogger builds the logger described by the logging section.
func NewLogger(cfg *Config) (zerolog.Logger, error) {
	return logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Pretty: cfg.Logging.Pretty,
	})
}

// ProviderConfig converts the connection settings for provider resolution.
func (c *Config) ProviderConfig() *llm.ProviderConfig {
	return &llm.ProviderConfig{
		OllamaHost:    c.Ollama.Host,
		OllamaModel:   c.Ollama.Model,
		OpenAIAPIKey:  c.OpenAI.APIKey,
		OpenAIBaseURL: c.OpenAI.BaseURL,
		OpenAIModel:   c.OpenAI.Model,
	}
}

// RetryPolicy returns the configured retry policy. Unset fields keep the
// library defaults.
func (c *Config) RetryPolicy() llm.RetryPolicy {
	policy := llm.DefaultRetryPolicy()
	if c.Retry.Disabled {
		policy.MaxRetries = 0
		return policy
	}
	if c.Retry.MaxRetries > 0 {
		policy.MaxRetries = c.Retry.MaxRetries
	}
	if c.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.Retry.InitialInterval
	}
	if c.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.Retry.MaxInterval
	}
	if c.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = c.Retry.MaxElapsedTime
	}
	return policy
}

// NewClient resolves the first usable provider and builds its client wrapped
// with transport logging and retries. A non-empty model overrides the
// provider's default. The resolved key is returned with the client.
func NewClient(cfg *Config, model string, logger zerolog.Logger) (llm.Client, *llm.ClientKey, error) {
	registry := llm.NewProviderRegistry(cfg.ProviderConfig(), cfg.Providers)
	key, err := registry.Resolve(model)
	if err != nil {
		return nil, nil, err
	}

	var client llm.Client
	switch key.Provider {
	case llm.ProviderOllama:
		client, err = NewOllamaClient(cfg, key)
	case llm.ProviderOpenAI:
		client, err = NewOpenAIClient(cfg, key)
	default:
		err = fmt.Errorf("unknown provider: %s", key.Provider)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s client: %w", key.Provider, err)
	}

	logger.Debug().
		Str("provider", key.Provider).
		Str("model", key.Model).
		Msg("Resolved LLM provider")

	client = llm.WrapWithMiddleware(client, llm.NewLoggingMiddleware(logger))
	return llm.WithRetry(client, cfg.RetryPolicy(), logger), key, nil
}

// Patterns returns the classification patterns from the model lists.
func (c *Config) Patterns() []response.Pattern {
	var patterns []response.Pattern
	add := func(values []string, t response.ModelType) {
		for _, v := range values {
			p := response.Pattern{Match: response.MatchPrefix, Value: v, Type: t}
			if exact, ok := strings.CutPrefix(v, "="); ok {
				p.Match = response.MatchExact
				p.Value = exact
			}
			if strings.TrimSpace(p.Value) == "" {
				continue
			}
			patterns = append(patterns, p)
		}
	}
	add(c.ReasoningModels, response.TypeReasoning)
	add(c.StructuredModels, response.TypeStructured)
	add(c.PlainModels, response.TypePlain)
	return patterns
}

// NewClassifier builds a classifier from the built-in table plus the
// configured model lists.
func NewClassifier(cfg *Config) *response.Classifier {
	return response.NewClassifier(cfg.Patterns()...)
}

// RegisterPresets registers every configured preset, resolving bases that
// name other configured presets first.
func RegisterPresets(cfg *Config) error {
	names := make([]string, 0, len(cfg.Presets))
	for name := range cfg.Presets {
		names = append(names, name)
	}
	sort.Strings(names)

	done := make(map[string]bool, len(names))
	for _, name := range names {
		if err := registerPreset(cfg, name, done, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func registerPreset(cfg *Config, name string, done, visiting map[string]bool) error {
	if done[name] {
		return nil
	}
	if visiting[name] {
		return fmt.Errorf("preset %q: base cycle", name)
	}
	visiting[name] = true

	p := cfg.Presets[name]
	// A preset based on its own name overlays the registered one.
	if _, local := cfg.Presets[p.Base]; local && p.Base != "" && p.Base != name {
		if err := registerPreset(cfg, p.Base, done, visiting); err != nil {
			return err
		}
	}

	b := customize.NewBuilder()
	if p.Base != "" {
		b = customize.Preset(p.Base)
	}
	for _, opt := range sortedKeys(p.Options) {
		b.Set(opt, p.Options[opt])
	}
	if p.SystemPrompt != "" {
		b.SystemPrompt(p.SystemPrompt)
	}
	built, err := b.Build()
	if err != nil {
		return fmt.Errorf("preset %q: %w", name, err)
	}
	if err := customize.RegisterPreset(name, built); err != nil {
		return fmt.Errorf("preset %q: %w", name, err)
	}
	done[name] = true
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewModel wires a CustomizableModel from cfg: the resolved client, the
// configured classifier, and the named preset. An empty preset uses no
// options. Extra options are applied after the wiring ones.
func NewModel(cfg *Config, model, preset string, logger zerolog.Logger, opts ...customize.Option) (*customize.CustomizableModel, error) {
	if err := RegisterPresets(cfg); err != nil {
		return nil, err
	}

	var modelCfg customize.ModelConfig
	if preset != "" {
		var ok bool
		modelCfg, ok = customize.LookupPreset(preset)
		if !ok {
			return nil, fmt.Errorf("%w: %q", customize.ErrUnknownPreset, preset)
		}
	}

	client, key, err := NewClient(cfg, model, logger)
	if err != nil {
		return nil, err
	}

	all := append([]customize.Option{
		customize.WithLogger(logger),
		customize.WithClassifier(NewClassifier(cfg)),
	}, opts...)
	return customize.NewCustomizableModel(client, key.Model, modelCfg, all...)
}
