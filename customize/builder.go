package customize

import (
	"errors"
)

// Builder assembles a ModelConfig through chained setters. Invalid settings
// are collected and reported together by Build. Later settings of the same
// option replace earlier ones.
type Builder struct {
	options      map[string]any
	systemPrompt string
	errs         []error
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{options: make(map[string]any)}
}

// From seeds a Builder with a copy of cfg.
func From(cfg ModelConfig) *Builder {
	return NewBuilder().Apply(cfg)
}

// Set sets any recognized option by name.
func (b *Builder) Set(name string, value any) *Builder {
	v, err := normalizeOption(name, value)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.options[name] = v
	return b
}

// Apply overlays every value of cfg onto the builder.
func (b *Builder) Apply(cfg ModelConfig) *Builder {
	for k, v := range cfg.options {
		b.options[k] = copyValue(v)
	}
	if cfg.systemPrompt != "" {
		b.systemPrompt = cfg.systemPrompt
	}
	return b
}

// Unset removes an option.
func (b *Builder) Unset(name string) *Builder {
	delete(b.options, name)
	return b
}

// Temperature sets the sampling temperature, 0 to 2.
func (b *Builder) Temperature(v float64) *Builder { return b.Set(OptTemperature, v) }

// TopP sets nucleus sampling probability mass, 0 to 1.
func (b *Builder) TopP(v float64) *Builder { return b.Set(OptTopP, v) }

// TopK limits sampling to the k most likely tokens.
func (b *Builder) TopK(v int) *Builder { return b.Set(OptTopK, v) }

// MinP sets the minimum token probability relative to the most likely token.
func (b *Builder) MinP(v float64) *Builder { return b.Set(OptMinP, v) }

// MaxTokens caps generated tokens (num_predict).
func (b *Builder) MaxTokens(v int) *Builder { return b.Set(OptNumPredict, v) }

// ContextWindow sets the context size in tokens (num_ctx).
func (b *Builder) ContextWindow(v int) *Builder { return b.Set(OptNumCtx, v) }

// Stop sets the stop sequences.
func (b *Builder) Stop(seqs ...string) *Builder { return b.Set(OptStop, seqs) }

// Seed fixes the random seed.
func (b *Builder) Seed(v int) *Builder { return b.Set(OptSeed, v) }

// RepeatPenalty sets the repetition penalty.
func (b *Builder) RepeatPenalty(v float64) *Builder { return b.Set(OptRepeatPenalty, v) }

// PresencePenalty sets the presence penalty, -2 to 2.
func (b *Builder) PresencePenalty(v float64) *Builder { return b.Set(OptPresencePenalty, v) }

// FrequencyPenalty sets the frequency penalty, -2 to 2.
func (b *Builder) FrequencyPenalty(v float64) *Builder { return b.Set(OptFrequencyPenalty, v) }

// SystemPrompt sets the system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// Build returns the configuration, or every error collected so far.
// The builder stays usable; the returned config does not share state with it.
func (b *Builder) Build() (ModelConfig, error) {
	if len(b.errs) > 0 {
		return ModelConfig{}, errors.Join(b.errs...)
	}
	cfg := ModelConfig{
		options:      make(map[string]any, len(b.options)),
		systemPrompt: b.systemPrompt,
	}
	for k, v := range b.options {
		cfg.options[k] = copyValue(v)
	}
	return cfg, nil
}
