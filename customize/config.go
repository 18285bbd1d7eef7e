package customize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ModelConfig is an immutable set of generation options plus an optional
// system prompt. Values are float64, int or []string depending on the option.
// The zero value is an empty, valid configuration.
type ModelConfig struct {
	options      map[string]any
	systemPrompt string
}

// NewModelConfig validates options and returns a ModelConfig holding them.
// All invalid entries are reported, joined.
func NewModelConfig(options map[string]any, systemPrompt string) (ModelConfig, error) {
	b := NewBuilder().SystemPrompt(systemPrompt)
	names := lo.Keys(options)
	// Sorted so the joined error is deterministic
	sort.Strings(names)
	for _, name := range names {
		b.Set(name, options[name])
	}
	return b.Build()
}

// Options returns a copy of the flattened option map sent to the transport.
func (c ModelConfig) Options() map[string]any {
	out := make(map[string]any, len(c.options))
	for k, v := range c.options {
		out[k] = copyValue(v)
	}
	return out
}

// Get returns the value of an option.
func (c ModelConfig) Get(name string) (any, bool) {
	v, ok := c.options[name]
	return copyValue(v), ok
}

// Float returns a float option's value.
func (c ModelConfig) Float(name string) (float64, bool) {
	f, ok := c.options[name].(float64)
	return f, ok
}

// Int returns an integer option's value.
func (c ModelConfig) Int(name string) (int, bool) {
	i, ok := c.options[name].(int)
	return i, ok
}

// Temperature returns the temperature when one is set.
func (c ModelConfig) Temperature() (float64, bool) {
	return c.Float(OptTemperature)
}

// Stop returns the stop sequences.
func (c ModelConfig) Stop() []string {
	s, _ := c.options[OptStop].([]string)
	return append([]string(nil), s...)
}

// SystemPrompt returns the system prompt, empty when none is set.
func (c ModelConfig) SystemPrompt() string {
	return c.systemPrompt
}

// Len returns the number of options set.
func (c ModelConfig) Len() int {
	return len(c.options)
}

// Merge returns a configuration holding c's values overridden by other's.
// A non-empty system prompt in other replaces c's.
func (c ModelConfig) Merge(other ModelConfig) ModelConfig {
	merged := ModelConfig{
		options:      c.Options(),
		systemPrompt: c.systemPrompt,
	}
	for k, v := range other.options {
		merged.options[k] = copyValue(v)
	}
	if other.systemPrompt != "" {
		merged.systemPrompt = other.systemPrompt
	}
	return merged
}

// String renders the options sorted by name, for logs.
func (c ModelConfig) String() string {
	names := lo.Keys(c.options)
	sort.Strings(names)
	parts := lo.Map(names, func(name string, _ int) string {
		return fmt.Sprintf("%s=%v", name, c.options[name])
	})
	return "{" + strings.Join(parts, " ") + "}"
}

func copyValue(v any) any {
	if s, ok := v.([]string); ok {
		return append([]string(nil), s...)
	}
	return v
}
