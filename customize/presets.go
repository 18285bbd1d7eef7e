package customize

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Built-in preset names.
const (
	PresetCreative      = "creative"
	PresetBalanced      = "balanced"
	PresetPrecise       = "precise"
	PresetDeterministic = "deterministic"
	PresetCoding        = "coding"
)

var (
	presetsMu sync.RWMutex
	presets   = map[string]ModelConfig{
		PresetCreative: mustPreset(map[string]any{
			OptTemperature:   0.9,
			OptTopP:          0.95,
			OptTopK:          60,
			OptRepeatPenalty: 1.1,
		}),
		PresetBalanced: mustPreset(map[string]any{
			OptTemperature: 0.7,
			OptTopP:        0.9,
			OptTopK:        40,
		}),
		PresetPrecise: mustPreset(map[string]any{
			OptTemperature: 0.2,
			OptTopP:        0.5,
			OptTopK:        20,
		}),
		PresetDeterministic: mustPreset(map[string]any{
			OptTemperature: 0.0,
			OptTopK:        1,
			OptSeed:        42,
		}),
		PresetCoding: mustPreset(map[string]any{
			OptTemperature:   0.1,
			OptTopP:          0.9,
			OptRepeatPenalty: 1.05,
			OptNumCtx:        8192,
		}),
	}
)

// mustPreset builds a built-in preset; the literals above are known valid.
func mustPreset(options map[string]any) ModelConfig {
	cfg, err := NewModelConfig(options, "")
	if err != nil {
		panic(fmt.Sprintf("invalid built-in preset: %v", err))
	}
	return cfg
}

// Preset returns a Builder seeded with the named preset. Setters called on the
// result override the preset's values. An unknown name makes Build fail with
// ErrUnknownPreset.
func Preset(name string) *Builder {
	cfg, ok := LookupPreset(name)
	if !ok {
		b := NewBuilder()
		b.errs = append(b.errs, &ConfigurationError{
			Option: "preset",
			Value:  name,
			Reason: fmt.Sprintf("available presets are %v", PresetNames()),
			Err:    ErrUnknownPreset,
		})
		return b
	}
	return From(cfg)
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (ModelConfig, bool) {
	presetsMu.RLock()
	defer presetsMu.RUnlock()
	cfg, ok := presets[name]
	return cfg, ok
}

// PresetNames returns the registered preset names, sorted.
func PresetNames() []string {
	presetsMu.RLock()
	defer presetsMu.RUnlock()
	names := lo.Keys(presets)
	sort.Strings(names)
	return names
}

// RegisterPreset adds or replaces a named preset.
func RegisterPreset(name string, cfg ModelConfig) error {
	if name == "" {
		return &ConfigurationError{Option: "preset", Reason: "name is required", Err: ErrInvalidValue}
	}
	presetsMu.Lock()
	defer presetsMu.Unlock()
	presets[name] = cfg.Merge(ModelConfig{})
	return nil
}
