package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// OllamaConfig represents configuration for the Ollama-native transport.
type OllamaConfig struct {
	Host    string `yaml:"host,omitempty"`    // Ollama host (default: "http://localhost:11434")
	Model   string `yaml:"model,omitempty"`   // Default model name
	Timeout int    `yaml:"timeout,omitempty"` // Request timeout in seconds
}

// OpenAIConfig represents configuration for OpenAI-compatible local servers.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`  // Optional; most local servers ignore it
	BaseURL string `yaml:"base_url,omitempty"` // e.g. http://localhost:1234/v1
	Model   string `yaml:"model,omitempty"`    // Default model name
	Timeout int    `yaml:"timeout,omitempty"`  // Request timeout in seconds
}

// RetryConfig bounds retries of retryable transport errors.
type RetryConfig struct {
	Disabled        bool          `yaml:"disabled,omitempty"`
	MaxRetries      uint64        `yaml:"max_retries,omitempty"`
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"` // e.g. "2s"
	MaxInterval     time.Duration `yaml:"max_interval,omitempty"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time,omitempty"`
}

// LoggingConfig selects the log level and destination.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // trace, debug, info, warn, error
	File   string `yaml:"file,omitempty"`   // JSON logs appended here when set
	Pretty bool   `yaml:"pretty,omitempty"` // Console output when File is empty
}

// PresetConfig defines a named model configuration. Options overlay the
// Base preset, when one is named.
type PresetConfig struct {
	Base         string         `yaml:"base,omitempty"`
	SystemPrompt string         `yaml:"system_prompt,omitempty"`
	Options      map[string]any `yaml:"options,omitempty"`
}

// Config is the otk configuration file.
type Config struct {
	// Providers lists transports in preference order: "ollama", "openai".
	Providers []string `yaml:"providers,omitempty"`

	Ollama  OllamaConfig  `yaml:"ollama,omitempty"`
	OpenAI  OpenAIConfig  `yaml:"openai,omitempty"`
	Retry   RetryConfig   `yaml:"retry,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`

	// Model identifiers added to the classification table. Entries are
	// prefixes; an entry starting with "=" matches exactly.
	ReasoningModels  []string `yaml:"reasoning_models,omitempty"`
	StructuredModels []string `yaml:"structured_models,omitempty"`
	PlainModels      []string `yaml:"plain_models,omitempty"`

	Presets map[string]*PresetConfig `yaml:"presets,omitempty"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Providers: []string{"ollama"},
		Ollama: OllamaConfig{
			Host:    "http://localhost:11434",
			Model:   "qwen3:8b",
			Timeout: 120,
		},
		OpenAI: OpenAIConfig{
			Timeout: 120,
		},
		Retry: RetryConfig{
			MaxRetries:      3,
			InitialInterval: 2 * time.Second,
			MaxInterval:     30 * time.Second,
			MaxElapsedTime:  2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Presets: make(map[string]*PresetConfig),
	}
}

// GetConfigPath returns the default config file path.
// Can be overridden via OTK_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("OTK_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.otk/config.yaml"
	}
	return filepath.Join(homeDir, ".otk", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load reads the configuration at path merged onto Defaults, then applies
// environment overrides. An empty path uses GetConfigPath. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = GetConfigPath()
	}
	expandedPath := expandPath(path)

	if _, err := os.Stat(expandedPath); err == nil {
		data, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}

		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	if cfg.Presets == nil {
		cfg.Presets = make(map[string]*PresetConfig)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides connection settings from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.Host = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}
}

// Validate checks provider names and preset definitions for obvious mistakes.
// Option values are checked when presets are registered.
func (c *Config) Validate() error {
	for _, p := range c.Providers {
		switch p {
		case "ollama", "openai":
		default:
			return fmt.Errorf("unknown provider %q", p)
		}
	}
	for name, p := range c.Presets {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("preset name must not be empty")
		}
		if p == nil {
			return fmt.Errorf("preset %q has no definition", name)
		}
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	// Ensure directory exists
	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
