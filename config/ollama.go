package config

import (
	"time"

	"github.com/aschepis/backscratcher/otk/llm"
	llmollama "github.com/aschepis/backscratcher/otk/llm/ollama"
)

// NewOllamaClient creates an Ollama client for a resolved provider key.
func NewOllamaClient(cfg *Config, key *llm.ClientKey) (*llmollama.OllamaClient, error) {
	timeout := time.Duration(cfg.Ollama.Timeout) * time.Second
	return llmollama.NewOllamaClient(key.Host, key.Model, timeout)
}
