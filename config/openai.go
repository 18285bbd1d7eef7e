package config

import (
	"time"

	"github.com/aschepis/backscratcher/otk/llm"
	llmopenai "github.com/aschepis/backscratcher/otk/llm/openai"
)

// NewOpenAIClient creates a client for an OpenAI-compatible server from a
// resolved provider key.
func NewOpenAIClient(cfg *Config, key *llm.ClientKey) (*llmopenai.OpenAIClient, error) {
	timeout := time.Duration(cfg.OpenAI.Timeout) * time.Second
	return llmopenai.NewOpenAIClient(key.APIKey, key.BaseURL, key.Model, timeout)
}
