package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/ollama/ollama/api"
)

// OllamaClient implements the llm.Client interface for Ollama's API.
type OllamaClient struct {
	client *api.Client
	model  string // Default model to use if not specified in request
}

// NewOllamaClient creates a new OllamaClient.
// If host is empty, it will use the default from environment (OLLAMA_HOST or http://localhost:11434).
// A zero timeout leaves requests bounded only by their context.
func NewOllamaClient(host, model string, timeout time.Duration) (*OllamaClient, error) {
	var client *api.Client

	if host != "" {
		baseURL, err := parseHost(host)
		if err != nil {
			return nil, fmt.Errorf("invalid host: %w", err)
		}
		client = api.NewClient(baseURL, &http.Client{Timeout: timeout})
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	}

	return &OllamaClient{
		client: client,
		model:  model,
	}, nil
}

// parseHost parses a host string into a URL.
func parseHost(host string) (*url.URL, error) {
	// If host doesn't have a scheme, add http://
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

func (c *OllamaClient) resolveModel(req *llm.Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is required")
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return "", fmt.Errorf("model is required")
	}
	return model, nil
}

// Synchronous implements llm.Client.Synchronous.
func (c *OllamaClient) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	model, err := c.resolveModel(req)
	if err != nil {
		return nil, err
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: ToOllamaMessages(req.System, req.Messages),
		Stream:   new(bool), // false for non-streaming
		Options:  ToOllamaOptions(req.Options),
	}

	var chatResp api.ChatResponse
	err = c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, convertOllamaError("ollama chat request failed", err)
	}

	return &llm.Response{
		Model:      chatResp.Model,
		Text:       chatResp.Message.Content,
		Reasoning:  chatResp.Message.Thinking,
		Usage:      usageFromMetrics(chatResp.Metrics),
		StopReason: stopReason(chatResp.DoneReason),
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *OllamaClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	model, err := c.resolveModel(req)
	if err != nil {
		return nil, err
	}

	stream := true
	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: ToOllamaMessages(req.System, req.Messages),
		Stream:   &stream,
		Options:  ToOllamaOptions(req.Options),
	}

	return newOllamaStream(ctx, c.client, chatReq), nil
}

// Generate runs a single-prompt completion against /api/generate.
func (c *OllamaClient) Generate(ctx context.Context, model, prompt, system string, options map[string]any) (*llm.Response, error) {
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var text, thinking strings.Builder
	var last api.GenerateResponse
	req := &api.GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		System:  system,
		Stream:  new(bool),
		Options: ToOllamaOptions(options),
	}
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		thinking.WriteString(resp.Thinking)
		last = resp
		return nil
	})
	if err != nil {
		return nil, convertOllamaError("ollama generate request failed", err)
	}

	return &llm.Response{
		Model:      last.Model,
		Text:       text.String(),
		Reasoning:  thinking.String(),
		Usage:      usageFromMetrics(last.Metrics),
		StopReason: stopReason(last.DoneReason),
	}, nil
}

// ListModels implements llm.ModelLister using /api/tags.
func (c *OllamaClient) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, convertOllamaError("ollama list request failed", err)
	}

	models := make([]llm.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, llm.ModelInfo{
			Name:       m.Name,
			Family:     m.Details.Family,
			Parameters: m.Details.ParameterSize,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		})
	}
	return models, nil
}

var (
	_ llm.Client      = (*OllamaClient)(nil)
	_ llm.ModelLister = (*OllamaClient)(nil)
)
