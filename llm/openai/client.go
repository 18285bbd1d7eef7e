package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aschepis/backscratcher/otk/llm"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI-compatible servers don't reliably expose retry-after headers
// We'll use a default retry after duration for rate limits
const defaultRetryAfter = 5 * time.Second

// OpenAIClient implements the llm.Client interface for OpenAI-compatible
// local servers (LM Studio, llama.cpp server, vLLM, Ollama's /v1).
type OpenAIClient struct {
	client *openai.Client
	model  string // Default model to use if not specified in request
}

// NewOpenAIClient creates a new OpenAIClient.
// baseURL is required; local servers usually accept an empty apiKey.
// A zero timeout leaves requests bounded only by their context.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (c *OpenAIClient) buildRequest(req *llm.Request, stream bool) (openai.ChatCompletionRequest, error) {
	if req == nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("request is required")
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return openai.ChatCompletionRequest{}, fmt.Errorf("model is required")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: ToOpenAIMessages(req.System, req.Messages),
		Stream:   stream,
	}
	if stream {
		chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	ApplyOptions(&chatReq, req.Options)
	return chatReq, nil
}

// Synchronous implements llm.Client.Synchronous.
func (c *OpenAIClient) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	chatReq, err := c.buildRequest(req, false)
	if err != nil {
		return nil, err
	}

	chatResp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertOpenAIError(err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, llm.NewProviderError("no choices in response", nil)
	}
	choice := chatResp.Choices[0]

	return &llm.Response{
		Model:     chatResp.Model,
		Text:      choice.Message.Content,
		Reasoning: choice.Message.ReasoningContent,
		Usage: &llm.Usage{
			InputTokens:  int64(chatResp.Usage.PromptTokens),
			OutputTokens: int64(chatResp.Usage.CompletionTokens),
		},
		StopReason: stopReason(choice.FinishReason),
	}, nil
}

// Stream implements llm.Client.Stream.
func (c *OpenAIClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	chatReq, err := c.buildRequest(req, true)
	if err != nil {
		return nil, err
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, convertOpenAIError(err)
	}

	return newOpenAIStream(stream), nil
}

// ListModels implements llm.ModelLister using /v1/models.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, convertOpenAIError(err)
	}

	models := make([]llm.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		info := llm.ModelInfo{Name: m.ID, Family: m.OwnedBy}
		if m.CreatedAt > 0 {
			info.ModifiedAt = time.Unix(m.CreatedAt, 0)
		}
		models = append(models, info)
	}
	return models, nil
}

// convertOpenAIError converts OpenAI API errors to llm.Error types.
func convertOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			retryAfter := defaultRetryAfter
			return llm.NewRateLimitError(fmt.Sprintf("OpenAI rate limit: %s", apiErr.Message), &retryAfter, err)
		}
		return llm.NewStatusError(fmt.Sprintf("OpenAI API error: %s", apiErr.Message), apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return llm.NewStatusError("OpenAI request failed", reqErr.HTTPStatusCode, err)
	}

	return llm.ClassifyError("OpenAI request failed", err)
}

var (
	_ llm.Client      = (*OpenAIClient)(nil)
	_ llm.ModelLister = (*OpenAIClient)(nil)
)
