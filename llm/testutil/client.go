// Package testutil provides in-memory llm.Client and llm.Stream
// implementations for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/aschepis/backscratcher/otk/llm"
)

// MockClient is an in-memory client that records every request it receives.
// Without hooks it answers every request with Text.
type MockClient struct {
	// Text is returned by default from Synchronous and streamed as one chunk.
	Text string
	// Reasoning is returned in the response's Reasoning field.
	Reasoning string
	// Models is returned from ListModels.
	Models []llm.ModelInfo

	// SynchronousFunc, when set, replaces the default Synchronous behavior.
	SynchronousFunc func(ctx context.Context, req *llm.Request) (*llm.Response, error)
	// StreamFunc, when set, replaces the default Stream behavior.
	StreamFunc func(ctx context.Context, req *llm.Request) (llm.Stream, error)

	mu       sync.Mutex
	requests []llm.Request
}

var (
	_ llm.Client      = (*MockClient)(nil)
	_ llm.ModelLister = (*MockClient)(nil)
)

// NewMockClient creates a mock client that always answers with text.
func NewMockClient(text string) *MockClient {
	return &MockClient{Text: text}
}

// Synchronous records req and returns the configured response.
func (c *MockClient) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	c.record(req)
	if c.SynchronousFunc != nil {
		return c.SynchronousFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &llm.Response{
		Model:      req.Model,
		Text:       c.Text,
		Reasoning:  c.Reasoning,
		Usage:      &llm.Usage{InputTokens: 1, OutputTokens: 1},
		StopReason: "stop",
	}, nil
}

// Stream records req and returns the configured stream.
func (c *MockClient) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	c.record(req)
	if c.StreamFunc != nil {
		return c.StreamFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewMockStream(nil, c.Text), nil
}

// ListModels returns Models.
func (c *MockClient) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return c.Models, nil
}

func (c *MockClient) record(req *llm.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req == nil {
		c.requests = append(c.requests, llm.Request{})
		return
	}
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	if req.Options != nil {
		cp.Options = make(map[string]any, len(req.Options))
		for k, v := range req.Options {
			cp.Options[k] = v
		}
	}
	c.requests = append(c.requests, cp)
}

// Requests returns copies of all recorded requests.
func (c *MockClient) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]llm.Request, len(c.requests))
	copy(cp, c.requests)
	return cp
}

// LastRequest returns the most recent request, or false when none was made.
func (c *MockClient) LastRequest() (llm.Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return llm.Request{}, false
	}
	return c.requests[len(c.requests)-1], true
}

// Calls returns the number of requests received.
func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// Reset clears all recorded requests.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
}
