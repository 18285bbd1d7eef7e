package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/ollama/ollama/api"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOllamaClient(srv.URL, "qwen3:8b", 0)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestOllamaClient_Synchronous(t *testing.T) {
	var got api.ChatRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		fmt.Fprint(w, `{"model":"qwen3:8b","message":{"role":"assistant","content":"Paris.","thinking":"capital of France"},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":3}`)
	})

	resp, err := client.Synchronous(context.Background(), &llm.Request{
		System:   "Answer briefly.",
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "Capital of France?")},
		Options:  map[string]any{"temperature": 0.2, "not_an_option": true},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got.Model != "qwen3:8b" {
		t.Errorf("Expected default model, got %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("Expected system message first, got %+v", got.Messages)
	}
	if _, ok := got.Options["not_an_option"]; ok {
		t.Error("Expected unsupported option to be dropped")
	}
	if got.Options["temperature"] != 0.2 {
		t.Errorf("Expected temperature 0.2, got %v", got.Options["temperature"])
	}
	if got.Stream == nil || *got.Stream {
		t.Error("Expected a non-streaming request")
	}

	if resp.Text != "Paris." {
		t.Errorf("Expected text 'Paris.', got %q", resp.Text)
	}
	if resp.Reasoning != "capital of France" {
		t.Errorf("Expected native reasoning, got %q", resp.Reasoning)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 3 {
		t.Errorf("Unexpected usage %+v", resp.Usage)
	}
	if resp.StopReason != "stop" {
		t.Errorf("Expected stop reason 'stop', got %q", resp.StopReason)
	}
}

func TestOllamaClient_ModelNotFound(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"nope\" not found, try pulling it first"}`)
	})

	_, err := client.Synchronous(context.Background(), &llm.Request{Model: "nope"})
	if !llm.IsModelNotFoundError(err) {
		t.Errorf("Expected model not found error, got %v", err)
	}
}

func TestOllamaClient_Stream(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		lines := []string{
			`{"model":"qwen3:8b","message":{"role":"assistant","content":"","thinking":"hmm"},"done":false}`,
			`{"model":"qwen3:8b","message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"model":"qwen3:8b","message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"model":"qwen3:8b","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":4,"eval_count":2}`,
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	})

	stream, err := client.Stream(context.Background(), &llm.Request{
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	resp, err := llm.Collect(stream)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Text != "Hello" {
		t.Errorf("Expected text 'Hello', got %q", resp.Text)
	}
	if resp.Reasoning != "hmm" {
		t.Errorf("Expected reasoning 'hmm', got %q", resp.Reasoning)
	}
	if resp.Usage == nil || resp.Usage.OutputTokens != 2 {
		t.Errorf("Expected usage from final chunk, got %+v", resp.Usage)
	}
}

func TestOllamaClient_ListModels(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models":[{"name":"deepseek-r1:7b","model":"deepseek-r1:7b","size":4683075271,"details":{"family":"qwen2","parameter_size":"7.6B"}}]}`)
	})

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("Expected 1 model, got %d", len(models))
	}
	m := models[0]
	if m.Name != "deepseek-r1:7b" || m.Family != "qwen2" || m.Parameters != "7.6B" {
		t.Errorf("Unexpected model info %+v", m)
	}
}

func TestOllamaClient_Generate(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req api.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt != "2+2?" || req.System != "math" {
			t.Errorf("Unexpected generate request %+v", req)
		}
		fmt.Fprint(w, `{"model":"qwen3:8b","response":"<think>add</think>4","done":true,"done_reason":"length"}`)
	})

	resp, err := client.Generate(context.Background(), "", "2+2?", "math", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Text != "<think>add</think>4" {
		t.Errorf("Expected raw text, got %q", resp.Text)
	}
	if resp.StopReason != "max_tokens" {
		t.Errorf("Expected max_tokens stop reason, got %q", resp.StopReason)
	}
}

func TestResolveModelRequired(t *testing.T) {
	client, err := NewOllamaClient("localhost:11434", "", 0)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if _, err := client.Synchronous(context.Background(), &llm.Request{}); err == nil {
		t.Error("Expected error when no model is set")
	}
}

func TestParseHost(t *testing.T) {
	u, err := parseHost("gpu-box:11434")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if u.Scheme != "http" || u.Host != "gpu-box:11434" {
		t.Errorf("Unexpected URL %v", u)
	}
}
