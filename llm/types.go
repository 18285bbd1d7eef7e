package llm

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message represents a single chat message.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Request represents a complete LLM API request.
//
// Options carries the flattened generation options (temperature, top_p, stop, ...)
// using the local service's option names. Adapters translate the names they
// understand and ignore the rest.
type Request struct {
	Model    string
	Messages []Message
	System   string
	Options  map[string]any
}

// Response represents a complete LLM API response.
type Response struct {
	Model string
	Text  string
	// Reasoning holds thinking content the service returned in a separate field
	// (for example Ollama's message.thinking). Inline <think> markup stays in Text.
	Reasoning  string
	Usage      *Usage
	StopReason string
}

// Usage represents token usage information from an LLM response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// ModelInfo describes a model available on the local service.
type ModelInfo struct {
	Name       string
	Family     string
	Parameters string
	Size       int64
	ModifiedAt time.Time
}

// StreamEvent represents a single streaming event.
type StreamEvent struct {
	Type      StreamEventType
	Text      string
	Reasoning string
	Usage     *Usage
	Done      bool
}

// StreamEventType represents the type of streaming event.
type StreamEventType string

const (
	StreamEventTypeStart        StreamEventType = "start"
	StreamEventTypeContentDelta StreamEventType = "content_delta"
	StreamEventTypeMessageDelta StreamEventType = "message_delta"
	StreamEventTypeStop         StreamEventType = "stop"
)

// NewTextMessage creates a new message with text content.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{
		Role:    role,
		Content: text,
	}
}

// ToJSON marshals a message to JSON for debugging/logging purposes.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Collect drains a stream and folds its chunks into a single Response.
// The stream is closed before Collect returns.
func Collect(stream Stream) (*Response, error) {
	defer stream.Close()

	var text, reasoning strings.Builder
	resp := &Response{}
	for stream.Next() {
		event := stream.Event()
		if event == nil {
			continue
		}
		text.WriteString(event.Text)
		reasoning.WriteString(event.Reasoning)
		if event.Usage != nil {
			resp.Usage = event.Usage
		}
		if event.Done {
			resp.StopReason = "stop"
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}

	resp.Text = text.String()
	resp.Reasoning = reasoning.String()
	return resp, nil
}
