package openai

import (
	"errors"
	"io"
	"sync"

	"github.com/aschepis/backscratcher/otk/llm"
	openai "github.com/sashabaranov/go-openai"
)

// openaiStream implements the llm.Stream interface for OpenAI streaming responses.
// Chunks are pulled from the server one Next call at a time.
type openaiStream struct {
	stream  *openai.ChatCompletionStream
	event   *llm.StreamEvent
	usage   *llm.Usage
	mu      sync.Mutex
	err     error
	done    bool
	started bool
}

// newOpenAIStream creates a new openaiStream.
func newOpenAIStream(stream *openai.ChatCompletionStream) *openaiStream {
	return &openaiStream{stream: stream}
}

// Next advances to the next event in the stream.
func (s *openaiStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil || s.done {
		return false
	}
	if !s.started {
		s.started = true
		s.event = &llm.StreamEvent{Type: llm.StreamEventTypeStart}
		return true
	}

	for {
		chunk, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			s.event = &llm.StreamEvent{
				Type:  llm.StreamEventTypeStop,
				Usage: s.usage,
				Done:  true,
			}
			return true
		}
		if err != nil {
			s.err = convertOpenAIError(err)
			return false
		}

		if chunk.Usage != nil {
			s.usage = &llm.Usage{
				InputTokens:  int64(chunk.Usage.PromptTokens),
				OutputTokens: int64(chunk.Usage.CompletionTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content == "" && delta.ReasoningContent == "" {
			// Role-only chunks carry no text
			continue
		}

		s.event = &llm.StreamEvent{
			Type:      llm.StreamEventTypeContentDelta,
			Text:      delta.Content,
			Reasoning: delta.ReasoningContent,
		}
		return true
	}
}

// Event returns the current event.
func (s *openaiStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.event
}

// Err returns any error that occurred during streaming.
func (s *openaiStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the stream and releases resources.
func (s *openaiStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	if s.stream != nil {
		return s.stream.Close()
	}
	return nil
}
