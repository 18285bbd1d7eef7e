package ollama

import (
	"context"
	"sync"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/ollama/ollama/api"
)

// ollamaStream implements the llm.Stream interface for Ollama streaming responses.
type ollamaStream struct {
	ctx     context.Context
	cancel  context.CancelFunc
	client  *api.Client
	req     *api.ChatRequest
	events  []*llm.StreamEvent
	current int
	mu      sync.Mutex
	cond    *sync.Cond // Signals new events, completion or failure
	err     error
	done    bool
	started bool
}

// newOllamaStream creates a new ollamaStream.
func newOllamaStream(ctx context.Context, client *api.Client, req *api.ChatRequest) *ollamaStream {
	ctx, cancel := context.WithCancel(ctx)
	stream := &ollamaStream{
		ctx:     ctx,
		cancel:  cancel,
		client:  client,
		req:     req,
		events:  make([]*llm.StreamEvent, 0),
		current: -1,
	}
	stream.cond = sync.NewCond(&stream.mu)
	return stream
}

// Next advances to the next event in the stream.
func (s *ollamaStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		go s.startStream()
	}

	s.current++

	// Wait until the producer has appended the event we want, or finished
	for s.current >= len(s.events) && !s.done && s.err == nil {
		s.cond.Wait()
	}

	if s.err != nil {
		return false
	}
	return s.current < len(s.events)
}

// Event returns the current event.
func (s *ollamaStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < 0 || s.current >= len(s.events) {
		return nil
	}
	return s.events[s.current]
}

// Err returns any error that occurred during streaming.
func (s *ollamaStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the underlying request and releases resources.
func (s *ollamaStream) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.cond.Broadcast()
	return nil
}

func (s *ollamaStream) emit(event *llm.StreamEvent) {
	s.events = append(s.events, event)
	s.cond.Broadcast()
}

// startStream runs the chat request and turns each chunk into events.
// Ollama sends incremental deltas (new tokens), not cumulative content.
func (s *ollamaStream) startStream() {
	s.mu.Lock()
	s.emit(&llm.StreamEvent{Type: llm.StreamEventTypeStart})
	s.mu.Unlock()

	err := s.client.Chat(s.ctx, s.req, func(resp api.ChatResponse) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if resp.Message.Content != "" || resp.Message.Thinking != "" {
			s.emit(&llm.StreamEvent{
				Type:      llm.StreamEventTypeContentDelta,
				Text:      resp.Message.Content,
				Reasoning: resp.Message.Thinking,
			})
		}

		if resp.Done {
			usage := usageFromMetrics(resp.Metrics)
			s.emit(&llm.StreamEvent{
				Type:  llm.StreamEventTypeMessageDelta,
				Usage: usage,
			})
			s.emit(&llm.StreamEvent{
				Type:  llm.StreamEventTypeStop,
				Usage: usage,
				Done:  true,
			})
			s.done = true
		}
		return nil
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil && !s.done {
		s.err = convertOllamaError("ollama chat stream failed", err)
	}
	s.done = true
	s.cond.Broadcast()
}
