package testutil

import (
	"sync"

	"github.com/aschepis/backscratcher/otk/llm"
)

// MockStream replays a fixed sequence of events. When err is set it is
// reported after the last event instead of a stop event.
type MockStream struct {
	mu     sync.Mutex
	events []llm.StreamEvent
	idx    int
	err    error
	closed bool
}

var _ llm.Stream = (*MockStream)(nil)

// NewMockStream creates a stream emitting one content delta per chunk,
// followed by a stop event or by err.
func NewMockStream(err error, chunks ...string) *MockStream {
	events := []llm.StreamEvent{{Type: llm.StreamEventTypeStart}}
	for _, c := range chunks {
		events = append(events, llm.StreamEvent{Type: llm.StreamEventTypeContentDelta, Text: c})
	}
	if err == nil {
		events = append(events, llm.StreamEvent{
			Type:  llm.StreamEventTypeStop,
			Usage: &llm.Usage{InputTokens: 1, OutputTokens: int64(len(chunks))},
			Done:  true,
		})
	}
	return &MockStream{events: events, idx: -1, err: err}
}

// NewMockStreamEvents creates a stream replaying events verbatim.
func NewMockStreamEvents(events ...llm.StreamEvent) *MockStream {
	return &MockStream{events: events, idx: -1}
}

// Next implements llm.Stream.
func (s *MockStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.idx+1 >= len(s.events) {
		return false
	}
	s.idx++
	return true
}

// Event implements llm.Stream.
func (s *MockStream) Event() *llm.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx < 0 || s.idx >= len(s.events) {
		return nil
	}
	ev := s.events[s.idx]
	return &ev
}

// Err implements llm.Stream. The error is only visible once all events
// have been consumed.
func (s *MockStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx+1 < len(s.events) && !s.closed {
		return nil
	}
	return s.err
}

// Close implements llm.Stream.
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
