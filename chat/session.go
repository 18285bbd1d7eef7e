// Package chat keeps a multi-turn conversation with a customize.CustomizableModel.
package chat

import (
	"context"
	"sync"

	"github.com/aschepis/backscratcher/otk/customize"
	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/aschepis/backscratcher/otk/response"
	"github.com/rs/zerolog"
)

// DefaultMaxHistory is the number of messages a session keeps by default.
const DefaultMaxHistory = 20

// Session sends each turn with the prior history and records the user text
// and the clean assistant answer. It is safe for concurrent use; turns are
// serialized.
type Session struct {
	model      *customize.CustomizableModel
	maxHistory int
	logger     zerolog.Logger

	mu      sync.Mutex
	history []llm.Message
}

// Option configures a Session.
type Option func(*Session)

// WithMaxHistory bounds the stored history to n messages. An odd n is rounded
// up to a whole exchange, so WithMaxHistory(1) keeps the last question and
// answer. n <= 0 keeps everything.
func WithMaxHistory(n int) Option {
	return func(s *Session) {
		s.maxHistory = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates an empty session over model.
func NewSession(model *customize.CustomizableModel, opts ...Option) *Session {
	s := &Session{
		model:      model,
		maxHistory: DefaultMaxHistory,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxHistory > 0 && s.maxHistory%2 != 0 {
		s.maxHistory++
	}
	s.logger = s.logger.With().Str("component", "chatSession").Str("model", model.Model()).Logger()
	return s
}

// Send invokes the model with the history plus text. The user and assistant
// turns are recorded only when the invocation succeeds; the assistant turn
// holds the clean answer without reasoning.
func (s *Session) Send(ctx context.Context, text string) (response.ProcessedResponse, []customize.HookFault, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]llm.Message, 0, len(s.history)+1)
	messages = append(messages, s.history...)
	messages = append(messages, llm.NewTextMessage(llm.RoleUser, text))

	processed, faults, err := s.model.Chat(ctx, messages)
	if err != nil {
		return processed, faults, err
	}

	s.history = append(messages, llm.NewTextMessage(llm.RoleAssistant, processed.Clean))
	s.trim()

	s.logger.Debug().
		Int("history", len(s.history)).
		Bool("extracted", processed.Extracted).
		Msg("Turn recorded")

	return processed, faults, nil
}

// trim drops the oldest messages beyond maxHistory. Whole exchanges are
// dropped so the history never starts with an assistant turn.
func (s *Session) trim() {
	if s.maxHistory <= 0 || len(s.history) <= s.maxHistory {
		return
	}
	drop := len(s.history) - s.maxHistory
	for drop < len(s.history) && s.history[drop].Role != llm.RoleUser {
		drop++
	}
	s.history = append([]llm.Message(nil), s.history[drop:]...)
	s.logger.Debug().Int("dropped", drop).Msg("Trimmed history")
}

// History returns a copy of the recorded messages, oldest first.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.history...)
}

// Len returns the number of recorded messages.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Reset clears the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
