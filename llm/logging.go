package llm

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggingMiddleware logs every transport call at debug level and failures at warn.
type LoggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger.With().Str("component", "llmTransport").Logger(),
	}
}

// BeforeRequest implements Middleware.BeforeRequest.
func (m *LoggingMiddleware) BeforeRequest(ctx context.Context, req *Request) (*Request, error) {
	m.logger.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Int("options", len(req.Options)).
		Msg("Sending request")
	if req.Options == nil {
		req.Options = make(map[string]any)
	}
	return req, nil
}

// AfterResponse implements Middleware.AfterResponse.
func (m *LoggingMiddleware) AfterResponse(ctx context.Context, req *Request, resp *Response) (*Response, error) {
	evt := m.logger.Debug().
		Str("model", req.Model).
		Int("chars", len(resp.Text)).
		Str("stopReason", resp.StopReason)
	if resp.Usage != nil {
		evt = evt.Int64("inputTokens", resp.Usage.InputTokens).Int64("outputTokens", resp.Usage.OutputTokens)
	}
	evt.Msg("Received response")
	return resp, nil
}

// OnError implements Middleware.OnError.
func (m *LoggingMiddleware) OnError(ctx context.Context, req *Request, err error) error {
	m.logger.Warn().
		Err(err).
		Str("model", req.Model).
		Bool("retryable", IsRetryableError(err)).
		Msg("Request failed")
	return err
}

var _ Middleware = (*LoggingMiddleware)(nil)
