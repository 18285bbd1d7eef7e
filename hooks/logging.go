package hooks

import (
	"context"

	"github.com/aschepis/backscratcher/otk/customize"
	"github.com/rs/zerolog"
)

// Logging returns hooks that log each invocation phase: the request at debug,
// the processed response at info and failures at warn.
func Logging(logger zerolog.Logger) *customize.Hooks {
	logger = logger.With().Str("component", "invocationLog").Logger()

	return customize.NewHooks().
		PreRequest("log-request", func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
			evt := logger.Debug().
				Str("invocation", hc.InvocationID).
				Str("model", hc.Model).
				Int("promptChars", len(hc.Prompt))
			if hc.Request != nil {
				evt = evt.Int("messages", len(hc.Request.Messages)).Bool("system", hc.Request.System != "")
			}
			evt.Msg("Invoking model")
			return customize.Continue, nil
		}).
		PostResponse("log-response", func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
			evt := logger.Info().
				Str("invocation", hc.InvocationID).
				Str("model", hc.Model).
				Str("type", hc.Processed.Type.String()).
				Bool("extracted", hc.Processed.Extracted).
				Int("answerChars", len(hc.Processed.Clean)).
				Int("reasoningChars", len(hc.Processed.Reasoning)).
				Dur("elapsed", hc.Elapsed())
			if hc.Processed.Degraded {
				evt = evt.Bool("degraded", true)
			}
			if hc.Response != nil && hc.Response.Usage != nil {
				evt = evt.
					Int64("inputTokens", hc.Response.Usage.InputTokens).
					Int64("outputTokens", hc.Response.Usage.OutputTokens)
			}
			evt.Msg("Model responded")
			return customize.Continue, nil
		}).
		OnError("log-error", func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
			logger.Warn().
				Err(hc.Err).
				Str("invocation", hc.InvocationID).
				Str("model", hc.Model).
				Dur("elapsed", hc.Elapsed()).
				Msg("Model invocation failed")
			return customize.Continue, nil
		})
}
