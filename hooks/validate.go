package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/aschepis/backscratcher/otk/customize"
	"github.com/aschepis/backscratcher/otk/prompt"
)

// RequirePrompt aborts invocations whose prompt is blank.
func RequirePrompt() customize.HookFunc {
	return func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
		if strings.TrimSpace(hc.Prompt) == "" {
			return hc.Abort("prompt is empty")
		}
		return customize.Continue, nil
	}
}

// MaxPromptTokens aborts invocations whose messages and system prompt are
// estimated to exceed limit tokens.
func MaxPromptTokens(limit int) customize.HookFunc {
	return func(ctx context.Context, hc *customize.HookContext) (customize.Outcome, error) {
		if limit <= 0 || hc.Request == nil {
			return customize.Continue, nil
		}
		total := prompt.EstimateTokens(hc.Request.System)
		for _, msg := range hc.Request.Messages {
			total += prompt.EstimateTokens(msg.Content)
		}
		if total > limit {
			return hc.Abort(fmt.Sprintf("prompt is about %d tokens, limit is %d", total, limit))
		}
		hc.Set("prompt.tokens", total)
		return customize.Continue, nil
	}
}

// Validation returns PreRequest hooks rejecting blank prompts and, when
// maxTokens is positive, prompts estimated larger than maxTokens.
func Validation(maxTokens int) *customize.Hooks {
	h := customize.NewHooks().PreRequest("require-prompt", RequirePrompt())
	if maxTokens > 0 {
		h.PreRequest("max-prompt-tokens", MaxPromptTokens(maxTokens))
	}
	return h
}
