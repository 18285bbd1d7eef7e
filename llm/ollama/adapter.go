package ollama

import (
	"errors"

	"github.com/aschepis/backscratcher/otk/llm"
	"github.com/ollama/ollama/api"
)

// supportedOptions lists the generation options Ollama's runner accepts.
var supportedOptions = map[string]bool{
	"temperature":       true,
	"top_p":             true,
	"top_k":             true,
	"min_p":             true,
	"num_predict":       true,
	"num_ctx":           true,
	"stop":              true,
	"seed":              true,
	"repeat_penalty":    true,
	"repeat_last_n":     true,
	"presence_penalty":  true,
	"frequency_penalty": true,
}

// ToOllamaMessages converts llm messages to Ollama messages, prepending the
// system prompt when one is set.
func ToOllamaMessages(system string, msgs []llm.Message) []api.Message {
	out := make([]api.Message, 0, len(msgs)+1)
	if system != "" {
		out = append(out, api.Message{Role: string(llm.RoleSystem), Content: system})
	}
	for _, msg := range msgs {
		out = append(out, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// ToOllamaOptions copies the options Ollama understands. Unsupported keys are dropped.
func ToOllamaOptions(options map[string]any) map[string]any {
	out := make(map[string]any, len(options))
	for k, v := range options {
		if supportedOptions[k] {
			out[k] = v
		}
	}
	return out
}

func usageFromMetrics(m api.Metrics) *llm.Usage {
	usage := &llm.Usage{}
	if m.PromptEvalCount > 0 {
		usage.InputTokens = int64(m.PromptEvalCount)
	}
	if m.EvalCount > 0 {
		usage.OutputTokens = int64(m.EvalCount)
	}
	return usage
}

func stopReason(doneReason string) string {
	switch doneReason {
	case "length":
		return "max_tokens"
	case "":
		return "stop"
	default:
		return doneReason
	}
}

// convertOllamaError converts Ollama API errors to llm.Error types.
func convertOllamaError(message string, err error) error {
	if err == nil {
		return nil
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return llm.NewStatusError(message, statusErr.StatusCode, err)
	}

	return llm.ClassifyError(message, err)
}
