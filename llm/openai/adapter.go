package openai

import (
	"math"

	"github.com/aschepis/backscratcher/otk/llm"
	openai "github.com/sashabaranov/go-openai"
)

// ToOpenAIMessages converts llm.Messages to OpenAI chat message format,
// prepending the system prompt when one is set.
func ToOpenAIMessages(system string, msgs []llm.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range msgs {
		result = append(result, ToOpenAIMessage(msg))
	}
	return result
}

// ToOpenAIMessage converts a single llm.Message to OpenAI format.
func ToOpenAIMessage(msg llm.Message) openai.ChatCompletionMessage {
	var role string
	switch msg.Role {
	case llm.RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case llm.RoleSystem:
		role = openai.ChatMessageRoleSystem
	default:
		role = openai.ChatMessageRoleUser
	}
	return openai.ChatCompletionMessage{
		Role:    role,
		Content: msg.Content,
	}
}

// ApplyOptions maps Ollama-style option names onto an OpenAI chat request.
// Options without an OpenAI equivalent (top_k, min_p, num_ctx, repeat_*) are dropped.
func ApplyOptions(req *openai.ChatCompletionRequest, options map[string]any) {
	for name, value := range options {
		switch name {
		case "temperature":
			if f, ok := toFloat(value); ok {
				// go-openai omits a zero temperature; the smallest
				// non-zero float is its documented stand-in for 0.
				if f == 0 {
					req.Temperature = math.SmallestNonzeroFloat32
				} else {
					req.Temperature = float32(f)
				}
			}
		case "top_p":
			if f, ok := toFloat(value); ok {
				req.TopP = float32(f)
			}
		case "presence_penalty":
			if f, ok := toFloat(value); ok {
				req.PresencePenalty = float32(f)
			}
		case "frequency_penalty":
			if f, ok := toFloat(value); ok {
				req.FrequencyPenalty = float32(f)
			}
		case "num_predict":
			if f, ok := toFloat(value); ok && f > 0 {
				req.MaxTokens = int(f)
			}
		case "seed":
			if f, ok := toFloat(value); ok {
				seed := int(f)
				req.Seed = &seed
			}
		case "stop":
			if stop, ok := value.([]string); ok {
				req.Stop = append([]string(nil), stop...)
			}
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stopReason(reason openai.FinishReason) string {
	switch reason {
	case openai.FinishReasonLength:
		return "max_tokens"
	case openai.FinishReasonContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}
