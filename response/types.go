package response

import (
	"fmt"
	"strings"
)

// ModelType identifies how a model presents its output.
type ModelType int

const (
	// TypePlain models return only the answer.
	TypePlain ModelType = iota
	// TypeReasoning models wrap their deliberation in a delimiter pair
	// such as <think>...</think> before the answer.
	TypeReasoning
	// TypeStructured models return labeled sections or a JSON object
	// carrying reasoning and answer fields.
	TypeStructured
)

// String returns the canonical name of the type.
func (t ModelType) String() string {
	switch t {
	case TypePlain:
		return "plain"
	case TypeReasoning:
		return "reasoning-delimited"
	case TypeStructured:
		return "structured"
	default:
		return fmt.Sprintf("ModelType(%d)", int(t))
	}
}

// ParseModelType parses the names produced by String. "reasoning" and "thinking"
// are accepted as aliases of "reasoning-delimited".
func ParseModelType(s string) (ModelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "":
		return TypePlain, nil
	case "reasoning-delimited", "reasoning", "thinking":
		return TypeReasoning, nil
	case "structured", "structured-json":
		return TypeStructured, nil
	default:
		return TypePlain, fmt.Errorf("unknown model type %q", s)
	}
}

// ProcessedResponse is the result of handling one raw model response.
// It is returned by value and never modified after construction.
type ProcessedResponse struct {
	// Raw is the original text, unmodified.
	Raw string
	// Clean is the answer with reasoning markup removed and surrounding
	// whitespace trimmed.
	Clean string
	// Reasoning is the extracted deliberation text, empty when none was found.
	Reasoning string
	// Type is the type the response was handled as.
	Type ModelType
	// Extracted reports whether reasoning was separated from the answer.
	Extracted bool
	// Degraded reports that structural parsing failed and the text was
	// passed through unchanged.
	Degraded bool
}

// HasReasoning reports whether any reasoning text is attached.
func (p ProcessedResponse) HasReasoning() bool {
	return p.Reasoning != ""
}

// WithReasoning returns a copy carrying reasoning supplied out of band, for
// services that return thinking in a separate field. The receiver is unchanged;
// an already extracted response is returned as is.
func (p ProcessedResponse) WithReasoning(reasoning string) ProcessedResponse {
	reasoning = strings.TrimSpace(reasoning)
	if p.Extracted || reasoning == "" {
		return p
	}
	p.Reasoning = reasoning
	p.Extracted = true
	return p
}
