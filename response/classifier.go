package response

import (
	"strings"

	"github.com/samber/lo"
)

// MatchKind selects how a Pattern compares against a model identifier.
type MatchKind int

const (
	// MatchPrefix matches identifiers starting with Value.
	MatchPrefix MatchKind = iota
	// MatchExact matches identifiers equal to Value, with or without a tag.
	MatchExact
)

// Pattern maps model identifiers to a ModelType.
type Pattern struct {
	Match MatchKind
	Value string
	Type  ModelType
}

// DefaultPatterns is the built-in classification table for common local models.
var DefaultPatterns = []Pattern{
	{Match: MatchPrefix, Value: "deepseek-r1", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "qwq", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "qwen3", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "phi4-reasoning", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "openthinker", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "exaone-deep", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "magistral", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "cogito", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "r1-1776", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "deepscaler", Type: TypeReasoning},
	{Match: MatchPrefix, Value: "smallthinker", Type: TypeReasoning},

	{Match: MatchPrefix, Value: "granite3.2", Type: TypeStructured},
	{Match: MatchPrefix, Value: "granite3.3", Type: TypeStructured},

	{Match: MatchPrefix, Value: "qwen3-coder", Type: TypePlain},
	{Match: MatchPrefix, Value: "qwen3-embedding", Type: TypePlain},
}

// Classifier decides the ModelType of a model from its identifier, and
// optionally from a sample of its output. The zero value is not usable;
// construct with NewClassifier. A Classifier is read-only once built.
type Classifier struct {
	patterns   []Pattern
	delimiters []delimiterRE
}

// NewClassifier creates a Classifier from DefaultPatterns plus extra. Extra
// patterns win ties against built-in patterns of the same specificity.
func NewClassifier(extra ...Pattern) *Classifier {
	patterns := make([]Pattern, 0, len(extra)+len(DefaultPatterns))
	for _, p := range extra {
		p.Value = normalizeModelID(p.Value)
		if p.Value != "" {
			patterns = append(patterns, p)
		}
	}
	patterns = append(patterns, DefaultPatterns...)

	return &Classifier{
		patterns:   patterns,
		delimiters: compileDelimiters(DefaultDelimiters),
	}
}

// normalizeModelID lowercases, trims, and strips any registry or namespace
// path so "hf.co/org/Qwen3:8b" becomes "qwen3:8b".
func normalizeModelID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

// Classify returns the ModelType for modelID. Exact matches take precedence
// over prefix matches and the longest prefix wins. Unknown identifiers are plain.
func (c *Classifier) Classify(modelID string) ModelType {
	t, _ := c.lookup(modelID)
	return t
}

// Known reports whether modelID matched any pattern.
func (c *Classifier) Known(modelID string) bool {
	_, ok := c.lookup(modelID)
	return ok
}

func (c *Classifier) lookup(modelID string) (ModelType, bool) {
	id := normalizeModelID(modelID)
	if id == "" {
		return TypePlain, false
	}
	base, _, _ := strings.Cut(id, ":")

	if p, ok := lo.Find(c.patterns, func(p Pattern) bool {
		return p.Match == MatchExact && (p.Value == id || p.Value == base)
	}); ok {
		return p.Type, true
	}

	prefixes := lo.Filter(c.patterns, func(p Pattern, _ int) bool {
		return p.Match == MatchPrefix && strings.HasPrefix(id, p.Value)
	})
	if len(prefixes) == 0 {
		return TypePlain, false
	}
	best := lo.MaxBy(prefixes, func(a, b Pattern) bool {
		return len(a.Value) > len(b.Value)
	})
	return best.Type, true
}

// ClassifySample refines classification using a sample of the model's output.
// Known identifiers are classified by table; otherwise a complete delimiter
// pair means reasoning and a JSON object with reasoning and answer fields
// means structured.
func (c *Classifier) ClassifySample(modelID, sample string) ModelType {
	if t, ok := c.lookup(modelID); ok {
		return t
	}
	if _, ok := findPair(c.delimiters, sample); ok {
		return TypeReasoning
	}
	if _, _, ok := parseStructuredJSON(sample); ok {
		return TypeStructured
	}
	return TypePlain
}
