package response

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Delimiter is a reasoning open/close marker pair. Markers match case-insensitively.
type Delimiter struct {
	Open  string
	Close string
}

// DefaultDelimiters are the reasoning markers recognized out of the box.
var DefaultDelimiters = []Delimiter{
	{Open: "<think>", Close: "</think>"},
	{Open: "<thinking>", Close: "</thinking>"},
	{Open: "<reasoning>", Close: "</reasoning>"},
	{Open: "<thought>", Close: "</thought>"},
	{Open: "◁think▷", Close: "◁/think▷"},
}

var (
	// fencedJSONRE unwraps a response that is a single ```json fenced block
	fencedJSONRE = regexp.MustCompile("(?s)\\A```(?:json|JSON)?\\s*(.*?)\\s*```\\z")

	// labeledSectionsRE matches "<reasoning label>: ... \n <answer label>: ..."
	labeledSectionsRE = regexp.MustCompile(`(?is)\A\s*(?:here is my thought process|thought process|thinking|reasoning|thoughts?)\s*:(.*?)\n\s*(?:here is my response|final answer|answer|response)\s*:(.*)\z`)

	reasoningKeys = []string{"thinking", "reasoning", "thought", "thoughts"}
	answerKeys    = []string{"answer", "response", "final_answer", "content"}
)

type delimiterRE struct {
	Delimiter
	re *regexp.Regexp
}

func compileDelimiters(delims []Delimiter) []delimiterRE {
	out := make([]delimiterRE, 0, len(delims))
	for _, d := range delims {
		if d.Open == "" || d.Close == "" {
			continue
		}
		out = append(out, delimiterRE{
			Delimiter: d,
			re:        regexp.MustCompile(`(?is)` + regexp.QuoteMeta(d.Open) + `(.*?)` + regexp.QuoteMeta(d.Close)),
		})
	}
	return out
}

// pairMatch locates a complete delimiter pair in text.
type pairMatch struct {
	start, end           int // whole pair, markers included
	innerStart, innerEnd int
}

// findPair returns the earliest complete delimiter pair, or false when no open
// marker is followed by its close marker.
func findPair(delims []delimiterRE, text string) (pairMatch, bool) {
	var best pairMatch
	found := false
	for _, d := range delims {
		loc := d.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		if !found || loc[0] < best.start {
			best = pairMatch{start: loc[0], end: loc[1], innerStart: loc[2], innerEnd: loc[3]}
			found = true
		}
	}
	return best, found
}

// Handler turns raw model output into a ProcessedResponse. It holds no mutable
// state and is safe for concurrent use.
type Handler struct {
	delimiters []delimiterRE
}

// NewHandler creates a Handler recognizing the given delimiter pairs, or
// DefaultDelimiters when none are given.
func NewHandler(delims ...Delimiter) *Handler {
	if len(delims) == 0 {
		delims = DefaultDelimiters
	}
	return &Handler{delimiters: compileDelimiters(delims)}
}

// Handle processes raw according to t. It never fails: input that cannot be
// parsed for t is passed through with surrounding whitespace trimmed.
func (h *Handler) Handle(raw string, t ModelType) ProcessedResponse {
	switch t {
	case TypeReasoning:
		return h.handleReasoning(raw)
	case TypeStructured:
		return h.handleStructured(raw)
	default:
		return passThrough(raw, TypePlain)
	}
}

// handleReasoning strips the first complete delimiter pair. Markers are
// excluded from both outputs; the text around the pair is concatenated.
func (h *Handler) handleReasoning(raw string) ProcessedResponse {
	m, ok := findPair(h.delimiters, raw)
	if !ok {
		return passThrough(raw, TypeReasoning)
	}
	return ProcessedResponse{
		Raw:       raw,
		Clean:     strings.TrimSpace(raw[:m.start] + raw[m.end:]),
		Reasoning: strings.TrimSpace(raw[m.innerStart:m.innerEnd]),
		Type:      TypeReasoning,
		Extracted: true,
	}
}

func (h *Handler) handleStructured(raw string) ProcessedResponse {
	if reasoning, answer, ok := parseStructuredJSON(raw); ok {
		return ProcessedResponse{
			Raw:       raw,
			Clean:     strings.TrimSpace(answer),
			Reasoning: strings.TrimSpace(reasoning),
			Type:      TypeStructured,
			Extracted: true,
		}
	}
	if m := labeledSectionsRE.FindStringSubmatch(raw); m != nil {
		return ProcessedResponse{
			Raw:       raw,
			Clean:     strings.TrimSpace(m[2]),
			Reasoning: strings.TrimSpace(m[1]),
			Type:      TypeStructured,
			Extracted: true,
		}
	}
	p := passThrough(raw, TypeStructured)
	p.Degraded = true
	return p
}

func passThrough(raw string, t ModelType) ProcessedResponse {
	return ProcessedResponse{
		Raw:   raw,
		Clean: strings.TrimSpace(raw),
		Type:  t,
	}
}

// parseStructuredJSON accepts a JSON object (optionally fenced) with one
// reasoning key and one answer key, both strings.
func parseStructuredJSON(raw string) (reasoning, answer string, ok bool) {
	text := strings.TrimSpace(raw)
	if m := fencedJSONRE.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if !strings.HasPrefix(text, "{") {
		return "", "", false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return "", "", false
	}

	reasoning, hasReasoning := firstString(fields, reasoningKeys)
	answer, hasAnswer := firstString(fields, answerKeys)
	if !hasReasoning || !hasAnswer {
		return "", "", false
	}
	return reasoning, answer, true
}

func firstString(fields map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			return s, true
		}
	}
	return "", false
}
