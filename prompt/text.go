package prompt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// charsPerToken is the rough characters-per-token ratio of common tokenizers
// on English text.
const charsPerToken = 4

var blankRunRE = regexp.MustCompile(`\n{3,}`)

// EstimateTokens approximates the token count of text as ceil(runes/4).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// ChunkText splits text on whitespace into chunks of at most maxTokens
// estimated tokens. Consecutive chunks share roughly overlapTokens of trailing
// words. A single word larger than maxTokens becomes its own chunk. A
// non-positive maxTokens returns the whole text as one chunk.
func ChunkText(text string, maxTokens, overlapTokens int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		return []string{strings.Join(words, " ")}
	}
	overlapTokens = lo.Clamp(overlapTokens, 0, maxTokens/2)

	cost := lo.Map(words, func(w string, _ int) int {
		// Count the joining space with the word
		return EstimateTokens(w + " ")
	})

	var chunks []string
	start := 0
	for start < len(words) {
		end, size := start, 0
		for end < len(words) {
			if size+cost[end] > maxTokens && end > start {
				break
			}
			size += cost[end]
			end++
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}

		next, back := end, 0
		for next > start+1 && back+cost[next-1] <= overlapTokens {
			back += cost[next-1]
			next--
		}
		start = next
	}
	return chunks
}

// FormatResponse tidies model output for display: trailing spaces are removed
// from every line, runs of blank lines collapse to one, and the result is trimmed.
func FormatResponse(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines = lo.Map(lines, func(l string, _ int) string {
		return strings.TrimRight(l, " \t")
	})
	out := blankRunRE.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}
