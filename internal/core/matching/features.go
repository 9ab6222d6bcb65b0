package matching

import (
	"strings"

	"github.com/kirillkom/findit/internal/core/domain"
)

var stopWords = toSet([]string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"is", "was", "are", "were", "been", "have", "has", "had", "will", "would", "could", "should",
})

// PrepareText concatenates every free-text field of an item into one string.
func PrepareText(item domain.Item) string {
	parts := make([]string, 0, 8+len(item.Tags))
	parts = append(parts, item.Title, item.Description, string(item.Category))
	parts = append(parts, item.Tags...)
	parts = append(parts, item.AIMetadata.Keywords()...)
	parts = append(parts, item.AIMetadata.GeminiTags()...)
	parts = append(parts, item.AIMetadata.GeminiDescription())

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// ExtractSemanticWords returns the lower-cased content words of text: tokens
// longer than two characters that are not stop words.
func ExtractSemanticWords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len([]rune(word)) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}

func wordSet(text string) map[string]struct{} {
	return toSet(strings.Fields(strings.ToLower(text)))
}

func lowerSet(groups ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, group := range groups {
		for _, v := range group {
			out[strings.ToLower(v)] = struct{}{}
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
