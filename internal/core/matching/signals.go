package matching

import (
	"math"
	"strings"

	"github.com/kirillkom/findit/internal/core/domain"
)

type signalFunc func(a, b domain.Item) float64

var signalFuncs = map[domain.Signal]signalFunc{
	domain.SignalText:     TextSimilarity,
	domain.SignalField:    FieldSimilarity,
	domain.SignalLocation: LocationSimilarity,
	domain.SignalTemporal: TemporalSimilarity,
	domain.SignalKeyword:  KeywordOverlap,
	domain.SignalColor:    ColorSimilarity,
	domain.SignalSemantic: SemanticSimilarity,
}

var locationKeywords = []string{"library", "cafeteria", "gate", "building", "hostel", "campus", "block"}

var colorFamilies = [][]string{
	{"black", "dark", "navy", "brown"},
	{"white", "light", "cream", "silver"},
	{"red", "orange", "yellow", "pink"},
	{"blue", "green", "purple", "cyan"},
}

// TextSimilarity blends word-set overlap with edit-distance similarity of the
// prepared item texts.
func TextSimilarity(a, b domain.Item) float64 {
	t1, t2 := PrepareText(a), PrepareText(b)
	if t1 == "" || t2 == "" {
		return 0
	}
	return jaccard(wordSet(t1), wordSet(t2))*0.6 + fuzzySimilarity(t1, t2)*0.4
}

// FieldSimilarity compares detected image objects only.
func FieldSimilarity(a, b domain.Item) float64 {
	o1 := lowerSet(a.AIMetadata.Objects())
	o2 := lowerSet(b.AIMetadata.Objects())
	if len(o1) == 0 || len(o2) == 0 {
		return 0
	}
	return jaccard(o1, o2)
}

func LocationSimilarity(a, b domain.Item) float64 {
	l1 := strings.ToLower(a.Location)
	l2 := strings.ToLower(b.Location)
	if l1 == "" || l2 == "" {
		return 0
	}
	if l1 == l2 {
		return 1.0
	}
	for _, kw := range locationKeywords {
		if strings.Contains(l1, kw) && strings.Contains(l2, kw) {
			return 0.8
		}
	}
	if fuzzy := fuzzySimilarity(l1, l2); fuzzy > 0.5 {
		return fuzzy
	}
	return 0
}

func TemporalSimilarity(a, b domain.Item) float64 {
	if a.DateLostFound == nil || b.DateLostFound == nil {
		return 0
	}
	hours := math.Abs(a.DateLostFound.Sub(*b.DateLostFound).Hours())
	switch {
	case hours <= 2:
		return 1.0
	case hours <= 12:
		return 0.9
	case hours <= 24:
		return 0.8
	case hours <= 72:
		return 0.6
	case hours <= 168:
		return 0.4
	case hours <= 720:
		return 0.2
	default:
		return 0
	}
}

func KeywordOverlap(a, b domain.Item) float64 {
	k1 := lowerSet(a.AIMetadata.Keywords(), a.Tags, a.AIMetadata.GeminiTags())
	k2 := lowerSet(b.AIMetadata.Keywords(), b.Tags, b.AIMetadata.GeminiTags())
	return jaccard(k1, k2)
}

func ColorSimilarity(a, b domain.Item) float64 {
	c1, ok1 := dominantColor(a.AIMetadata.Colors())
	c2, ok2 := dominantColor(b.AIMetadata.Colors())
	if !ok1 || !ok2 {
		return 0
	}
	switch {
	case c1 == c2:
		return 1.0
	case sameColorFamily(c1, c2):
		return 0.7
	default:
		return 0.2
	}
}

func SemanticSimilarity(a, b domain.Item) float64 {
	w1 := ExtractSemanticWords(a.Description)
	w2 := ExtractSemanticWords(b.Description)
	if len(w1) == 0 || len(w2) == 0 {
		return 0
	}
	return jaccard(w1, w2)
}

// dominantColor picks the entry with the largest percentage. A later entry
// wins unless the current leader's percentage is strictly greater, and an
// entry without a percentage always takes the lead.
func dominantColor(colors []domain.ColorShare) (string, bool) {
	if len(colors) == 0 {
		return "", false
	}
	best := colors[0]
	for _, curr := range colors[1:] {
		if best.Percentage != nil && curr.Percentage != nil && *best.Percentage > *curr.Percentage {
			continue
		}
		best = curr
	}
	return strings.ToLower(best.Color), true
}

func sameColorFamily(c1, c2 string) bool {
	for _, family := range colorFamilies {
		if containsAny(c1, family) && containsAny(c2, family) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
