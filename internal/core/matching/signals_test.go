package matching

import (
	"math"
	"testing"
	"time"

	"github.com/kirillkom/findit/internal/core/domain"
)

func pct(v float64) *float64 { return &v }

func at(hoursFromBase float64) *time.Time {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	t := base.Add(time.Duration(hoursFromBase * float64(time.Hour)))
	return &t
}

func withImage(objects []string, colors ...domain.ColorShare) *domain.AIMetadata {
	return &domain.AIMetadata{ImageAnalysis: &domain.ImageAnalysis{Objects: objects, Colors: colors}}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abcd", 4},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"café", "cafe", 1},
	}
	for _, tc := range cases {
		if got := levenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Fatalf("levenshtein(%q,%q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFuzzySimilarityIsCaseInsensitive(t *testing.T) {
	if got := fuzzySimilarity("Main Gate", "main gate"); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := fuzzySimilarity("", ""); got != 0 {
		t.Fatalf("expected 0 for two empty strings, got %v", got)
	}
}

func TestPrepareTextSkipsEmptyParts(t *testing.T) {
	item := domain.Item{
		Title:    "Blue bottle",
		Category: domain.CategoryOther,
		Tags:     []string{"steel"},
		AIMetadata: &domain.AIMetadata{
			TextAnalysis:  &domain.TextAnalysis{Keywords: []string{"flask"}},
			ImageAnalysis: &domain.ImageAnalysis{GeminiTags: []string{"metal"}, GeminiDescription: "a dented flask"},
		},
	}
	want := "Blue bottle Other steel flask metal a dented flask"
	if got := PrepareText(item); got != want {
		t.Fatalf("PrepareText() = %q, want %q", got, want)
	}
}

func TestExtractSemanticWordsDropsShortAndStopWords(t *testing.T) {
	words := ExtractSemanticWords("The black wallet was left on a bench with cards")
	for _, dropped := range []string{"the", "was", "on", "a", "with"} {
		if _, ok := words[dropped]; ok {
			t.Fatalf("expected %q to be dropped, got %v", dropped, words)
		}
	}
	for _, kept := range []string{"black", "wallet", "left", "bench", "cards"} {
		if _, ok := words[kept]; !ok {
			t.Fatalf("expected %q to be kept, got %v", kept, words)
		}
	}
}

func TestTextSimilarityIdenticalText(t *testing.T) {
	a := domain.Item{Title: "Black leather wallet", Description: "Lost near the gym"}
	b := a
	if got := TextSimilarity(a, b); !almostEqual(got, 1) {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := TextSimilarity(a, domain.Item{}); got != 0 {
		t.Fatalf("expected 0 for empty side, got %v", got)
	}
}

func TestFieldSimilarityRequiresObjectsOnBothSides(t *testing.T) {
	a := domain.Item{AIMetadata: withImage([]string{"Wallet", "card"})}
	b := domain.Item{AIMetadata: withImage([]string{"wallet", "coin"})}
	if got := FieldSimilarity(a, b); !almostEqual(got, 1.0/3.0) {
		t.Fatalf("expected 1/3, got %v", got)
	}
	if got := FieldSimilarity(a, domain.Item{}); got != 0 {
		t.Fatalf("expected 0 without objects, got %v", got)
	}
}

func TestLocationSimilarityBranches(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "exact ignores case", a: "Main Gate", b: "main gate", want: 1.0},
		{name: "shared keyword", a: "VIT Main Library", b: "Main Library Block A", want: 0.8},
		{name: "missing", a: "", b: "Main Gate", want: 0},
		{name: "unrelated", a: "north parking", b: "pool deck", want: 0},
	}
	for _, tc := range cases {
		got := LocationSimilarity(domain.Item{Location: tc.a}, domain.Item{Location: tc.b})
		if !almostEqual(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	fuzzy := LocationSimilarity(domain.Item{Location: "sports complex"}, domain.Item{Location: "sport complex"})
	if fuzzy <= 0.5 || fuzzy >= 1 {
		t.Fatalf("expected fuzzy branch score in (0.5,1), got %v", fuzzy)
	}
}

func TestTemporalSimilarityLadder(t *testing.T) {
	cases := []struct {
		hours float64
		want  float64
	}{
		{0, 1.0},
		{2, 1.0},
		{2.5, 0.9},
		{12, 0.9},
		{24, 0.8},
		{72, 0.6},
		{168, 0.4},
		{720, 0.2},
		{721, 0},
		{-30, 0.6},
	}
	for _, tc := range cases {
		a := domain.Item{DateLostFound: at(0)}
		b := domain.Item{DateLostFound: at(tc.hours)}
		if got := TemporalSimilarity(a, b); got != tc.want {
			t.Fatalf("delta %vh: expected %v, got %v", tc.hours, tc.want, got)
		}
	}
	if got := TemporalSimilarity(domain.Item{}, domain.Item{DateLostFound: at(0)}); got != 0 {
		t.Fatalf("expected 0 for missing date, got %v", got)
	}
}

func TestKeywordOverlapUnionsAllSources(t *testing.T) {
	a := domain.Item{
		Tags: []string{"Keys"},
		AIMetadata: &domain.AIMetadata{
			TextAnalysis: &domain.TextAnalysis{Keywords: []string{"keychain"}},
		},
	}
	b := domain.Item{
		Tags: []string{"keys"},
		AIMetadata: &domain.AIMetadata{
			ImageAnalysis: &domain.ImageAnalysis{GeminiTags: []string{"KEYCHAIN"}},
		},
	}
	if got := KeywordOverlap(a, b); !almostEqual(got, 1) {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := KeywordOverlap(domain.Item{}, domain.Item{}); got != 0 {
		t.Fatalf("expected 0 for no keywords, got %v", got)
	}
}

func TestColorSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []domain.ColorShare
		want float64
	}{
		{
			name: "same dominant",
			a:    []domain.ColorShare{{Color: "black", Percentage: pct(60)}, {Color: "white", Percentage: pct(40)}},
			b:    []domain.ColorShare{{Color: "Black", Percentage: pct(90)}},
			want: 1.0,
		},
		{
			name: "same family",
			a:    []domain.ColorShare{{Color: "navy blue", Percentage: pct(70)}},
			b:    []domain.ColorShare{{Color: "dark grey", Percentage: pct(80)}},
			want: 0.7,
		},
		{
			name: "different families",
			a:    []domain.ColorShare{{Color: "red", Percentage: pct(70)}},
			b:    []domain.ColorShare{{Color: "green", Percentage: pct(80)}},
			want: 0.2,
		},
		{
			name: "missing side",
			a:    nil,
			b:    []domain.ColorShare{{Color: "green", Percentage: pct(80)}},
			want: 0,
		},
	}
	for _, tc := range cases {
		a := domain.Item{AIMetadata: withImage(nil, tc.a...)}
		b := domain.Item{AIMetadata: withImage(nil, tc.b...)}
		if got := ColorSimilarity(a, b); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestDominantColorTieAndMissingPercentage(t *testing.T) {
	got, ok := dominantColor([]domain.ColorShare{{Color: "red", Percentage: pct(50)}, {Color: "blue", Percentage: pct(50)}})
	if !ok || got != "blue" {
		t.Fatalf("expected later entry to win a tie, got %q", got)
	}
	got, _ = dominantColor([]domain.ColorShare{{Color: "red", Percentage: pct(80)}, {Color: "cyan"}})
	if got != "cyan" {
		t.Fatalf("expected entry without percentage to take the lead, got %q", got)
	}
}

func TestSemanticSimilarity(t *testing.T) {
	a := domain.Item{Description: "black leather wallet with student card"}
	b := domain.Item{Description: "found a black wallet near the canteen"}
	got := SemanticSimilarity(a, b)
	if got <= 0 || got >= 1 {
		t.Fatalf("expected partial overlap, got %v", got)
	}
	if got := SemanticSimilarity(a, domain.Item{Description: "a an the"}); got != 0 {
		t.Fatalf("expected 0 when one side has no content words, got %v", got)
	}
}
