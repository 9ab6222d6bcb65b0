package domain

import "time"

// Signal names one pairwise similarity measure.
type Signal string

const (
	SignalText     Signal = "text_similarity"
	SignalField    Signal = "field_similarity"
	SignalLocation Signal = "location_similarity"
	SignalTemporal Signal = "temporal_similarity"
	SignalKeyword  Signal = "keyword_overlap"
	SignalColor    Signal = "color_similarity"
	SignalSemantic Signal = "semantic_similarity"
)

// Signals lists every signal in fusion order.
func Signals() []Signal {
	return []Signal{
		SignalText,
		SignalField,
		SignalLocation,
		SignalTemporal,
		SignalKeyword,
		SignalColor,
		SignalSemantic,
	}
}

type SimilarityResult struct {
	OverallScore   float64
	Confidence     float64
	Reasons        []string
	DetailedScores map[Signal]float64
}

// DetailedAnalysis is the external view of the signal scores.
type DetailedAnalysis struct {
	TextSimilarity     float64 `json:"text_similarity"`
	ImageSimilarity    float64 `json:"image_similarity"`
	CategoryMatch      float64 `json:"category_match"`
	LocationProximity  float64 `json:"location_proximity"`
	TimeProximity      float64 `json:"time_proximity"`
	KeywordOverlap     float64 `json:"keyword_overlap"`
	ColorSimilarity    float64 `json:"color_similarity"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
}

// NewDetailedAnalysis maps internal signal names onto the external keys.
// category_match has no backing signal and is always zero.
func NewDetailedAnalysis(scores map[Signal]float64) DetailedAnalysis {
	return DetailedAnalysis{
		TextSimilarity:     scores[SignalText],
		ImageSimilarity:    scores[SignalField],
		CategoryMatch:      0,
		LocationProximity:  scores[SignalLocation],
		TimeProximity:      scores[SignalTemporal],
		KeywordOverlap:     scores[SignalKeyword],
		ColorSimilarity:    scores[SignalColor],
		SemanticSimilarity: scores[SignalSemantic],
	}
}

type MatchResult struct {
	ItemID           string           `json:"item_id"`
	SimilarityScore  float64          `json:"similarity_score"`
	Confidence       float64          `json:"confidence"`
	Reasons          []string         `json:"reasons"`
	DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
}

// MatchOutcome reports one engine run over a candidate pool.
type MatchOutcome struct {
	Matches   []MatchResult
	Evaluated int
	Skipped   int
	Failed    int
}

// StoredMatch is a persisted link from one item to a counterpart.
type StoredMatch struct {
	ItemID     string    `json:"item_id"`
	MatchedID  string    `json:"matched_item_id"`
	Confidence float64   `json:"confidence"`
	Reasons    []string  `json:"reasons"`
	Notified   bool      `json:"notified"`
	CreatedAt  time.Time `json:"created_at"`
}

const NotificationNewMatch = "new_match"

type MatchNotification struct {
	Type          string    `json:"type"`
	RecipientID   string    `json:"recipient_id"`
	SourceItemID  string    `json:"source_item_id"`
	MatchedItemID string    `json:"matched_item_id"`
	Confidence    float64   `json:"confidence"`
	Band          string    `json:"band"`
	Reasons       []string  `json:"reasons"`
	CreatedAt     time.Time `json:"created_at"`
}

// CandidateFilter selects the pool an item is scored against.
type CandidateFilter struct {
	Type      ItemType
	Category  Category
	Status    ItemStatus
	ExcludeID string
	Limit     int
}
