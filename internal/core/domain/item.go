package domain

import (
	"strings"
	"time"
)

type ItemType string

const (
	ItemLost  ItemType = "lost"
	ItemFound ItemType = "found"
)

// Opposite returns the type a match must have. Unknown types yield "".
func (t ItemType) Opposite() ItemType {
	switch t {
	case ItemLost:
		return ItemFound
	case ItemFound:
		return ItemLost
	default:
		return ""
	}
}

func (t ItemType) Valid() bool {
	return t == ItemLost || t == ItemFound
}

type ItemStatus string

const (
	StatusActive  ItemStatus = "active"
	StatusMatched ItemStatus = "matched"
	StatusClaimed ItemStatus = "claimed"
	StatusExpired ItemStatus = "expired"
)

type Category string

const (
	CategoryElectronics     Category = "Electronics"
	CategoryJewelry         Category = "Jewelry"
	CategoryClothing        Category = "Clothing"
	CategoryBagsWallets     Category = "Bags & Wallets"
	CategoryKeys            Category = "Keys"
	CategoryDocuments       Category = "Documents"
	CategoryToys            Category = "Toys"
	CategorySportsEquipment Category = "Sports Equipment"
	CategoryBooksStationery Category = "Books & Stationery"
	CategoryAccessories     Category = "Accessories"
	CategoryOther           Category = "Other"
)

var categories = []Category{
	CategoryElectronics,
	CategoryJewelry,
	CategoryClothing,
	CategoryBagsWallets,
	CategoryKeys,
	CategoryDocuments,
	CategoryToys,
	CategorySportsEquipment,
	CategoryBooksStationery,
	CategoryAccessories,
	CategoryOther,
}

func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ColorShare is one entry of an image color histogram. Percentage is nil when
// the analyzer did not report one.
type ColorShare struct {
	Color      string   `json:"color"`
	Percentage *float64 `json:"percentage,omitempty"`
}

type TextAnalysis struct {
	Keywords []string `json:"keywords,omitempty"`
}

type ImageAnalysis struct {
	Objects           []string     `json:"objects,omitempty"`
	Colors            []ColorShare `json:"colors,omitempty"`
	GeminiTags        []string     `json:"gemini_tags,omitempty"`
	GeminiDescription string       `json:"gemini_description,omitempty"`
}

type AIMetadata struct {
	TextAnalysis  *TextAnalysis  `json:"text_analysis,omitempty"`
	ImageAnalysis *ImageAnalysis `json:"image_analysis,omitempty"`
	AnalyzedAt    *time.Time     `json:"analyzed_at,omitempty"`
}

func (m *AIMetadata) Keywords() []string {
	if m == nil || m.TextAnalysis == nil {
		return nil
	}
	return m.TextAnalysis.Keywords
}

func (m *AIMetadata) Objects() []string {
	if m == nil || m.ImageAnalysis == nil {
		return nil
	}
	return m.ImageAnalysis.Objects
}

func (m *AIMetadata) Colors() []ColorShare {
	if m == nil || m.ImageAnalysis == nil {
		return nil
	}
	return m.ImageAnalysis.Colors
}

func (m *AIMetadata) GeminiTags() []string {
	if m == nil || m.ImageAnalysis == nil {
		return nil
	}
	return m.ImageAnalysis.GeminiTags
}

func (m *AIMetadata) GeminiDescription() string {
	if m == nil || m.ImageAnalysis == nil {
		return ""
	}
	return m.ImageAnalysis.GeminiDescription
}

type Item struct {
	ID            string      `json:"id"`
	ReporterID    string      `json:"reporter_id"`
	Type          ItemType    `json:"type"`
	Category      Category    `json:"category"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Location      string      `json:"location"`
	DateLostFound *time.Time  `json:"date_lost_found,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	AIMetadata    *AIMetadata `json:"ai_metadata,omitempty"`
	Status        ItemStatus  `json:"status"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ItemDraft is the user-supplied part of a new report.
type ItemDraft struct {
	ReporterID    string         `json:"reporter_id" validate:"required,max=64"`
	Type          ItemType       `json:"type" validate:"required,oneof=lost found"`
	Category      Category       `json:"category" validate:"required,item_category"`
	Title         string         `json:"title" validate:"required,max=100"`
	Description   string         `json:"description" validate:"required,max=1000"`
	Location      string         `json:"location" validate:"required,max=200"`
	DateLostFound *time.Time     `json:"date_lost_found,omitempty"`
	Tags          []string       `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	ImageAnalysis *ImageAnalysis `json:"image_analysis,omitempty"`
}

// NormalizeTags trims and lower-cases tags, dropping empties and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
