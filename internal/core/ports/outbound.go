package ports

import (
	"context"
	"time"

	"github.com/kirillkom/findit/internal/core/domain"
)

// ItemRepository persists and reads items.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	ListCandidates(ctx context.Context, filter domain.CandidateFilter) ([]domain.Item, error)
	ListActiveIDs(ctx context.Context, limit int) ([]string, error)
	SaveAIMetadata(ctx context.Context, id string, meta domain.AIMetadata) error
	// MarkMatched stamps the item as matched at the given time. Rematch
	// batches pick the least recently matched items first.
	MarkMatched(ctx context.Context, id string, at time.Time) error
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MatchRepository stores the ranked match list of every item.
type MatchRepository interface {
	// SaveMatches replaces the stored list of itemID with matches.
	SaveMatches(ctx context.Context, itemID string, matches []domain.MatchResult) error
	// AppendMatch adds one link unless it already exists and reports whether it was added.
	AppendMatch(ctx context.Context, match domain.StoredMatch) (bool, error)
	ListMatches(ctx context.Context, itemID string) ([]domain.StoredMatch, error)
	MarkNotified(ctx context.Context, itemID, matchedID string) error
}

// MessageQueue publishes/consumes item-reported events.
type MessageQueue interface {
	PublishItemReported(ctx context.Context, itemID string) error
	SubscribeItemReported(ctx context.Context, handler func(context.Context, string) error) error
}

// MatchNotifier hands new-match notifications to the delivery side.
type MatchNotifier interface {
	NotifyMatch(ctx context.Context, notification domain.MatchNotification) error
}

// ItemAnalyzer extracts keywords from item text.
type ItemAnalyzer interface {
	AnalyzeText(ctx context.Context, item domain.Item) (domain.TextAnalysis, error)
}

// Matcher ranks a candidate pool against a source item.
type Matcher interface {
	Run(ctx context.Context, source domain.Item, candidates []domain.Item) (domain.MatchOutcome, error)
}
