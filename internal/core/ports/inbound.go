package ports

import (
	"context"

	"github.com/kirillkom/findit/internal/core/domain"
)

// ItemReporter is the inbound contract for new lost/found reports.
type ItemReporter interface {
	Report(ctx context.Context, draft domain.ItemDraft) (*domain.Item, error)
}

// ItemReader is the inbound read model for item state.
type ItemReader interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
}

// MatchFinder scores an item against the current pool without persisting.
type MatchFinder interface {
	FindMatches(ctx context.Context, itemID string) ([]domain.MatchResult, error)
}

// MatchReader exposes persisted matches of an item.
type MatchReader interface {
	ListMatches(ctx context.Context, itemID string) ([]domain.StoredMatch, error)
}

// ItemProcessor is the inbound contract for asynchronous match processing.
type ItemProcessor interface {
	ProcessByID(ctx context.Context, itemID string) error
}

// Maintenance runs periodic housekeeping over the item set.
type Maintenance interface {
	ExpireStale(ctx context.Context) (int64, error)
	RequeueActive(ctx context.Context, batch int) (int, error)
}
