package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/core/ports"
)

type FindMatchesUseCase struct {
	items   ports.ItemRepository
	matches ports.MatchRepository
	matcher ports.Matcher
	limit   int
}

func NewFindMatchesUseCase(items ports.ItemRepository, matches ports.MatchRepository, matcher ports.Matcher, candidateLimit int) *FindMatchesUseCase {
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	return &FindMatchesUseCase{
		items:   items,
		matches: matches,
		matcher: matcher,
		limit:   candidateLimit,
	}
}

// FindMatches ranks the live pool for an item without writing anything.
func (uc *FindMatchesUseCase) FindMatches(ctx context.Context, itemID string) ([]domain.MatchResult, error) {
	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("fetch item by id: %w", err)
	}

	candidates, err := loadCandidates(ctx, uc.items, *item, uc.limit)
	if err != nil {
		return nil, err
	}

	outcome, err := uc.matcher.Run(ctx, *item, candidates)
	if err != nil {
		return nil, fmt.Errorf("run matcher: %w", err)
	}
	return outcome.Matches, nil
}

func (uc *FindMatchesUseCase) ListMatches(ctx context.Context, itemID string) ([]domain.StoredMatch, error) {
	if _, err := uc.items.GetByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("fetch item by id: %w", err)
	}
	matches, err := uc.matches.ListMatches(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}
