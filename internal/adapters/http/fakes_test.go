package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kirillkom/findit/internal/config"
	"github.com/kirillkom/findit/internal/core/domain"
)

type reporterFake struct {
	got  domain.ItemDraft
	item *domain.Item
	err  error
}

func (f *reporterFake) Report(_ context.Context, draft domain.ItemDraft) (*domain.Item, error) {
	f.got = draft
	if f.err != nil {
		return nil, f.err
	}
	if f.item != nil {
		return f.item, nil
	}
	return &domain.Item{ID: "item-1", Type: draft.Type, Category: draft.Category, Title: draft.Title, Status: domain.StatusActive}, nil
}

type itemsFake struct {
	items map[string]*domain.Item
	err   error
}

func (f itemsFake) GetByID(_ context.Context, id string) (*domain.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrItemNotFound)
	}
	return item, nil
}

type finderFake struct {
	results []domain.MatchResult
	err     error
}

func (f finderFake) FindMatches(context.Context, string) ([]domain.MatchResult, error) {
	return f.results, f.err
}

type storedFake struct {
	matches []domain.StoredMatch
	err     error
}

func (f storedFake) ListMatches(context.Context, string) ([]domain.StoredMatch, error) {
	return f.matches, f.err
}

type testDeps struct {
	reporter *reporterFake
	items    itemsFake
	finder   finderFake
	stored   storedFake
}

func newTestHandler(cfg config.Config, deps testDeps) http.Handler {
	if deps.reporter == nil {
		deps.reporter = &reporterFake{}
	}
	router := NewRouter(cfg, deps.reporter, deps.items, deps.finder, deps.stored,
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	return router.Handler()
}
