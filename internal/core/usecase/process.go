package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/findit/internal/core/domain"
	"github.com/kirillkom/findit/internal/core/matching"
	"github.com/kirillkom/findit/internal/core/ports"
)

const defaultCandidateLimit = 500

// MatchObserver receives per-run engine statistics.
type MatchObserver interface {
	ObserveMatchRun(poolSize int, outcome domain.MatchOutcome)
}

type ProcessOptions struct {
	// Analyzer is optional; items are matched on user fields alone without it.
	Analyzer       ports.ItemAnalyzer
	Observer       MatchObserver
	CandidateLimit int
	Logger         *slog.Logger
}

type ProcessItemUseCase struct {
	items    ports.ItemRepository
	matches  ports.MatchRepository
	matcher  ports.Matcher
	notifier ports.MatchNotifier
	analyzer ports.ItemAnalyzer
	observer MatchObserver
	limit    int
	logger   *slog.Logger
	now      func() time.Time
}

func NewProcessItemUseCase(
	items ports.ItemRepository,
	matches ports.MatchRepository,
	matcher ports.Matcher,
	notifier ports.MatchNotifier,
	opts ProcessOptions,
) *ProcessItemUseCase {
	limit := opts.CandidateLimit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessItemUseCase{
		items:    items,
		matches:  matches,
		matcher:  matcher,
		notifier: notifier,
		analyzer: opts.Analyzer,
		observer: opts.Observer,
		limit:    limit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ProcessItemUseCase) ProcessByID(ctx context.Context, itemID string) error {
	item, err := uc.loadItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status != domain.StatusActive {
		uc.logger.Info("process_skip_inactive", "item_id", item.ID, "status", string(item.Status))
		return nil
	}

	uc.enrich(ctx, item)

	candidates, err := loadCandidates(ctx, uc.items, *item, uc.limit)
	if err != nil {
		return err
	}

	outcome, err := uc.matcher.Run(ctx, *item, candidates)
	if err != nil {
		return fmt.Errorf("run matcher: %w", err)
	}
	if uc.observer != nil {
		uc.observer.ObserveMatchRun(len(candidates), outcome)
	}

	if err := uc.matches.SaveMatches(ctx, item.ID, outcome.Matches); err != nil {
		return fmt.Errorf("save matches: %w", err)
	}

	for _, match := range outcome.Matches {
		uc.linkBack(ctx, *item, match, candidates)
	}

	if err := uc.items.MarkMatched(ctx, item.ID, uc.now()); err != nil {
		uc.logger.Warn("mark_matched_failed", "item_id", item.ID, "error", err)
	}

	uc.logger.Info("process_item_done",
		"item_id", item.ID,
		"candidates", len(candidates),
		"matches", len(outcome.Matches),
		"failed", outcome.Failed,
	)
	return nil
}

func (uc *ProcessItemUseCase) loadItem(ctx context.Context, itemID string) (*domain.Item, error) {
	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("fetch item by id: %w", err)
	}
	return item, nil
}

// enrich attaches keyword analysis once, even when it found no keywords.
// Failures leave the item as is.
func (uc *ProcessItemUseCase) enrich(ctx context.Context, item *domain.Item) {
	if uc.analyzer == nil || (item.AIMetadata != nil && item.AIMetadata.TextAnalysis != nil) {
		return
	}

	analysis, err := uc.analyzer.AnalyzeText(ctx, *item)
	if err != nil {
		uc.logger.Warn("text_analysis_failed", "item_id", item.ID, "error", err)
		return
	}

	meta := domain.AIMetadata{}
	if item.AIMetadata != nil {
		meta = *item.AIMetadata
	}
	analyzedAt := uc.now()
	meta.TextAnalysis = &analysis
	meta.AnalyzedAt = &analyzedAt

	if err := uc.items.SaveAIMetadata(ctx, item.ID, meta); err != nil {
		uc.logger.Warn("save_ai_metadata_failed", "item_id", item.ID, "error", err)
	}
	item.AIMetadata = &meta
}

// linkBack records the reverse match on the counterpart and notifies its
// reporter the first time the link appears.
func (uc *ProcessItemUseCase) linkBack(ctx context.Context, source domain.Item, match domain.MatchResult, pool []domain.Item) {
	counterpart, ok := findItem(pool, match.ItemID)
	if !ok {
		return
	}

	added, err := uc.matches.AppendMatch(ctx, domain.StoredMatch{
		ItemID:     counterpart.ID,
		MatchedID:  source.ID,
		Confidence: match.Confidence,
		Reasons:    match.Reasons,
		CreatedAt:  uc.now(),
	})
	if err != nil {
		uc.logger.Warn("append_reverse_match_failed", "item_id", counterpart.ID, "matched_item_id", source.ID, "error", err)
		return
	}
	if !added || uc.notifier == nil {
		return
	}

	notification := domain.MatchNotification{
		Type:          domain.NotificationNewMatch,
		RecipientID:   counterpart.ReporterID,
		SourceItemID:  counterpart.ID,
		MatchedItemID: source.ID,
		Confidence:    match.Confidence,
		Band:          string(matching.ConfidenceBand(match.Confidence)),
		Reasons:       match.Reasons,
		CreatedAt:     uc.now(),
	}
	if err := uc.notifier.NotifyMatch(ctx, notification); err != nil {
		uc.logger.Warn("notify_match_failed", "item_id", counterpart.ID, "matched_item_id", source.ID, "error", err)
		return
	}
	if err := uc.matches.MarkNotified(ctx, counterpart.ID, source.ID); err != nil {
		uc.logger.Warn("mark_notified_failed", "item_id", counterpart.ID, "matched_item_id", source.ID, "error", err)
	}
}

func findItem(items []domain.Item, id string) (domain.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.Item{}, false
}

func loadCandidates(ctx context.Context, repo ports.ItemRepository, item domain.Item, limit int) ([]domain.Item, error) {
	opposite := item.Type.Opposite()
	if opposite == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load candidates", fmt.Errorf("item %s has unknown type %q", item.ID, item.Type))
	}
	candidates, err := repo.ListCandidates(ctx, domain.CandidateFilter{
		Type:      opposite,
		Category:  item.Category,
		Status:    domain.StatusActive,
		ExcludeID: item.ID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return candidates, nil
}
