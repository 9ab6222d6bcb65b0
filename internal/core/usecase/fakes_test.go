package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/kirillkom/findit/internal/core/domain"
)

type itemRepoFake struct {
	items      map[string]domain.Item
	created    *domain.Item
	createErr  error
	getErr     error
	listErr    error
	lastFilter domain.CandidateFilter
	savedMeta  map[string]domain.AIMetadata
	activeIDs  []string
	matchedAt  map[string]time.Time
	expired    int64
	cutoff     time.Time
}

func newItemRepoFake(items ...domain.Item) *itemRepoFake {
	f := &itemRepoFake{
		items:     map[string]domain.Item{},
		savedMeta: map[string]domain.AIMetadata{},
		matchedAt: map[string]time.Time{},
	}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

func (f *itemRepoFake) Create(_ context.Context, item *domain.Item) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyItem := *item
	f.created = &copyItem
	return nil
}

func (f *itemRepoFake) GetByID(_ context.Context, id string) (*domain.Item, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrItemNotFound, "get item", errors.New(id))
	}
	return &item, nil
}

func (f *itemRepoFake) ListCandidates(_ context.Context, filter domain.CandidateFilter) ([]domain.Item, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Item, 0)
	for _, id := range sortedKeys(f.items) {
		it := f.items[id]
		if it.ID == filter.ExcludeID || it.Type != filter.Type || it.Category != filter.Category || it.Status != filter.Status {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// ListActiveIDs orders like the postgres query: never matched first, then by
// last match time. activeIDs overrides the item set when present.
func (f *itemRepoFake) ListActiveIDs(_ context.Context, limit int) ([]string, error) {
	ids := append([]string(nil), f.activeIDs...)
	if ids == nil {
		for _, id := range sortedKeys(f.items) {
			if f.items[id].Status == domain.StatusActive {
				ids = append(ids, id)
			}
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return f.matchedAt[ids[i]].Before(f.matchedAt[ids[j]])
	})
	if limit > 0 && len(ids) > limit {
		return ids[:limit], nil
	}
	return ids, nil
}

func (f *itemRepoFake) SaveAIMetadata(_ context.Context, id string, meta domain.AIMetadata) error {
	f.savedMeta[id] = meta
	return nil
}

func (f *itemRepoFake) MarkMatched(_ context.Context, id string, at time.Time) error {
	f.matchedAt[id] = at
	return nil
}

func (f *itemRepoFake) ExpireBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.expired, nil
}

func sortedKeys(m map[string]domain.Item) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type matchRow struct {
	match      domain.StoredMatch
	linkedBack bool
}

// matchRepoFake keeps forward and reverse rows together per item, the way
// item_matches does, so pruning on save affects both kinds.
type matchRepoFake struct {
	saved     map[string][]domain.MatchResult
	rows      map[string][]matchRow
	notified  []string
	saveErr   error
	appendErr error
}

func newMatchRepoFake() *matchRepoFake {
	return &matchRepoFake{saved: map[string][]domain.MatchResult{}, rows: map[string][]matchRow{}}
}

func (f *matchRepoFake) SaveMatches(_ context.Context, itemID string, matches []domain.MatchResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[itemID] = matches

	ranked := make(map[string]domain.MatchResult, len(matches))
	for _, m := range matches {
		ranked[m.ItemID] = m
	}
	kept := make([]matchRow, 0, len(matches))
	for _, row := range f.rows[itemID] {
		m, ok := ranked[row.match.MatchedID]
		if !ok && !row.linkedBack {
			continue
		}
		if ok {
			row.match.Confidence = m.Confidence
			row.match.Reasons = m.Reasons
			delete(ranked, m.ItemID)
		}
		kept = append(kept, row)
	}
	for _, m := range matches {
		if _, fresh := ranked[m.ItemID]; fresh {
			kept = append(kept, matchRow{match: domain.StoredMatch{
				ItemID: itemID, MatchedID: m.ItemID, Confidence: m.Confidence, Reasons: m.Reasons,
			}})
		}
	}
	f.rows[itemID] = kept
	return nil
}

func (f *matchRepoFake) AppendMatch(_ context.Context, match domain.StoredMatch) (bool, error) {
	if f.appendErr != nil {
		return false, f.appendErr
	}
	rows := f.rows[match.ItemID]
	for i := range rows {
		if rows[i].match.MatchedID == match.MatchedID {
			rows[i].linkedBack = true
			return false, nil
		}
	}
	f.rows[match.ItemID] = append(rows, matchRow{match: match, linkedBack: true})
	return true, nil
}

func (f *matchRepoFake) ListMatches(_ context.Context, itemID string) ([]domain.StoredMatch, error) {
	out := make([]domain.StoredMatch, 0, len(f.rows[itemID]))
	for _, row := range f.rows[itemID] {
		out = append(out, row.match)
	}
	return out, nil
}

func (f *matchRepoFake) MarkNotified(_ context.Context, itemID, matchedID string) error {
	f.notified = append(f.notified, itemID+"->"+matchedID)
	rows := f.rows[itemID]
	for i := range rows {
		if rows[i].match.MatchedID == matchedID {
			rows[i].match.Notified = true
		}
	}
	return nil
}

func (f *matchRepoFake) matchedIDs(itemID string) []string {
	ids := make([]string, 0, len(f.rows[itemID]))
	for _, row := range f.rows[itemID] {
		ids = append(ids, row.match.MatchedID)
	}
	return ids
}

type queueFake struct {
	published []string
	err       error
	failAfter int
}

func (f *queueFake) PublishItemReported(_ context.Context, itemID string) error {
	if f.err != nil && len(f.published) >= f.failAfter {
		return f.err
	}
	f.published = append(f.published, itemID)
	return nil
}

func (f *queueFake) SubscribeItemReported(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type notifierFake struct {
	sent []domain.MatchNotification
	err  error
}

func (f *notifierFake) NotifyMatch(_ context.Context, n domain.MatchNotification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type analyzerFake struct {
	keywords []string
	err      error
	calls    int
}

func (f *analyzerFake) AnalyzeText(context.Context, domain.Item) (domain.TextAnalysis, error) {
	f.calls++
	if f.err != nil {
		return domain.TextAnalysis{}, f.err
	}
	return domain.TextAnalysis{Keywords: f.keywords}, nil
}

type matcherFake struct {
	outcome domain.MatchOutcome
	err     error
	source  domain.Item
	pool    []domain.Item
}

func (f *matcherFake) Run(_ context.Context, source domain.Item, candidates []domain.Item) (domain.MatchOutcome, error) {
	f.source = source
	f.pool = candidates
	return f.outcome, f.err
}
