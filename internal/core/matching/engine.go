package matching

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/kirillkom/findit/internal/core/domain"
)

type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// FindMatches returns the admitted candidates ranked by confidence.
func (e *Engine) FindMatches(ctx context.Context, source domain.Item, candidates []domain.Item) ([]domain.MatchResult, error) {
	outcome, err := e.Run(ctx, source, candidates)
	if err != nil {
		return nil, err
	}
	return outcome.Matches, nil
}

type slot struct {
	result  domain.MatchResult
	skipped bool
	failed  bool
}

// Run scores the pool on a bounded set of goroutines. Each goroutine writes
// only its own slot, so ranking runs after the barrier without locking.
func (e *Engine) Run(ctx context.Context, source domain.Item, candidates []domain.Item) (domain.MatchOutcome, error) {
	if len(candidates) == 0 {
		return domain.MatchOutcome{Matches: []domain.MatchResult{}}, nil
	}

	slots := make([]slot, len(candidates))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range e.workerCount(len(candidates)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slots[i] = e.scoreOne(source, candidates[i])
			}
		}()
	}

	var ctxErr error
dispatch:
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if ctxErr != nil {
		return domain.MatchOutcome{}, ctxErr
	}
	return e.rank(slots), nil
}

func (e *Engine) workerCount(n int) int {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return max(1, min(workers, n))
}

func (e *Engine) scoreOne(source, candidate domain.Item) (out slot) {
	if source.ID != "" && candidate.ID == source.ID {
		return slot{skipped: true}
	}
	if source.Type.Valid() && candidate.Type.Valid() && source.Type == candidate.Type {
		e.logger.Debug("matching_skip_same_type", "item_id", source.ID, "candidate_id", candidate.ID)
		return slot{skipped: true}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("matching_candidate_failed",
				"item_id", source.ID,
				"candidate_id", candidate.ID,
				"error", fmt.Sprint(r),
			)
			out = slot{failed: true}
		}
	}()

	sim := Score(e.cfg, source, candidate)
	return slot{result: domain.MatchResult{
		ItemID:           candidate.ID,
		SimilarityScore:  sim.OverallScore,
		Confidence:       sim.Confidence,
		Reasons:          sim.Reasons,
		DetailedAnalysis: domain.NewDetailedAnalysis(sim.DetailedScores),
	}}
}

func (e *Engine) rank(slots []slot) domain.MatchOutcome {
	outcome := domain.MatchOutcome{Matches: make([]domain.MatchResult, 0, min(len(slots), e.cfg.MaxMatches))}
	admitted := make([]domain.MatchResult, 0, len(slots))

	for _, s := range slots {
		switch {
		case s.skipped:
			outcome.Skipped++
			continue
		case s.failed:
			outcome.Failed++
			continue
		}
		outcome.Evaluated++
		if s.result.Confidence >= e.cfg.AdmissionFloor {
			admitted = append(admitted, s.result)
		}
	}

	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].Confidence > admitted[j].Confidence
	})
	if len(admitted) > e.cfg.MaxMatches {
		admitted = admitted[:e.cfg.MaxMatches]
	}
	outcome.Matches = append(outcome.Matches, admitted...)
	return outcome
}
