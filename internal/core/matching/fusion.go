package matching

import (
	"math"
	"strings"

	"github.com/kirillkom/findit/internal/core/domain"
)

// Score computes all signals for one pair and fuses them into a confidence.
// Signals at or below the noise floor take no part in the weighted mean.
func Score(cfg Config, source, candidate domain.Item) domain.SimilarityResult {
	signals := domain.Signals()
	scores := make(map[domain.Signal]float64, len(signals))
	for _, signal := range signals {
		scores[signal] = clamp01(signalFuncs[signal](source, candidate))
	}
	return fuse(cfg, scores)
}

func fuse(cfg Config, scores map[domain.Signal]float64) domain.SimilarityResult {
	var weighted, totalWeight float64
	reasons := make([]string, 0, len(scores))

	for _, signal := range domain.Signals() {
		score := scores[signal]
		if score <= cfg.NoiseFloor {
			continue
		}
		weight := cfg.Weights.Of(signal)
		weighted += score * weight
		totalWeight += weight

		if reason, ok := reasonFor(cfg.ReasonBands, signal, score); ok {
			reasons = append(reasons, reason)
		}
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = weighted / totalWeight
	}
	overall = round3(overall)

	return domain.SimilarityResult{
		OverallScore:   overall,
		Confidence:     overall,
		Reasons:        reasons,
		DetailedScores: scores,
	}
}

func reasonFor(bands ReasonBands, signal domain.Signal, score float64) (string, bool) {
	label := strings.Replace(string(signal), "_", " ", 1)
	switch {
	case score >= bands.Excellent:
		return "Excellent " + label, true
	case score >= bands.Good:
		return "Good " + label, true
	case score >= bands.Moderate:
		return "Moderate " + label, true
	default:
		return "", false
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
