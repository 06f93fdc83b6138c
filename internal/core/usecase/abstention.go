package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

const DefaultAbstainThreshold = 0.3

type GatePolicy string

const (
	GateTop GatePolicy = "top"
	GateAll GatePolicy = "all"
)

func ParseGatePolicy(raw string) (GatePolicy, error) {
	switch GatePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", GateAll:
		return GateAll, nil
	case GateTop:
		return GateTop, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "parse gate policy", fmt.Errorf("unknown policy %q", raw))
	}
}

// TopScore picks the score the gate compares: fused first, then the plain
// similarity score, then cosine, then raw keyword.
func TopScore(r domain.RankedResult) (float64, bool) {
	for _, s := range []*float64{r.FusedScore, r.Score, r.CosineScore, r.KeywordScore} {
		if s != nil {
			return *s, true
		}
	}
	return 0, false
}

// GateResult replaces a result whose score is missing or strictly below
// threshold with the abstention marker. Score fields survive.
func GateResult(r domain.RankedResult, threshold float64) domain.RankedResult {
	score, ok := TopScore(r)
	if ok && score >= threshold {
		return r
	}

	reason := domain.AbstainLowConfidence
	if !ok {
		reason = domain.AbstainNoScore
	}
	return abstain(r, reason)
}

func abstain(r domain.RankedResult, reason string) domain.RankedResult {
	r.Title = domain.AbstainTitle
	r.Snippet = nil
	r.Abstained = true
	r.AbstainReason = reason
	return r
}

func applyGate(results []domain.RankedResult, threshold float64, policy GatePolicy) []domain.RankedResult {
	for i := range results {
		if policy == GateTop && i > 0 {
			break
		}
		results[i] = GateResult(results[i], threshold)
	}
	return results
}
