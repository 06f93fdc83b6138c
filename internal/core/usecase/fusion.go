package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

const (
	DefaultAlpha      = 0.6
	degenerateNormVal = 0.5
)

// NormalizeMinMax rescales raw into [0, 1]. When every value is equal the
// range is degenerate and each value maps to 0.5.
func NormalizeMinMax(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	for i, v := range raw {
		if span == 0 {
			out[i] = degenerateNormVal
			continue
		}
		out[i] = (v - lo) / span
	}
	return out
}

// FuseScores blends positionally aligned cosine and keyword scores:
// alpha*norm(cos) + (1-alpha)*norm(keyword).
func FuseScores(cosine, keyword []float64, alpha float64) ([]float64, error) {
	if alpha < 0 || alpha > 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fuse scores", fmt.Errorf("alpha must be in [0,1], got %v", alpha))
	}
	if len(cosine) == 0 || len(cosine) != len(keyword) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fuse scores", fmt.Errorf("score lengths %d/%d", len(cosine), len(keyword)))
	}

	cosNorm := NormalizeMinMax(cosine)
	kwNorm := NormalizeMinMax(keyword)

	fused := make([]float64, len(cosine))
	for i := range fused {
		fused[i] = alpha*cosNorm[i] + (1-alpha)*kwNorm[i]
	}
	return fused, nil
}

// fuseCandidates attaches keyword and fused scores to every candidate and
// returns them ranked by fused score. Equal scores keep candidate order.
func fuseCandidates(candidates []domain.Candidate, keyword map[int]float64, alpha float64) ([]domain.ScoredCandidate, error) {
	cos := make([]float64, len(candidates))
	kw := make([]float64, len(candidates))
	for i, c := range candidates {
		cos[i] = c.CosineScore
		kw[i] = keyword[c.Position]
	}

	fused, err := FuseScores(cos, kw, alpha)
	if err != nil {
		return nil, err
	}

	scored := make([]domain.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = domain.ScoredCandidate{
			Candidate:    c,
			KeywordScore: kw[i],
			FusedScore:   fused[i],
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FusedScore > scored[j].FusedScore
	})
	return scored, nil
}
